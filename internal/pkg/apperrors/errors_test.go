package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestCustomErrorUnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("get soldier: %w", NewResourceNotFoundError(MsgSoldierNotFound))

	if !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("expected wrapped error to match ErrResourceNotFound")
	}
	if errors.Is(err, ErrConflict) {
		t.Fatalf("did not expect ErrConflict to match")
	}

	msg, ok := MessageOf(err)
	if !ok || msg != "Soldier does not exist." {
		t.Fatalf("MessageOf = %q, %v", msg, ok)
	}
}

func TestMessageOfPlainError(t *testing.T) {
	if _, ok := MessageOf(errors.New("plain")); ok {
		t.Fatalf("plain errors carry no client message")
	}
}

func TestIsMatchesAnyInList(t *testing.T) {
	err := NewUnauthorizedError(MsgNoUnitRole)
	if !Is(err, ErrPermissionDenied, ErrBadRequest, ErrUnauthorized) {
		t.Fatalf("expected match through errList")
	}
	if Is(err, ErrPermissionDenied, ErrBadRequest) {
		t.Fatalf("unexpected match")
	}
}

func TestValidationErrorDetails(t *testing.T) {
	err := NewValidationError("total_mx_hours", "mx hours cannot be negative")
	var custom *CustomError
	if !errors.As(err, &custom) {
		t.Fatalf("expected CustomError")
	}
	if custom.Details["field"] != "total_mx_hours" {
		t.Fatalf("details = %v", custom.Details)
	}
	if custom.WithCode("VAL_001").Code != "VAL_001" {
		t.Fatalf("WithCode did not set code")
	}
}
