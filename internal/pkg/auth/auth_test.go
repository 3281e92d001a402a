package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestService() *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "amap",
	})
}

func TestIssueAndValidateToken(t *testing.T) {
	svc := newTestService()

	token, expiry, err := svc.IssueToken("1234567890", 0)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if time.Until(expiry) < 59*time.Minute {
		t.Fatalf("expiry should default to the configured duration, got %v", expiry)
	}

	claims, err := svc.ValidateAndExtractClaims(token)
	if err != nil {
		t.Fatalf("ValidateAndExtractClaims: %v", err)
	}
	if claims.UserID != "1234567890" || claims.Subject != "1234567890" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestIssueTokenRejectsMalformedUserID(t *testing.T) {
	if _, _, err := newTestService().IssueToken("abc", 0); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	svc := newTestService()
	token, _, err := svc.IssueToken("1234567890", time.Nanosecond)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, err := newTestService().IssueToken("1234567890", 0)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "amap"})
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer a.b.c", "a.b.c", false},
		{"a.b.c", "a.b.c", false},
		{"\"Bearer a.b.c\"", "a.b.c", false},
		{"", "", true},
		{"Bearer token", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractBearerToken(tt.header)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ExtractBearerToken(%q) = %q, %v", tt.header, got, err)
		}
	}
}

func TestServiceKeyVerifier(t *testing.T) {
	key := "0123456789abcdef0123"
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	v := NewServiceKeyVerifier(string(hash))
	if err := v.Verify(key); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := v.Verify("wrong-key-wrong-key"); !errors.Is(err, ErrInvalidServiceKey) {
		t.Fatalf("expected ErrInvalidServiceKey, got %v", err)
	}
	if NewServiceKeyVerifier("").Enabled() {
		t.Fatalf("empty hash should disable service keys")
	}
}

func TestHashServiceKeyTooShort(t *testing.T) {
	if _, err := HashServiceKey("short"); err == nil {
		t.Fatalf("expected short keys to be rejected")
	}
}
