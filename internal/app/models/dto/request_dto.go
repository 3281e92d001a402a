package dto

import (
	"time"

	"github.com/ai2c/amap/internal/app/models"
)

// CreatePermissionRequest asks for an access level on a unit
type CreatePermissionRequest struct {
	UIC         string `json:"uic" binding:"required,uic" example:"WAAAA0"`
	AccessLevel string `json:"access_level" binding:"required,oneof=Viewer Recorder Manager Evaluator" example:"Recorder"`
}

// CreateTransferRequest asks to move a soldier into the gaining unit
type CreateTransferRequest struct {
	SoldierID  string `json:"soldier_id" binding:"required,dodid" example:"1234567890"`
	GainingUIC string `json:"gaining_uic" binding:"required,uic" example:"WAAAA0"`
}

// AdjudicateRequest approves or denies a batch of requests
type AdjudicateRequest struct {
	RequestIDs []int64 `json:"request_ids"`
	Approved   *bool   `json:"approved" binding:"required"`
}

// RequestCountsResponse counts pending requests over managed units
type RequestCountsResponse struct {
	PermissionRequestsCount int64 `json:"permission_requests_count"`
	TransferRequestsCount   int64 `json:"transfer_requests_count"`
}

// PermissionRequestRow is one pending permission request
type PermissionRequestRow struct {
	RequestID     int64   `json:"request_id"`
	Name          string  `json:"name"`
	Rank          string  `json:"rank"`
	DoDID         string  `json:"dod_id"`
	Unit          string  `json:"unit"`
	LastActive    string  `json:"last_active" example:"01/31/2024"`
	CurrentRole   *string `json:"current_role"`
	RequestedRole string  `json:"requested_role"`
}

// UnitPermissionRequests groups pending permission requests by unit
type UnitPermissionRequests struct {
	UIC         string                 `json:"uic"`
	ShortName   string                 `json:"short_name"`
	DisplayName string                 `json:"display_name"`
	Requests    []PermissionRequestRow `json:"requests"`
}

// POC is a point of contact for a request
type POC struct {
	Name  string  `json:"name"`
	Email *string `json:"email"`
}

// TransferRequestRow is one pending transfer request
type TransferRequestRow struct {
	ID          int64              `json:"id"`
	Soldier     SoldierSummary     `json:"soldier"`
	CurrentUnit models.UnitSummary `json:"current_unit"`
	GainingUnit models.UnitSummary `json:"gaining_unit"`
	Requester   SoldierSummary     `json:"requester"`
	CreatedAt   time.Time          `json:"created_at"`
	POCs        []POC              `json:"pocs,omitempty"`
}

// TransferRequestsResponse splits transfer requests by direction
type TransferRequestsResponse struct {
	ReceivedRequests []TransferRequestRow `json:"received_requests"`
	SentRequests     []TransferRequestRow `json:"sent_requests"`
}

// RoleView is a user role with its unit
type RoleView struct {
	ID          int64              `json:"id"`
	UserID      string             `json:"user_id"`
	Unit        models.UnitSummary `json:"unit"`
	AccessLevel models.AccessLevel `json:"access_level"`
}
