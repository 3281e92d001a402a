package dto

import "github.com/ai2c/amap/internal/app/models"

// CreateSoldierRequest registers the requesting user
type CreateSoldierRequest struct {
	UserID        string  `json:"user_id" binding:"required,dodid" example:"1234567890"`
	Rank          string  `json:"rank" binding:"required,max=8" example:"SGT"`
	FirstName     string  `json:"first_name" binding:"required,max=64"`
	LastName      string  `json:"last_name" binding:"required,max=64"`
	PrimaryMOS    *string `json:"primary_mos" binding:"omitempty,max=8" example:"15R"`
	UnitUIC       string  `json:"unit" binding:"required,uic" example:"WAAAA0"`
	DoDEmail      *string `json:"dod_email" binding:"omitempty,email"`
	ReceiveEmails bool    `json:"receive_emails"`
	BirthMonth    *string `json:"birth_month" binding:"omitempty,len=3"`
}

// UpdateSoldierRequest updates the requesting user's profile
type UpdateSoldierRequest struct {
	Rank          *string `json:"rank" binding:"omitempty,max=8"`
	FirstName     *string `json:"first_name" binding:"omitempty,max=64"`
	LastName      *string `json:"last_name" binding:"omitempty,max=64"`
	PrimaryMOS    *string `json:"primary_mos" binding:"omitempty,max=8"`
	UnitUIC       *string `json:"unit"`
	DoDEmail      *string `json:"dod_email" binding:"omitempty,email"`
	ReceiveEmails *bool   `json:"receive_emails"`
	BirthMonth    *string `json:"birth_month" binding:"omitempty,len=3"`

	// Replaces the additional MOS codes when present
	AdditionalMOS *[]string `json:"additional_mos" binding:"omitempty,dive,max=8"`
}

// SoldierDetailResponse is the profile of a soldier
type SoldierDetailResponse struct {
	UserID               string                `json:"user_id"`
	Rank                 string                `json:"rank"`
	FirstName            string                `json:"first_name"`
	LastName             string                `json:"last_name"`
	Display              string                `json:"display" example:"SGT Jane Doe"`
	PrimaryMOS           *string               `json:"primary_mos"`
	AdditionalMOS        []string              `json:"additional_mos"`
	Unit                 models.UnitSummary    `json:"unit"`
	IsAdmin              bool                  `json:"is_admin"`
	IsMaintainer         bool                  `json:"is_maintainer"`
	DoDEmail             *string               `json:"dod_email"`
	ReceiveEmails        bool                  `json:"receive_emails"`
	BirthMonth           *string               `json:"birth_month"`
	AvailabilityStatus   models.MxAvailability `json:"availability_status" example:"Available"`
	PrimaryML            *string               `json:"primary_ml" example:"ML2"`
	RecentAnnualEvalDate *string               `json:"recent_annual_eval_date" example:"01/31/2024"`
}

// UnitRoles lists the unit hierarchies a user holds each role over
type UnitRoles struct {
	Viewer   []string `json:"viewer"`
	Recorder []string `json:"recorder"`
	Manager  []string `json:"manager"`
}

// LoginResponse is the who-am-i answer
type LoginResponse struct {
	UserID          string                 `json:"user_id"`
	NewUser         bool                   `json:"new_user"`
	User            *SoldierDetailResponse `json:"user,omitempty"`
	UnitRoles       *UnitRoles             `json:"unit_roles,omitempty"`
	HasOpenRequests bool                   `json:"has_open_requests"`
}

// ElevatedRolesResponse lists UICs per access level
type ElevatedRolesResponse struct {
	Viewer    []string `json:"viewer"`
	Recorder  []string `json:"recorder"`
	Manager   []string `json:"manager"`
	Evaluator []string `json:"evaluator"`
}
