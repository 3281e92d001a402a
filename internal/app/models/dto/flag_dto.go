package dto

import "github.com/ai2c/amap/internal/app/models"

// CreateFlagRequest creates a flag on a soldier or a unit
type CreateFlagRequest struct {
	SoldierID            *string `json:"soldier_id" binding:"omitempty,dodid"`
	UnitUIC              *string `json:"unit_uic" binding:"omitempty,uic"`
	FlagType             string  `json:"flag_type" binding:"required,oneof=Administrative Unit/Position Tasking Profile Other" example:"Administrative"`
	AdminFlagInfo        *string `json:"admin_flag_info"`
	UnitPositionFlagInfo *string `json:"unit_position_flag_info"`
	TaskingFlagInfo      *string `json:"tasking_flag_info"`
	ProfileFlagInfo      *string `json:"profile_flag_info"`
	MxAvailability       string  `json:"mx_availability" binding:"required,oneof=Available Limited Unavailable" example:"Limited"`
	StartDate            string  `json:"start_date" binding:"required,isodate" example:"2024-01-31"`
	EndDate              *string `json:"end_date" binding:"omitempty,isodate"`
	FlagRemarks          *string `json:"flag_remarks"`
}

// UpdateFlagRequest partially updates a flag; enum values are checked by the service
type UpdateFlagRequest struct {
	FlagType             *string `json:"flag_type"`
	AdminFlagInfo        *string `json:"admin_flag_info"`
	UnitPositionFlagInfo *string `json:"unit_position_flag_info"`
	TaskingFlagInfo      *string `json:"tasking_flag_info"`
	ProfileFlagInfo      *string `json:"profile_flag_info"`
	MxAvailability       *string `json:"mx_availability"`
	StartDate            *string `json:"start_date" binding:"omitempty,isodate"`
	EndDate              *string `json:"end_date" binding:"omitempty,isodate"`
	FlagRemarks          *string `json:"flag_remarks"`
}

// FlagView is a flag with display names resolved
type FlagView struct {
	models.SoldierFlag
	SoldierName   *string `json:"soldier_name,omitempty"`
	UnitShortName *string `json:"unit_short_name,omitempty"`
	Active        bool    `json:"active"`
}

// SoldierFlagsResponse splits flags by what they are attached to
type SoldierFlagsResponse struct {
	IndividualFlags   []FlagView       `json:"individual_flags"`
	UnitFlags         []FlagView       `json:"unit_flags"`
	UnitFlagPersonnel []SoldierSummary `json:"unit_flag_personnel"`
}
