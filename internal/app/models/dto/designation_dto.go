package dto

import "github.com/ai2c/amap/internal/app/models"

// CreateDesignationRequest assigns a designation type to a soldier in a unit
type CreateDesignationRequest struct {
	SoldierID   string  `json:"soldier_id" binding:"required,dodid"`
	UnitUIC     string  `json:"unit_uic" binding:"required,uic"`
	Designation string  `json:"designation" binding:"required,max=64" example:"QC"`
	StartDate   string  `json:"start_date" binding:"required,isodate" example:"2024-01-31"`
	EndDate     *string `json:"end_date" binding:"omitempty,isodate"`
}

// DesignationView is a soldier designation with display names resolved
type DesignationView struct {
	models.SoldierDesignation
	SoldierName   *string `json:"soldier_name,omitempty"`
	UnitShortName *string `json:"unit_short_name,omitempty"`
	Active        bool    `json:"active"`
}

// DesignationResponse reports the outcome of a designation change
type DesignationResponse struct {
	Message       string `json:"message"`
	DesignationID int64  `json:"designation_id"`
}
