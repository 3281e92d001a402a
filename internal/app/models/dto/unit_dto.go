package dto

import "github.com/ai2c/amap/internal/app/models"

// UnitListRequest holds the query parameters of the unit list
type UnitListRequest struct {
	TopLevelUIC string `form:"top_level_uic" binding:"omitempty,uic"`
	Role        string `form:"role" binding:"omitempty,oneof=Viewer Recorder Manager Evaluator"`
	Echelon     string `form:"echelon"`
	Compo       string `form:"compo"`
	State       string `form:"state"`
	Search      string `form:"search"`
	SortBy      string `form:"sort_by" binding:"omitempty,oneof=uic short_name display_name echelon level"`
	Page        int    `form:"page"`
	Size        int    `form:"size"`
}

// CreateTaskForceRequest creates a task force unit
type CreateTaskForceRequest struct {
	ShortName   string  `json:"short_name" binding:"required,max=64" example:"TF EAGLE"`
	DisplayName string  `json:"display_name" binding:"required,max=128" example:"Task Force Eagle"`
	NickName    *string `json:"nick_name" binding:"omitempty,max=64"`
	Echelon     string  `json:"echelon" binding:"omitempty,max=16" example:"BN"`
	ParentUIC   *string `json:"parent_uic" binding:"omitempty,uic"`
	StartDate   *string `json:"start_date" binding:"omitempty,isodate"`
	EndDate     *string `json:"end_date" binding:"omitempty,isodate"`
}

// UpdateUnitRequest updates unit attributes. An empty parent_uic detaches the unit.
type UpdateUnitRequest struct {
	ShortName   *string `json:"short_name" binding:"omitempty,max=64"`
	DisplayName *string `json:"display_name" binding:"omitempty,max=128"`
	NickName    *string `json:"nick_name" binding:"omitempty,max=64"`
	Echelon     *string `json:"echelon" binding:"omitempty,max=16"`
	Compo       *string `json:"compo" binding:"omitempty,oneof=Active Guard Reserve TF"`
	State       *string `json:"state" binding:"omitempty,max=32"`
	ParentUIC   *string `json:"parent_uic"`
	StartDate   *string `json:"start_date" binding:"omitempty,isodate"`
	EndDate     *string `json:"end_date" binding:"omitempty,isodate"`
}

// UnitHierarchyResponse is a unit with its parent and direct children
type UnitHierarchyResponse struct {
	Parent   *models.UnitSummary  `json:"parent"`
	Target   models.UnitSummary   `json:"target"`
	Children []models.UnitSummary `json:"children"`
}

// SoldierSummary is the compact soldier shape used in nested responses
type SoldierSummary struct {
	UserID           string  `json:"user_id" example:"1234567890"`
	Rank             string  `json:"rank" example:"SGT"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	NameAndRank      string  `json:"name_and_rank" example:"SGT Jane Doe"`
	PrimaryMOS       *string `json:"primary_mos"`
	UnitUIC          string  `json:"unit_uic"`
	IsMaintainer     bool    `json:"is_maintainer"`
	IsAMTPMaintainer bool    `json:"is_amtp_maintainer"`
}

// NewSoldierSummary builds the compact shape of a soldier
func NewSoldierSummary(s *models.Soldier, amtp bool) SoldierSummary {
	return SoldierSummary{
		UserID:           s.UserID,
		Rank:             s.Rank,
		FirstName:        s.FirstName,
		LastName:         s.LastName,
		NameAndRank:      s.NameAndRank(),
		PrimaryMOS:       s.PrimaryMOS,
		UnitUIC:          s.UnitUIC,
		IsMaintainer:     s.IsMaintainer,
		IsAMTPMaintainer: s.IsMaintainer && amtp,
	}
}

// UnitSoldiersResponse is a unit with its assigned soldiers
type UnitSoldiersResponse struct {
	Unit     models.UnitSummary `json:"unit"`
	Soldiers []SoldierSummary   `json:"soldiers"`
}
