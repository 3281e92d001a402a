package models

import (
	"strings"
	"time"
)

// Unit components
const (
	CompoActive    = "Active"
	CompoGuard     = "Guard"
	CompoReserve   = "Reserve"
	CompoTaskForce = "TF"
)

// Echelon that marks a state headquarters
const EchelonState = "STATE"

// TaskForcePrefix starts every generated task force UIC
const TaskForcePrefix = "TF"

// LogicalClockUnit is the logical clock model bumped by hierarchy writes
const LogicalClockUnit = "Unit"

// DefaultUnitStartDate is used when a unit is created without a start date
var DefaultUnitStartDate = time.Date(1775, time.July, 14, 0, 0, 0, 0, time.UTC)

// Unit is an organization in the force structure. The parent, child and
// subordinate lists are derived from ParentUIC links.
type Unit struct {
	UIC             string     `json:"uic"`
	ShortName       string     `json:"short_name"`
	DisplayName     string     `json:"display_name"`
	NickName        *string    `json:"nick_name,omitempty"`
	Echelon         string     `json:"echelon"`
	Compo           string     `json:"compo"`
	State           *string    `json:"state,omitempty"`
	ParentUIC       *string    `json:"parent_uic"`
	ParentUICs      []string   `json:"parent_uics"`
	ChildUICs       []string   `json:"child_uics"`
	SubordinateUICs []string   `json:"subordinate_uics"`
	Level           int        `json:"level"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	AsOfLogicalTime int64      `json:"as_of_logical_time"`
}

// SubordinateUnitHierarchy returns the subordinate uics, optionally led by the unit itself
func (u *Unit) SubordinateUnitHierarchy(includeSelf bool) []string {
	out := make([]string, 0, len(u.SubordinateUICs)+1)
	if includeSelf {
		out = append(out, u.UIC)
	}
	return append(out, u.SubordinateUICs...)
}

// IsTaskForce reports whether the unit is a generated task force
func (u *Unit) IsTaskForce() bool {
	return strings.HasPrefix(u.UIC, TaskForcePrefix)
}

// UnitSummary is the compact unit shape used in nested responses
type UnitSummary struct {
	UIC         string  `json:"uic"`
	ShortName   string  `json:"short_name"`
	DisplayName string  `json:"display_name"`
	Echelon     string  `json:"echelon"`
	ParentUIC   *string `json:"parent_uic"`
	Level       int     `json:"level"`
}

// Summary converts a unit to its compact shape
func (u *Unit) Summary() UnitSummary {
	return UnitSummary{
		UIC:         u.UIC,
		ShortName:   u.ShortName,
		DisplayName: u.DisplayName,
		Echelon:     u.Echelon,
		ParentUIC:   u.ParentUIC,
		Level:       u.Level,
	}
}
