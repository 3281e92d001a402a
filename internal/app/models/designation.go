package models

import "time"

// Designation is an additional duty a soldier can hold, e.g. QC inspector
type Designation struct {
	ID          int64   `json:"id" db:"id"`
	Type        string  `json:"type" db:"type"`
	Description *string `json:"description" db:"description"`
}

// SoldierDesignation assigns a designation to a soldier for a date window
type SoldierDesignation struct {
	ID                     int64      `json:"id" db:"id"`
	SoldierID              string     `json:"soldier_id" db:"soldier_id"`
	DesignationID          int64      `json:"designation_id" db:"designation_id"`
	DesignationType        string     `json:"designation_type" db:"type"`
	DesignationDescription *string    `json:"designation_description" db:"description"`
	UnitUIC                *string    `json:"unit_uic" db:"unit_uic"`
	StartDate              time.Time  `json:"start_date" db:"start_date"`
	EndDate                *time.Time `json:"end_date" db:"end_date"`
	CreatedBy              *string    `json:"created_by" db:"created_by"`
	LastModifiedBy         *string    `json:"last_modified_by" db:"last_modified_by"`
	DesignationRemoved     bool       `json:"designation_removed" db:"designation_removed"`
}

// IsActive reports whether today falls inside the designation window. An
// open-ended designation stays active from its start date on.
func (d *SoldierDesignation) IsActive(today time.Time) bool {
	day := truncateDay(today)
	if truncateDay(d.StartDate).After(day) {
		return false
	}
	return d.EndDate == nil || !truncateDay(*d.EndDate).Before(day)
}
