package models

import "time"

// FlagType classifies a soldier flag
type FlagType string

const (
	FlagAdministrative FlagType = "Administrative"
	FlagUnitPosition   FlagType = "Unit/Position"
	FlagTasking        FlagType = "Tasking"
	FlagProfile        FlagType = "Profile"
	FlagOther          FlagType = "Other"
)

// Valid reports whether the flag type is known
func (f FlagType) Valid() bool {
	switch f {
	case FlagAdministrative, FlagUnitPosition, FlagTasking, FlagProfile, FlagOther:
		return true
	}
	return false
}

// MxAvailability is the maintenance availability a flag imposes
type MxAvailability string

const (
	Available   MxAvailability = "Available"
	Limited     MxAvailability = "Limited"
	Unavailable MxAvailability = "Unavailable"
)

// Valid reports whether the availability is known
func (m MxAvailability) Valid() bool {
	return m.severity() >= 0
}

func (m MxAvailability) severity() int {
	switch m {
	case Available:
		return 0
	case Limited:
		return 1
	case Unavailable:
		return 2
	}
	return -1
}

// Worse returns the more restrictive of two availabilities
func (m MxAvailability) Worse(o MxAvailability) MxAvailability {
	if o.severity() > m.severity() {
		return o
	}
	return m
}

// Info values accepted for each flag type
var (
	AdminFlagOptions        = []string{"Leave", "Appointments", "PCS/ETS", "Training", "Other"}
	UnitPositionFlagOptions = []string{"Non-Maintenance Position", "Unit Tasking", "Deployment", "Other"}
	TaskingFlagOptions      = []string{"Detail", "Guard Duty", "Special Duty", "Other"}
	ProfileFlagOptions      = []string{"Temporary", "Permanent"}
)

// ValidFlagInfo reports whether value is accepted for the info field of flag type t
func ValidFlagInfo(t FlagType, value string) bool {
	switch t {
	case FlagAdministrative:
		return contains(AdminFlagOptions, value)
	case FlagUnitPosition:
		return contains(UnitPositionFlagOptions, value)
	case FlagTasking:
		return contains(TaskingFlagOptions, value)
	case FlagProfile:
		return contains(ProfileFlagOptions, value)
	}
	return false
}

// SoldierFlag marks a soldier or a whole unit with reduced availability
type SoldierFlag struct {
	ID                   int64          `json:"id" db:"id"`
	SoldierID            *string        `json:"soldier_id" db:"soldier_id"`
	UnitUIC              *string        `json:"unit_uic" db:"unit_uic"`
	FlagType             FlagType       `json:"flag_type" db:"flag_type"`
	AdminFlagInfo        *string        `json:"admin_flag_info" db:"admin_flag_info"`
	UnitPositionFlagInfo *string        `json:"unit_position_flag_info" db:"unit_position_flag_info"`
	TaskingFlagInfo      *string        `json:"tasking_flag_info" db:"tasking_flag_info"`
	ProfileFlagInfo      *string        `json:"profile_flag_info" db:"profile_flag_info"`
	MxAvailability       MxAvailability `json:"mx_availability" db:"mx_availability"`
	StartDate            time.Time      `json:"start_date" db:"start_date"`
	EndDate              *time.Time     `json:"end_date" db:"end_date"`
	FlagRemarks          *string        `json:"flag_remarks" db:"flag_remarks"`
	LastModifiedBy       *string        `json:"last_modified_by" db:"last_modified_by"`
	CreatedBy            *string        `json:"created_by" db:"created_by"`
	FlagDeleted          bool           `json:"flag_deleted" db:"flag_deleted"`
}

// IsActive reports whether the flag applies on the given day
func (f *SoldierFlag) IsActive(today time.Time) bool {
	if f.FlagDeleted {
		return false
	}
	day := truncateDay(today)
	if truncateDay(f.StartDate).After(day) {
		return false
	}
	return f.EndDate == nil || !truncateDay(*f.EndDate).Before(day)
}

// ClearOtherInfo drops the info fields that do not belong to the flag type
func (f *SoldierFlag) ClearOtherInfo() {
	if f.FlagType != FlagAdministrative {
		f.AdminFlagInfo = nil
	}
	if f.FlagType != FlagUnitPosition {
		f.UnitPositionFlagInfo = nil
	}
	if f.FlagType != FlagTasking {
		f.TaskingFlagInfo = nil
	}
	if f.FlagType != FlagProfile {
		f.ProfileFlagInfo = nil
	}
}

// PrevailingAvailability returns the worst availability among the flags active today
func PrevailingAvailability(flags []*SoldierFlag, today time.Time) MxAvailability {
	status := Available
	for _, f := range flags {
		if f.IsActive(today) {
			status = status.Worse(f.MxAvailability)
		}
	}
	return status
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
