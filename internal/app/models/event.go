package models

import "time"

// Lookup is a typed row of one of the form lookup tables
type Lookup struct {
	Type        string  `json:"type" db:"type"`
	Description *string `json:"description" db:"description"`
}

// TCSLocation is a training center location
type TCSLocation struct {
	Abbreviation string  `json:"abbreviation" db:"abbreviation"`
	Location     *string `json:"location" db:"location"`
}

// Task is a task that can be graded on an event
type Task struct {
	TaskNumber string `json:"task_number" db:"task_number"`
	TaskTitle  string `json:"task_title" db:"task_title"`
}

// Lookup tables
const (
	LookupAwardTypes      = "award_types"
	LookupEventTypes      = "event_types"
	LookupTrainingTypes   = "training_types"
	LookupEvaluationTypes = "evaluation_types"
)

// Event types with special handling
const (
	EventTypeEvaluation     = "Evaluation"
	EventTypePCSETS         = "PCS/ETS"
	EventTypeInUnitTransfer = "In-Unit Transfer"
	EvaluationTypeAnnual    = "Annual"
)

// KeepsGainingUnit reports whether an event type records a gaining unit
func KeepsGainingUnit(eventType string) bool {
	return eventType == EventTypePCSETS || eventType == EventTypeInUnitTransfer
}

// GoNoGo is an evaluation or task result
type GoNoGo string

const (
	GO   GoNoGo = "GO"
	NOGO GoNoGo = "NOGO"
	NA   GoNoGo = "NA"
)

// Valid reports whether the result is known
func (g GoNoGo) Valid() bool {
	return g == GO || g == NOGO || g == NA
}

// MaintenanceLevel of a maintainer, ML0 through ML4
type MaintenanceLevel string

// MaintenanceLevels in ascending order
var MaintenanceLevels = []MaintenanceLevel{"ML0", "ML1", "ML2", "ML3", "ML4"}

// Valid reports whether the level is known
func (m MaintenanceLevel) Valid() bool {
	for _, l := range MaintenanceLevels {
		if l == m {
			return true
		}
	}
	return false
}

// Event is a DA 7817 record
type Event struct {
	ID               int64     `json:"id" db:"id"`
	SoldierID        string    `json:"soldier_id" db:"soldier_id"`
	Date             time.Time `json:"date" db:"date"`
	UIC              string    `json:"uic" db:"uic"`
	EventType        string    `json:"event_type" db:"event_type"`
	TrainingType     *string   `json:"training_type" db:"training_type"`
	EvaluationType   *string   `json:"evaluation_type" db:"evaluation_type"`
	AwardType        *string   `json:"award_type" db:"award_type"`
	TCSLocation      *string   `json:"tcs_location" db:"tcs_location"`
	GainingUnit      *string   `json:"gaining_unit" db:"gaining_unit"`
	MOS              *string   `json:"mos" db:"mos"`
	GoNoGo           *GoNoGo   `json:"go_nogo" db:"go_nogo"`
	TotalMxHours     float64   `json:"total_mx_hours" db:"total_mx_hours"`
	Comment          *string   `json:"comment" db:"comment"`
	MaintenanceLevel *string   `json:"maintenance_level" db:"maintenance_level"`
	RecordedBy       *string   `json:"recorded_by" db:"recorded_by"`
	RecordedByLegacy *string   `json:"recorded_by_legacy" db:"recorded_by_legacy"`
	AttachedDA4856   *int64    `json:"attached_da_4856" db:"attached_da_4856"`
	MassEntryKey     *string   `json:"mass_entry_key" db:"mass_entry_key"`
	EventDeleted     bool      `json:"event_deleted" db:"event_deleted"`
}

// EventTask grades one task on an event
type EventTask struct {
	EventID    int64  `json:"event_id" db:"event_id"`
	TaskNumber string `json:"task_number" db:"task_number"`
	TaskTitle  string `json:"task_title" db:"-"`
	GoNoGo     GoNoGo `json:"go_nogo" db:"go_nogo"`
}
