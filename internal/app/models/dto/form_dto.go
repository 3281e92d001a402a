package dto

import "github.com/ai2c/amap/internal/app/models"

// EventTaskRequest grades one task
type EventTaskRequest struct {
	TaskNumber string `json:"number" binding:"required"`
	GoNoGo     string `json:"go_nogo" binding:"required,oneof=GO NOGO NA"`
}

// EventRequest adds a DA 7817 event
type EventRequest struct {
	SoldierID        string             `json:"soldier_id" binding:"required,dodid"`
	Date             string             `json:"date" binding:"required,isodate" example:"2024-01-31"`
	UIC              string             `json:"uic" binding:"required,uic"`
	EventType        string             `json:"event_type" binding:"required" example:"Evaluation"`
	TrainingType     *string            `json:"training_type"`
	EvaluationType   *string            `json:"evaluation_type"`
	AwardType        *string            `json:"award_type"`
	TCSLocation      *string            `json:"tcs_location"`
	GainingUnit      *string            `json:"gaining_unit"`
	MOS              *string            `json:"mos"`
	GoNoGo           *string            `json:"go_nogo" binding:"omitempty,oneof=GO NOGO NA"`
	TotalMxHours     float64            `json:"total_mx_hours" binding:"gte=0"`
	Comment          *string            `json:"comment"`
	MaintenanceLevel *string            `json:"maintenance_level" binding:"omitempty,oneof=ML0 ML1 ML2 ML3 ML4"`
	AttachedDA4856   *int64             `json:"attached_da_4856"`
	Tasks            []EventTaskRequest `json:"event_tasks" binding:"dive"`
}

// UpdateEventRequest partially updates an event. Dates, gaining units and
// hours are checked field by field and reported as partial failures.
type UpdateEventRequest struct {
	Date             *string             `json:"date"`
	UIC              *string             `json:"uic"`
	EventType        *string             `json:"event_type"`
	TrainingType     *string             `json:"training_type"`
	EvaluationType   *string             `json:"evaluation_type"`
	AwardType        *string             `json:"award_type"`
	TCSLocation      *string             `json:"tcs_location"`
	GainingUnit      *string             `json:"gaining_unit"`
	MOS              *string             `json:"mos"`
	GoNoGo           *string             `json:"go_nogo" binding:"omitempty,oneof=GO NOGO NA"`
	TotalMxHours     *float64            `json:"total_mx_hours"`
	Comment          *string             `json:"comment"`
	MaintenanceLevel *string             `json:"maintenance_level" binding:"omitempty,oneof=ML0 ML1 ML2 ML3 ML4"`
	AttachedDA4856   *int64              `json:"attached_da_4856"`
	Tasks            *[]EventTaskRequest `json:"event_tasks"`
}

// EventView is an event as listed for a soldier
type EventView struct {
	models.Event
	Date            string             `json:"date" example:"01/31/2024"`
	RecordedByName  *string            `json:"recorded_by_name"`
	Tasks           []models.EventTask `json:"event_tasks"`
	HasAssociations bool               `json:"has_associations"`
}

// EventSaved is returned after an event is created
type EventSaved struct {
	Message string `json:"message" example:"Da7817 Event Record Saved"`
	ID      int64  `json:"id"`
}

// MassTrainingRequest records one training event for many soldiers
type MassTrainingRequest struct {
	SoldierIDs     []string           `json:"soldier_ids" binding:"required,min=1,dive,dodid"`
	Date           string             `json:"date" binding:"required,isodate"`
	UIC            string             `json:"uic" binding:"required,uic"`
	EventType      string             `json:"event_type" binding:"required"`
	TrainingType   *string            `json:"training_type"`
	EvaluationType *string            `json:"evaluation_type"`
	GoNoGo         *string            `json:"go_nogo" binding:"omitempty,oneof=GO NOGO NA"`
	TotalMxHours   float64            `json:"total_mx_hours" binding:"gte=0"`
	Comment        *string            `json:"comment"`
	Tasks          []EventTaskRequest `json:"event_tasks" binding:"dive"`
}

// MassEntryError reports a soldier the mass entry could not record
type MassEntryError struct {
	SoldierID string `json:"soldier_id"`
	Error     string `json:"error"`
}

// MassTrainingResult summarizes a mass entry
type MassTrainingResult struct {
	MassEntryKey string           `json:"mass_entry_key"`
	SuccessCount int              `json:"success_count"`
	Errors       []MassEntryError `json:"errors"`
}
