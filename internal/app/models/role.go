package models

import "time"

// AccessLevel is the elevated role a user holds for a unit
type AccessLevel string

const (
	AccessViewer    AccessLevel = "Viewer"
	AccessRecorder  AccessLevel = "Recorder"
	AccessManager   AccessLevel = "Manager"
	AccessEvaluator AccessLevel = "Evaluator"
)

// AccessLevels in ascending order of privilege
var AccessLevels = []AccessLevel{AccessViewer, AccessRecorder, AccessEvaluator, AccessManager}

// Valid reports whether the level is known
func (a AccessLevel) Valid() bool {
	for _, l := range AccessLevels {
		if l == a {
			return true
		}
	}
	return false
}

// UserRole grants a user an access level on a unit and its subordinates
type UserRole struct {
	ID          int64       `json:"id"`
	UserID      string      `json:"user_id"`
	UnitUIC     string      `json:"unit"`
	AccessLevel AccessLevel `json:"access_level"`
}

// UserRequest asks for an access level on a unit
type UserRequest struct {
	ID          int64       `json:"id"`
	UserID      string      `json:"user_id"`
	UIC         string      `json:"uic"`
	AccessLevel AccessLevel `json:"access_level"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SoldierTransferRequest asks to move a soldier into the gaining unit
type SoldierTransferRequest struct {
	ID          int64     `json:"id"`
	RequesterID string    `json:"requester_id"`
	GainingUIC  string    `json:"gaining_unit"`
	SoldierID   string    `json:"soldier_id"`
	CreatedAt   time.Time `json:"created_at"`
}
