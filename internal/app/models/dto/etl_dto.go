package dto

// FaultETLMessage is returned by a successful fault transform
const FaultETLMessage = "Successfully Transformed New Faults from Vantage."

// FaultETLRequest selects the sync window of a fault transform
type FaultETLRequest struct {
	FilterDate *string `json:"filter_date" form:"filter_date" binding:"omitempty,isodate" example:"2024-01-31"`
}

// FaultETLResult counts what a fault transform did
type FaultETLResult struct {
	Message           string `json:"message"`
	FilterDate        string `json:"filter_date"`
	FaultsCreated     int    `json:"faults_created"`
	FaultsUpdated     int    `json:"faults_updated"`
	ActionsCreated    int    `json:"actions_created"`
	MaintainersLinked int    `json:"maintainers_linked"`
	ActionsSkipped    int    `json:"actions_skipped"`
}

// SoldierETLResult counts what a soldier transform did
type SoldierETLResult struct {
	Message       string `json:"message"`
	Created       int    `json:"created"`
	Updated       int    `json:"updated"`
	MovedFromHold int    `json:"moved_from_transient"`
	Skipped       int    `json:"skipped"`
	UnknownMOS    int    `json:"unknown_mos"`
}

// SkippedRow is an import row that could not be applied
type SkippedRow struct {
	Line   int    `json:"line"`
	UIC    string `json:"uic"`
	Reason string `json:"reason"`
}

// UnitImportResult counts what a unit import did
type UnitImportResult struct {
	Created     int          `json:"created"`
	Updated     int          `json:"updated"`
	Linked      int          `json:"linked"`
	GuardUnits  int64        `json:"guard_units"`
	ReserveUnit int64        `json:"reserve_units"`
	Skipped     []SkippedRow `json:"skipped"`
}
