package models

import "time"

// Fault status values
const (
	FaultOpen   = "0"
	FaultClosed = "1"
)

// Fault is a DA 2408-13-1 fault record
type Fault struct {
	ID                   string     `json:"id" db:"id"`
	Aircraft             string     `json:"aircraft" db:"aircraft"`
	UnitUIC              *string    `json:"unit" db:"unit_uic"`
	DiscoveredByName     *string    `json:"discovered_by_name" db:"discovered_by_name"`
	DiscoveredByID       *string    `json:"discovered_by_dodid" db:"discovered_by_id"`
	StatusCode           string     `json:"status_code" db:"status_code"`
	SystemCode           string     `json:"system_code" db:"system_code"`
	WhenDiscoveredCode   string     `json:"when_discovered_code" db:"when_discovered_code"`
	HowRecognizedCode    string     `json:"how_recognized_code" db:"how_recognized_code"`
	MalfunctionEffect    string     `json:"malfunction_effect_code" db:"malfunction_effect_code"`
	FailureCode          string     `json:"failure_code" db:"failure_code"`
	CorrectiveActionCode string     `json:"corrective_action_code" db:"corrective_action_code"`
	MaintenanceLevelCode string     `json:"maintenance_level_code" db:"maintenance_level_code"`
	DiscoveryDateTime    time.Time  `json:"discovery_date_time" db:"discovery_date_time"`
	CorrectiveDateTime   *time.Time `json:"corrective_date_time" db:"corrective_date_time"`
	Status               string     `json:"status" db:"status"`
	Remarks              *string    `json:"remarks" db:"remarks"`
	MaintenanceDelay     *string    `json:"maintenance_delay" db:"maintenance_delay"`
	FaultWorkUnitCode    *string    `json:"fault_work_unit_code" db:"fault_work_unit_code"`
	TotalManHours        float64    `json:"total_man_hours" db:"total_man_hours"`
	Source               string     `json:"source" db:"source"`
}

// FaultAction is a DA 2408-13-2 action against a fault
type FaultAction struct {
	ID                   string     `json:"id" db:"id"`
	FaultID              string     `json:"fault_id" db:"fault_id"`
	DiscoveryDateTime    *time.Time `json:"discovery_date_time" db:"discovery_date_time"`
	ClosedDateTime       *time.Time `json:"closed_date_time" db:"closed_date_time"`
	ClosedByID           *string    `json:"closed_by_id" db:"closed_by_id"`
	MaintenanceAction    *string    `json:"maintenance_action" db:"maintenance_action"`
	CorrectiveAction     *string    `json:"corrective_action" db:"corrective_action"`
	StatusCode           string     `json:"status_code" db:"status_code"`
	FaultWorkUnitCode    *string    `json:"fault_work_unit_code" db:"fault_work_unit_code"`
	TechnicalInspectorID *string    `json:"technical_inspector_id" db:"technical_inspector_id"`
	MaintenanceLevelCode string     `json:"maintenance_level_code" db:"maintenance_level_code"`
	CorrectiveActionCode string     `json:"corrective_action_code" db:"corrective_action_code"`
	SequenceNumber       int        `json:"sequence_number" db:"sequence_number"`
	Source               string     `json:"source" db:"source"`
}

// MaintainerFaultAction links a soldier to the action they worked
type MaintainerFaultAction struct {
	ID            int64   `json:"id" db:"id"`
	FaultActionID string  `json:"fault_action_id" db:"fault_action_id"`
	SoldierID     string  `json:"soldier_id" db:"soldier_id"`
	ManHours      float64 `json:"man_hours" db:"man_hours"`
}

// Default hours for a maintainer link arriving without hours
const DefaultMaintainerManHours = 0.1

// Fault roles of a soldier, highest priority first
const (
	FaultRoleMaintainer = "Maintainer"
	FaultRoleInspector  = "Inspector"
	FaultRoleCloser     = "Closer"
	FaultRoleReporter   = "Reporter"
)

// FaultRolePriority orders fault roles, lower wins
var FaultRolePriority = map[string]int{
	FaultRoleMaintainer: 0,
	FaultRoleInspector:  1,
	FaultRoleCloser:     2,
	FaultRoleReporter:   3,
}

// RawFault is a row of raw_amap_faults in the staging database
type RawFault struct {
	ID                        string
	SerialNumber              string
	UIC                       *string
	FaultDiscoveredBy         *string
	EDIPI                     *string
	StatusCodeValue           *string
	SystemCodeValue           *string
	WhenDiscoveredCodeValue   *string
	HowRecognizedCodeValue    *string
	MalfunctionEffectValue    *string
	FailureCodeValue          *string
	CorrectiveActionCodeValue *string
	MaintenanceLevelCodeValue *string
	DiscoveryDateTime         time.Time
	CorrectiveDateTime        *time.Time
	Status                    *float64
	Remarks                   *string
	MaintenanceDelay          *string
	FaultWorkUnitCode         *string
	TotalManHours             *string
	Source                    *string
	SyncTimestamp             time.Time
}

// RawFaultAction is a row of raw_amap_fault_actions in the staging database
type RawFaultAction struct {
	ID                        string
	FaultID                   string
	DiscoveryDateTime         *time.Time
	ClosedDateTime            *time.Time
	ClosedByDoDID             *string
	MaintenanceAction         *string
	CorrectiveAction          *string
	StatusCodeValue           *string
	FaultWorkUnitCode         *string
	TechnicalInspectorDoDID   *string
	MaintenanceLevelCodeValue *string
	ActionCodeValue           *string
	SequenceNumber            *float64
	PersonnelDoDID            *string
	ManHours                  *float64
	Source                    *string
	SyncTimestamp             time.Time
}
