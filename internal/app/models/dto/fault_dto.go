package dto

import "time"

// MaintainerView is a soldier credited on a fault action
type MaintainerView struct {
	SoldierID   string  `json:"soldier_id"`
	NameAndRank string  `json:"name_and_rank" example:"SGT Jane Doe"`
	ManHours    float64 `json:"man_hours" example:"0.1"`
}

// FaultView is a fault with its codes labeled
type FaultView struct {
	ID                     string     `json:"id"`
	Aircraft               string     `json:"aircraft"`
	UnitUIC                *string    `json:"unit_uic"`
	DiscoveredBy           string     `json:"discovered_by"`
	DiscoveredByID         *string    `json:"discovered_by_id"`
	StatusCode             string     `json:"status_code"`
	StatusLabel            string     `json:"status_label"`
	SystemCode             string     `json:"system_code"`
	SystemLabel            string     `json:"system_label"`
	WhenDiscoveredCode     string     `json:"when_discovered_code"`
	WhenDiscoveredLabel    string     `json:"when_discovered_label"`
	HowRecognizedCode      string     `json:"how_recognized_code"`
	HowRecognizedLabel     string     `json:"how_recognized_label"`
	MalfunctionEffectCode  string     `json:"malfunction_effect_code"`
	MalfunctionEffectLabel string     `json:"malfunction_effect_label"`
	FailureCode            string     `json:"failure_code"`
	FailureLabel           string     `json:"failure_label"`
	CorrectiveActionCode   string     `json:"corrective_action_code"`
	CorrectiveActionLabel  string     `json:"corrective_action_label"`
	MaintenanceLevelCode   string     `json:"maintenance_level_code"`
	MaintenanceLevelLabel  string     `json:"maintenance_level_label"`
	DiscoveryDateTime      time.Time  `json:"discovery_date_time"`
	CorrectiveDateTime     *time.Time `json:"corrective_date_time"`
	Status                 string     `json:"status" example:"0"`
	Remarks                *string    `json:"remarks"`
	MaintenanceDelay       *string    `json:"maintenance_delay"`
	FaultWorkUnitCode      string     `json:"fault_work_unit_code"`
	TotalManHours          float64    `json:"total_man_hours"`
	Source                 string     `json:"source"`
	SourceLabel            string     `json:"source_label"`
}

// ActionView is a fault action with its codes labeled and maintainers attached
type ActionView struct {
	ID                    string           `json:"id"`
	FaultID               string           `json:"fault_id"`
	DiscoveryDateTime     *time.Time       `json:"discovery_date_time"`
	ClosedDateTime        *time.Time       `json:"closed_date_time"`
	ClosedBy              string           `json:"closed_by"`
	TechnicalInspector    string           `json:"technical_inspector"`
	MaintenanceAction     *string          `json:"maintenance_action"`
	CorrectiveAction      *string          `json:"corrective_action"`
	StatusCode            string           `json:"status_code"`
	StatusLabel           string           `json:"status_label"`
	FaultWorkUnitCode     string           `json:"fault_work_unit_code"`
	MaintenanceLevelCode  string           `json:"maintenance_level_code"`
	MaintenanceLevelLabel string           `json:"maintenance_level_label"`
	ActionCode            string           `json:"corrective_action_code"`
	ActionLabel           string           `json:"corrective_action_label"`
	SequenceNumber        int              `json:"sequence_number"`
	Source                string           `json:"source"`
	Maintainers           []MaintainerView `json:"maintainers"`
	TotalManHours         float64          `json:"total_man_hours"`
}

// FaultDetailResponse is a fault with its ordered actions
type FaultDetailResponse struct {
	Fault        FaultView    `json:"fault"`
	FaultActions []ActionView `json:"fault_actions"`
}

// SoldierFaultHistoryRow is one action a soldier took part in
type SoldierFaultHistoryRow struct {
	FaultID           string     `json:"fault_id"`
	FaultActionID     string     `json:"fault_action_id"`
	Role              string     `json:"role" example:"Maintainer"`
	Aircraft          string     `json:"aircraft"`
	FaultWorkUnitCode string     `json:"fault_work_unit_code"`
	DiscoveryDateTime *time.Time `json:"discovery_date_time"`
	MaintenanceAction *string    `json:"maintenance_action"`
	ManHours          *float64   `json:"man_hours"`
}

// MaintainerFaultsResponse lists faults a soldier maintained in a window
type MaintainerFaultsResponse struct {
	Faults       []FaultView  `json:"faults"`
	FaultActions []ActionView `json:"fault_actions"`
}
