package dto

import "github.com/ai2c/amap/internal/pkg/report"

// UnitSummaryResponse is the JSON form of the unit summary report
type UnitSummaryResponse struct {
	UIC     string                  `json:"uic"`
	Columns []string                `json:"columns"`
	Rows    []report.UnitSummaryRow `json:"rows"`
}
