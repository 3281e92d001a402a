// Package report renders tabular exports (CSV and XLSX) and reads tabular
// unit imports.
package report

import (
	"sort"
	"strconv"
)

// MaintenanceLevels in column order
var MaintenanceLevels = []string{"ML0", "ML1", "ML2", "ML3", "ML4"}

// UnitSummaryHeader is the header row of the unit summary export
var UnitSummaryHeader = []string{"Unit", "Primary MOS", "ML0", "ML1", "ML2", "ML3", "ML4", "Missing Packet", "Total", "Available"}

// SoldierStat is the per soldier input of the unit summary
type SoldierStat struct {
	UnitShortName string
	PrimaryMOS    string
	// ReportingML is empty when the soldier has no evaluated maintenance level
	ReportingML  string
	Availability string
}

// UnitSummaryRow aggregates soldiers of one unit and MOS
type UnitSummaryRow struct {
	Unit          string `json:"unit"`
	PrimaryMOS    string `json:"primary_mos"`
	ML            [5]int `json:"-"`
	ML0           int    `json:"ml0"`
	ML1           int    `json:"ml1"`
	ML2           int    `json:"ml2"`
	ML3           int    `json:"ml3"`
	ML4           int    `json:"ml4"`
	MissingPacket int    `json:"missing_packet"`
	Total         int    `json:"total"`
	Available     int    `json:"available"`
}

// Cells returns the row in header order
func (r UnitSummaryRow) Cells() []string {
	cells := []string{r.Unit, r.PrimaryMOS}
	for _, n := range r.ML {
		cells = append(cells, strconv.Itoa(n))
	}
	return append(cells,
		strconv.Itoa(r.MissingPacket),
		strconv.Itoa(r.Total),
		strconv.Itoa(r.Available),
	)
}

// BuildUnitSummary groups stats by unit and primary MOS, sorted by both
func BuildUnitSummary(stats []SoldierStat) []UnitSummaryRow {
	type key struct{ unit, mos string }
	groups := make(map[key]*UnitSummaryRow)

	for _, s := range stats {
		k := key{s.UnitShortName, s.PrimaryMOS}
		row, ok := groups[k]
		if !ok {
			row = &UnitSummaryRow{Unit: s.UnitShortName, PrimaryMOS: s.PrimaryMOS}
			groups[k] = row
		}

		row.Total++
		if s.Availability == "Available" {
			row.Available++
		}

		idx := mlIndex(s.ReportingML)
		if idx < 0 {
			row.MissingPacket++
			continue
		}
		row.ML[idx]++
	}

	rows := make([]UnitSummaryRow, 0, len(groups))
	for _, row := range groups {
		row.ML0, row.ML1, row.ML2, row.ML3, row.ML4 = row.ML[0], row.ML[1], row.ML[2], row.ML[3], row.ML[4]
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Unit != rows[j].Unit {
			return rows[i].Unit < rows[j].Unit
		}
		return rows[i].PrimaryMOS < rows[j].PrimaryMOS
	})
	return rows
}

func mlIndex(ml string) int {
	for i, level := range MaintenanceLevels {
		if level == ml {
			return i
		}
	}
	return -1
}
