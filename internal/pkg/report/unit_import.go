package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrMissingUICColumn is returned when an import has no uic column
var ErrMissingUICColumn = errors.New("import file has no uic column")

// UnitRow is one line of a unit import
type UnitRow struct {
	Line        int
	UIC         string
	ShortName   string
	DisplayName string
	Echelon     string
	ParentUIC   string
}

// ReadUnitRows parses a CSV or XLSX (by file extension) unit import.
// Columns are matched by header name, case-insensitively.
func ReadUnitRows(r io.Reader, filename string) ([]UnitRow, error) {
	var records [][]string

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("invalid excel file: %w", err)
		}
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("excel file has no sheets")
		}
		records, err = f.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
		}
	default:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		var err error
		records, err = cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("invalid csv file: %w", err)
		}
	}

	return mapUnitRecords(records)
}

func mapUnitRecords(records [][]string) ([]UnitRow, error) {
	if len(records) == 0 {
		return nil, ErrMissingUICColumn
	}

	index := make(map[string]int)
	for i, h := range records[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := index["uic"]; !ok {
		return nil, ErrMissingUICColumn
	}

	get := func(rec []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]UnitRow, 0, len(records)-1)
	for n, rec := range records[1:] {
		row := UnitRow{
			Line:        n + 2,
			UIC:         strings.ToUpper(get(rec, "uic")),
			ShortName:   get(rec, "short_name"),
			DisplayName: get(rec, "display_name"),
			Echelon:     strings.ToUpper(get(rec, "echelon")),
			ParentUIC:   strings.ToUpper(get(rec, "parent_uic")),
		}
		if row.UIC == "" && row.ShortName == "" && row.ParentUIC == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
