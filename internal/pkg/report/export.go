package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// UnitSummarySheet is the worksheet name of the XLSX export
const UnitSummarySheet = "Unit Summary"

// WriteCSV writes the header and rows as CSV
func WriteCSV(w io.Writer, rows []UnitSummaryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(UnitSummaryHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.Cells()); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the header and rows into a single sheet workbook
func WriteXLSX(w io.Writer, rows []UnitSummaryRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), UnitSummarySheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(UnitSummaryHeader))
	for i, h := range UnitSummaryHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(UnitSummarySheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(UnitSummarySheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{row.Unit, row.PrimaryMOS}
		for _, n := range row.ML {
			values = append(values, n)
		}
		values = append(values, row.MissingPacket, row.Total, row.Available)
		if err := f.SetSheetRow(UnitSummarySheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
