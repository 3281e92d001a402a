package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/pkg/apperrors"
)

func TestUnitSummary(t *testing.T) {
	w := newWorld()
	w.soldiers.soldiers["2000000010"] = &models.Soldier{UserID: "2000000010", Rank: "SPC", UnitUIC: "WCCCC0", PrimaryMOS: strp("15R"), ReportingML: strp("ML2"), IsMaintainer: true}
	w.soldiers.soldiers["2000000011"] = &models.Soldier{UserID: "2000000011", Rank: "SPC", UnitUIC: "WCCCC0", PrimaryMOS: strp("92Y"), IsMaintainer: true}
	w.flags.flags[1] = &models.SoldierFlag{ID: 1, SoldierID: strp("2000000010"), FlagType: models.FlagOther, MxAvailability: models.Limited, StartDate: day("2024-01-01")}
	ended := day("2024-02-01")
	w.flags.flags[2] = &models.SoldierFlag{ID: 2, UnitUIC: strp("WBBBB0"), FlagType: models.FlagUnitPosition, MxAvailability: models.Unavailable, StartDate: day("2024-01-01"), EndDate: &ended}

	svc := NewReportService(w.soldiers, w.units, w.flags, w.authz, testLogger)
	svc.(*reportServiceImpl).now = fixedNow("2024-03-01")

	resp, err := svc.UnitSummary(context.Background(), managerID, "WBBBB0")
	if err != nil {
		t.Fatalf("UnitSummary: %v", err)
	}
	if len(resp.Columns) != 10 || resp.Columns[0] != "Unit" {
		t.Errorf("columns = %v", resp.Columns)
	}
	if len(resp.Rows) != 1 {
		t.Fatalf("rows = %+v", resp.Rows)
	}
	row := resp.Rows[0]
	if row.Unit != "A-CO" || row.PrimaryMOS != "15R" || row.ML2 != 1 || row.MissingPacket != 1 || row.Total != 2 || row.Available != 1 {
		t.Errorf("row = %+v", row)
	}

	// An active unit flag on a parent makes everyone below unavailable.
	w.flags.flags[2].EndDate = nil
	resp, _ = svc.UnitSummary(context.Background(), managerID, "WBBBB0")
	if resp.Rows[0].Available != 0 {
		t.Errorf("available = %d", resp.Rows[0].Available)
	}

	if _, err := svc.UnitSummary(context.Background(), outsiderID, "WBBBB0"); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("outsider: %v", err)
	}
}
