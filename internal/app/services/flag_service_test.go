package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
)

func newFlagService(w *world, today string) FlagService {
	svc := NewFlagService(w.flags, w.soldiers, w.units, w.authz, testLogger)
	svc.(*flagServiceImpl).now = fixedNow(today)
	return svc
}

func TestCreateFlagClearsOtherInfo(t *testing.T) {
	w := newWorld()
	svc := newFlagService(w, "2024-03-01")

	flag, err := svc.CreateFlag(context.Background(), managerID, &dto.CreateFlagRequest{
		SoldierID:       strp(memberID),
		FlagType:        "Administrative",
		AdminFlagInfo:   strp("Leave"),
		TaskingFlagInfo: strp("Detail"),
		MxAvailability:  "Unavailable",
		StartDate:       "2024-02-20",
		EndDate:         strp("2024-03-10"),
	})
	if err != nil {
		t.Fatalf("CreateFlag: %v", err)
	}
	if flag.TaskingFlagInfo != nil {
		t.Errorf("tasking info should be cleared on an administrative flag")
	}
	if flag.CreatedBy == nil || *flag.CreatedBy != managerID {
		t.Errorf("created_by = %v", flag.CreatedBy)
	}
}

func TestCreateFlagPrefersSoldier(t *testing.T) {
	w := newWorld()
	svc := newFlagService(w, "2024-03-01")

	flag, err := svc.CreateFlag(context.Background(), managerID, &dto.CreateFlagRequest{
		SoldierID:      strp(memberID),
		UnitUIC:        strp("WZZZZ0"),
		FlagType:       "Other",
		MxAvailability: "Limited",
		StartDate:      "2024-02-20",
	})
	if err != nil {
		t.Fatalf("CreateFlag: %v", err)
	}
	if flag.SoldierID == nil || *flag.SoldierID != memberID || flag.UnitUIC != nil {
		t.Errorf("flag soldier %v unit %v, want soldier only", flag.SoldierID, flag.UnitUIC)
	}
}

func TestCreateFlagValidation(t *testing.T) {
	w := newWorld()
	svc := newFlagService(w, "2024-03-01")
	ctx := context.Background()

	tests := []struct {
		name string
		req  dto.CreateFlagRequest
		want error
	}{
		{
			name: "no target",
			req:  dto.CreateFlagRequest{FlagType: "Other", MxAvailability: "Limited", StartDate: "2024-01-01"},
			want: apperrors.ErrBadRequest,
		},
		{
			name: "bad info option",
			req:  dto.CreateFlagRequest{SoldierID: strp(memberID), FlagType: "Profile", ProfileFlagInfo: strp("Forever"), MxAvailability: "Limited", StartDate: "2024-01-01"},
			want: apperrors.ErrValidationFailed,
		},
		{
			name: "end before start",
			req:  dto.CreateFlagRequest{SoldierID: strp(memberID), FlagType: "Other", MxAvailability: "Limited", StartDate: "2024-02-01", EndDate: strp("2024-01-01")},
			want: apperrors.ErrValidationFailed,
		},
		{
			name: "soldier outside managed units",
			req:  dto.CreateFlagRequest{SoldierID: strp(outsiderID), FlagType: "Other", MxAvailability: "Limited", StartDate: "2024-01-01"},
			want: apperrors.ErrUnauthorized,
		},
		{
			name: "unknown unit",
			req:  dto.CreateFlagRequest{UnitUIC: strp("WZZZZ0"), FlagType: "Unit/Position", MxAvailability: "Limited", StartDate: "2024-01-01"},
			want: apperrors.ErrResourceNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateFlag(ctx, managerID, &tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUnitFlagKeepsOnlyPositionInfo(t *testing.T) {
	w := newWorld()
	svc := newFlagService(w, "2024-03-01")

	flag, err := svc.CreateFlag(context.Background(), managerID, &dto.CreateFlagRequest{
		UnitUIC:              strp("WCCCC0"),
		FlagType:             "Unit/Position",
		AdminFlagInfo:        strp("Leave"),
		UnitPositionFlagInfo: strp("Deployment"),
		MxAvailability:       "Unavailable",
		StartDate:            "2024-01-01",
	})
	if err != nil {
		t.Fatalf("CreateFlag: %v", err)
	}
	if flag.AdminFlagInfo != nil || flag.UnitPositionFlagInfo == nil {
		t.Errorf("unexpected info fields %+v", flag)
	}
}

func TestListFlagsAllSplitsUnitFlags(t *testing.T) {
	w := newWorld()
	svc := newFlagService(w, "2024-03-01")
	ctx := context.Background()

	if _, err := svc.CreateFlag(ctx, managerID, &dto.CreateFlagRequest{SoldierID: strp(memberID), FlagType: "Other", MxAvailability: "Limited", StartDate: "2024-01-01"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateFlag(ctx, managerID, &dto.CreateFlagRequest{UnitUIC: strp("WCCCC0"), FlagType: "Unit/Position", UnitPositionFlagInfo: strp("Deployment"), MxAvailability: "Unavailable", StartDate: "2024-04-01"}); err != nil {
		t.Fatal(err)
	}

	resp, err := svc.ListFlags(ctx, managerID, AllFlags)
	if err != nil {
		t.Fatalf("ListFlags: %v", err)
	}
	if len(resp.IndividualFlags) != 1 || len(resp.UnitFlags) != 1 {
		t.Fatalf("individual=%d unit=%d", len(resp.IndividualFlags), len(resp.UnitFlags))
	}
	if !resp.IndividualFlags[0].Active {
		t.Errorf("individual flag should be active")
	}
	if resp.UnitFlags[0].Active {
		t.Errorf("unit flag starts in the future")
	}
	if len(resp.UnitFlagPersonnel) != 1 || resp.UnitFlagPersonnel[0].UserID != memberID {
		t.Errorf("unit flag personnel = %+v", resp.UnitFlagPersonnel)
	}

	// Listing for the soldier includes the unit chain flag as an individual entry.
	mine, err := svc.ListFlags(ctx, memberID, memberID)
	if err != nil {
		t.Fatalf("ListFlags: %v", err)
	}
	if len(mine.IndividualFlags) != 2 || len(mine.UnitFlags) != 0 {
		t.Errorf("individual=%d unit=%d", len(mine.IndividualFlags), len(mine.UnitFlags))
	}
}

func TestUpdateAndDeleteFlag(t *testing.T) {
	w := newWorld()
	svc := newFlagService(w, "2024-03-01")
	ctx := context.Background()

	flag, err := svc.CreateFlag(ctx, managerID, &dto.CreateFlagRequest{SoldierID: strp(memberID), FlagType: "Administrative", AdminFlagInfo: strp("Leave"), MxAvailability: "Limited", StartDate: "2024-01-01"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateFlag(ctx, managerID, flag.ID, &dto.UpdateFlagRequest{FlagType: strp("Bogus")}); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Errorf("bad flag type: %v", err)
	}

	updated, err := svc.UpdateFlag(ctx, managerID, flag.ID, &dto.UpdateFlagRequest{FlagType: strp("Tasking"), TaskingFlagInfo: strp("Guard Duty"), EndDate: strp("2024-02-01")})
	if err != nil {
		t.Fatalf("UpdateFlag: %v", err)
	}
	if updated.FlagType != models.FlagTasking || updated.AdminFlagInfo != nil {
		t.Errorf("updated = %+v", updated)
	}
	if updated.EndDate == nil || !updated.EndDate.Equal(day("2024-02-01")) {
		t.Errorf("end date = %v", updated.EndDate)
	}

	if _, err := svc.DeleteFlag(ctx, outsiderID, flag.ID); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("outsider delete: %v", err)
	}
	msg, err := svc.DeleteFlag(ctx, managerID, flag.ID)
	if err != nil {
		t.Fatalf("DeleteFlag: %v", err)
	}
	want := "Soldier Flag (1) removed from User's view."
	if msg != want {
		t.Errorf("message = %q, want %q", msg, want)
	}
	if _, err := svc.UpdateFlag(ctx, managerID, flag.ID, &dto.UpdateFlagRequest{}); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Errorf("deleted flag should be gone: %v", err)
	}
}
