package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/events"
)

func newUnitService(w *world) UnitService {
	rebuilder := NewHierarchyRebuilder(w.units, &fakeClock{}, w.publisher, testLogger)
	return NewUnitService(w.tx, w.units, w.soldiers, rebuilder, w.authz, testLogger)
}

func TestGetHierarchy(t *testing.T) {
	w := newWorld()
	svc := newUnitService(w)

	resp, err := svc.GetHierarchy(context.Background(), managerID, "WBBBB0")
	if err != nil {
		t.Fatalf("GetHierarchy: %v", err)
	}
	if resp.Parent == nil || resp.Parent.UIC != "WAAAA0" || resp.Target.UIC != "WBBBB0" {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Children) != 1 || resp.Children[0].UIC != "WCCCC0" {
		t.Errorf("children = %+v", resp.Children)
	}

	if _, err := svc.GetHierarchy(context.Background(), outsiderID, "WBBBB0"); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("outsider: %v", err)
	}
}

func TestCreateTaskForce(t *testing.T) {
	w := newWorld()
	svc := newUnitService(w)
	ctx := context.Background()

	tf, err := svc.CreateTaskForce(ctx, managerID, &dto.CreateTaskForceRequest{ShortName: " TF EAGLE ", DisplayName: "Task Force Eagle", Echelon: "bn", ParentUIC: strp("WBBBB0")})
	if err != nil {
		t.Fatalf("CreateTaskForce: %v", err)
	}
	if !strings.HasPrefix(tf.UIC, models.TaskForcePrefix) || len(tf.UIC) != 9 {
		t.Errorf("uic = %q", tf.UIC)
	}
	if tf.Compo != models.CompoTaskForce || tf.ShortName != "TF EAGLE" || tf.Echelon != "BN" {
		t.Errorf("task force = %+v", tf)
	}
	if !reflect.DeepEqual(tf.ParentUICs, []string{"WBBBB0", "WAAAA0"}) || tf.Level != 2 || tf.AsOfLogicalTime != 1 {
		t.Errorf("lineage = %v level %d time %d", tf.ParentUICs, tf.Level, tf.AsOfLogicalTime)
	}
	if parent := w.units.units["WBBBB0"]; !reflect.DeepEqual(parent.ChildUICs, []string{"WCCCC0", tf.UIC}) && !reflect.DeepEqual(parent.ChildUICs, []string{tf.UIC, "WCCCC0"}) {
		t.Errorf("parent children = %v", parent.ChildUICs)
	}
	if keys := w.publisher.keys(); len(keys) != 1 || keys[0] != events.UnitHierarchyUpdated {
		t.Errorf("published %v", keys)
	}

	listed, err := svc.ListTaskForces(ctx, 1, 20)
	if err != nil {
		t.Fatalf("ListTaskForces: %v", err)
	}
	if items := listed.Items.([]*models.Unit); len(items) != 1 || items[0].UIC != tf.UIC {
		t.Errorf("task forces = %+v", listed.Items)
	}
}

func TestCreateTaskForceRights(t *testing.T) {
	w := newWorld()
	svc := newUnitService(w)
	ctx := context.Background()

	tests := []struct {
		name   string
		parent *string
		want   error
	}{
		{"parent outside managed units", strp("WBBBB0"), apperrors.ErrUnauthorized},
		{"no managed units", nil, apperrors.ErrUnauthorized},
		{"unknown parent", strp("WZZZZ0"), apperrors.ErrResourceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTaskForce(ctx, outsiderID, &dto.CreateTaskForceRequest{ShortName: "TF", DisplayName: "TF", ParentUIC: tt.parent})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if len(w.units.units) != 5 {
		t.Errorf("rejected task forces were created")
	}
}

func TestUpdateUnitReparent(t *testing.T) {
	w := newWorld()
	svc := newUnitService(w)
	ctx := context.Background()

	_, err := svc.UpdateUnit(ctx, adminID, "WBBBB0", &dto.UpdateUnitRequest{ParentUIC: strp("WCCCC0")})
	if msg, _ := apperrors.MessageOf(err); !errors.Is(err, apperrors.ErrBadRequest) || msg != "A unit cannot be placed under itself or one of its subordinates." {
		t.Errorf("cycle: %v", err)
	}
	if _, err := svc.UpdateUnit(ctx, adminID, "WBBBB0", &dto.UpdateUnitRequest{ParentUIC: strp("WZZZZ0")}); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Errorf("unknown parent: %v", err)
	}
	if _, err := svc.UpdateUnit(ctx, outsiderID, "WCCCC0", &dto.UpdateUnitRequest{ShortName: strp("X")}); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("outsider: %v", err)
	}
	if len(w.publisher.keys()) != 0 {
		t.Fatalf("failed updates published %v", w.publisher.keys())
	}

	moved, err := svc.UpdateUnit(ctx, adminID, "WCCCC0", &dto.UpdateUnitRequest{ParentUIC: strp("WDDDD0")})
	if err != nil {
		t.Fatalf("UpdateUnit: %v", err)
	}
	if !reflect.DeepEqual(moved.ParentUICs, []string{"WDDDD0", "WAAAA0"}) || *moved.ParentUIC != "WDDDD0" {
		t.Errorf("moved = %+v", moved)
	}
	if old := w.units.units["WBBBB0"]; len(old.ChildUICs) != 0 || len(old.SubordinateUICs) != 0 {
		t.Errorf("old parent = %+v", old)
	}
	if w.units.units["WAAAA0"].AsOfLogicalTime != 0 {
		t.Errorf("unchanged root should keep its logical time")
	}
	if keys := w.publisher.keys(); len(keys) != 1 {
		t.Errorf("published %v", keys)
	}
	payload := w.publisher.events[0].payload.(map[string]interface{})
	if !reflect.DeepEqual(payload["uics"], []string{"WBBBB0", "WCCCC0", "WDDDD0"}) {
		t.Errorf("changed = %v", payload["uics"])
	}
}

func TestUpdateUnitDates(t *testing.T) {
	w := newWorld()
	svc := newUnitService(w)

	_, err := svc.UpdateUnit(context.Background(), managerID, "WCCCC0", &dto.UpdateUnitRequest{StartDate: strp("2024-02-01"), EndDate: strp("2024-01-01")})
	if !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Errorf("end before start: %v", err)
	}
	updated, err := svc.UpdateUnit(context.Background(), managerID, "WCCCC0", &dto.UpdateUnitRequest{DisplayName: strp(" Alpha Company "), EndDate: strp("")})
	if err != nil {
		t.Fatalf("UpdateUnit: %v", err)
	}
	if updated.DisplayName != "Alpha Company" || updated.EndDate != nil {
		t.Errorf("updated = %+v", updated)
	}
}

func TestRebuildHierarchyIsIdempotent(t *testing.T) {
	w := newWorld()
	changed, err := newUnitService(w).RebuildHierarchy(context.Background())
	if err != nil {
		t.Fatalf("RebuildHierarchy: %v", err)
	}
	if len(changed) != 0 || len(w.publisher.keys()) != 0 {
		t.Errorf("changed = %v, published %v", changed, w.publisher.keys())
	}
}

func TestUnitSoldiers(t *testing.T) {
	w := newWorld()
	svc := newUnitService(w)
	ctx := context.Background()

	_, err := svc.UnitSoldiers(ctx, managerID, nil)
	if msg, _ := apperrors.MessageOf(err); msg != "At least one uic is required." {
		t.Errorf("no uics: %v", err)
	}

	resp, err := svc.UnitSoldiers(ctx, managerID, []string{"WCCCC0"})
	if err != nil {
		t.Fatalf("UnitSoldiers: %v", err)
	}
	if len(resp) != 1 || len(resp[0].Soldiers) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if s := resp[0].Soldiers[0]; s.UserID != memberID || !s.IsAMTPMaintainer {
		t.Errorf("soldier = %+v", s)
	}

	if _, err := svc.UnitSoldiers(ctx, managerID, []string{"WDDDD0"}); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("unmanaged unit: %v", err)
	}
}

func TestListUnits(t *testing.T) {
	tests := []struct {
		name      string
		requester string
		req       dto.UnitListRequest
		want      []string
		wantErr   error
	}{
		{
			name:      "top level scope",
			requester: memberID,
			req:       dto.UnitListRequest{TopLevelUIC: "WBBBB0"},
			want:      []string{"WBBBB0", "WCCCC0"},
		},
		{
			name:      "role filter without matching roles",
			requester: memberID,
			req:       dto.UnitListRequest{Role: "Manager"},
			want:      []string{},
		},
		{
			name:      "role filter",
			requester: managerID,
			req:       dto.UnitListRequest{Role: "Manager"},
			want:      []string{"WBBBB0", "WCCCC0"},
		},
		{
			name:      "role intersected with top level",
			requester: managerID,
			req:       dto.UnitListRequest{Role: "Manager", TopLevelUIC: "WAAAA0"},
			want:      []string{"WBBBB0", "WCCCC0"},
		},
		{
			name:      "role outside top level",
			requester: viewerID,
			req:       dto.UnitListRequest{Role: "Viewer", TopLevelUIC: "WBBBB0"},
			want:      []string{},
		},
		{
			name:      "unknown top level unit",
			requester: managerID,
			req:       dto.UnitListRequest{TopLevelUIC: "WZZZZ0"},
			wantErr:   apperrors.ErrResourceNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorld()
			resp, err := newUnitService(w).ListUnits(context.Background(), tt.requester, &tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ListUnits: %v", err)
			}

			got := []string{}
			for _, u := range resp.Items.([]*models.Unit) {
				got = append(got, u.UIC)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("units = %v, want %v", got, tt.want)
			}
			if int(resp.Pagination.TotalItems) != len(tt.want) {
				t.Errorf("total = %d", resp.Pagination.TotalItems)
			}
		})
	}
}

func TestListUnitsPassesFilters(t *testing.T) {
	w := newWorld()
	_, err := newUnitService(w).ListUnits(context.Background(), managerID, &dto.UnitListRequest{
		Echelon: "bn",
		Search:  "  1-  ",
		SortBy:  "short_name",
		Page:    2,
		Size:    5,
	})
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}

	f := w.units.lastFilter
	if f.Echelon != "BN" || f.Search != "1-" || f.SortBy != "short_name" || f.Page != 2 || f.Size != 5 {
		t.Errorf("filter = %+v", f)
	}
	if f.UICs != nil {
		t.Errorf("unscoped list should not restrict uics: %v", f.UICs)
	}
}
