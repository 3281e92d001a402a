package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
)

func newSoldierService(w *world) SoldierService {
	svc := NewSoldierService(w.tx, w.soldiers, w.units, w.roles, w.requests, w.flags, w.events, w.authz, testLogger)
	svc.(*soldierServiceImpl).now = fixedNow("2024-03-01")
	return svc
}

func TestLoginNewUser(t *testing.T) {
	w := newWorld()
	resp, err := newSoldierService(w).Login(context.Background(), "1999999999")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !resp.NewUser || resp.User != nil {
		t.Errorf("resp = %+v", resp)
	}
}

func TestLoginExistingUser(t *testing.T) {
	w := newWorld()
	w.requests.permissions = append(w.requests.permissions, &models.UserRequest{ID: 1, UserID: managerID, UIC: "WDDDD0", AccessLevel: models.AccessViewer})
	w.flags.flags[1] = &models.SoldierFlag{ID: 1, UnitUIC: strp("WAAAA0"), FlagType: models.FlagUnitPosition, MxAvailability: models.Limited, StartDate: day("2024-01-01")}

	resp, err := newSoldierService(w).Login(context.Background(), managerID)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.NewUser || !resp.HasOpenRequests {
		t.Errorf("resp = %+v", resp)
	}
	if !reflect.DeepEqual(resp.UnitRoles.Manager, []string{"WBBBB0", "WCCCC0"}) || len(resp.UnitRoles.Viewer) != 0 {
		t.Errorf("unit roles = %+v", resp.UnitRoles)
	}
	if resp.User.AvailabilityStatus != models.Limited {
		t.Errorf("availability = %s", resp.User.AvailabilityStatus)
	}
	if _, ok := w.soldiers.logins[managerID]; !ok {
		t.Errorf("login not recorded")
	}
}

func TestSoldierDetailsShowsLatestAnnualEvaluation(t *testing.T) {
	w := newWorld()
	g := models.GO
	w.events.events[1] = &models.Event{ID: 1, SoldierID: memberID, Date: day("2023-11-05"), EventType: models.EventTypeEvaluation, EvaluationType: strp(models.EvaluationTypeAnnual), GoNoGo: &g}
	w.events.events[2] = &models.Event{ID: 2, SoldierID: memberID, Date: day("2024-02-05"), EventType: models.EventTypeEvaluation, EvaluationType: strp("Spot"), GoNoGo: &g}
	svc := newSoldierService(w)

	details, err := svc.GetSoldierDetails(context.Background(), managerID, memberID)
	if err != nil {
		t.Fatalf("GetSoldierDetails: %v", err)
	}
	if details.RecentAnnualEvalDate == nil || *details.RecentAnnualEvalDate != "11/05/2023" {
		t.Errorf("annual eval date = %v", details.RecentAnnualEvalDate)
	}
	if details.Display != "SGT Mia Member" || details.AvailabilityStatus != models.Available {
		t.Errorf("details = %+v", details)
	}

	if _, err := svc.GetSoldierDetails(context.Background(), outsiderID, memberID); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("outsider: %v", err)
	}
}

func TestCreateAndUpdateSoldier(t *testing.T) {
	w := newWorld()
	svc := newSoldierService(w)
	ctx := context.Background()

	req := &dto.CreateSoldierRequest{UserID: "2000000001", Rank: " sgt", FirstName: "Nia", LastName: "New", UnitUIC: "WCCCC0", PrimaryMOS: strp("15R")}
	if _, err := svc.CreateSoldier(ctx, memberID, req); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("registering someone else: %v", err)
	}
	created, err := svc.CreateSoldier(ctx, "2000000001", req)
	if err != nil {
		t.Fatalf("CreateSoldier: %v", err)
	}
	if created.Rank != "SGT" || created.Unit.UIC != "WCCCC0" {
		t.Errorf("created = %+v", created)
	}

	tests := []struct {
		name string
		req  dto.UpdateSoldierRequest
		want error
	}{
		{"unknown unit", dto.UpdateSoldierRequest{UnitUIC: strp("WZZZZ0")}, apperrors.ErrBadRequest},
		{"bad birth month", dto.UpdateSoldierRequest{BirthMonth: strp("XYZ")}, apperrors.ErrValidationFailed},
		{"unknown mos", dto.UpdateSoldierRequest{PrimaryMOS: strp("99Z")}, apperrors.ErrResourceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UpdateSoldier(ctx, "2000000001", "2000000001", &tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	updated, err := svc.UpdateSoldier(ctx, "2000000001", "2000000001", &dto.UpdateSoldierRequest{UnitUIC: strp("WDDDD0"), BirthMonth: strp("MAR"), ReceiveEmails: boolp(true)})
	if err != nil {
		t.Fatalf("UpdateSoldier: %v", err)
	}
	if updated.Unit.UIC != "WDDDD0" || *updated.BirthMonth != "MAR" || !updated.ReceiveEmails {
		t.Errorf("updated = %+v", updated)
	}
	if _, err := svc.UpdateSoldier(ctx, managerID, "2000000001", &dto.UpdateSoldierRequest{}); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("updating another profile: %v", err)
	}
}

func TestElevatedRoles(t *testing.T) {
	w := newWorld()
	w.roles.roles = append(w.roles.roles,
		&models.UserRole{ID: 3, UserID: memberID, UnitUIC: "WCCCC0", AccessLevel: models.AccessEvaluator},
		&models.UserRole{ID: 4, UserID: memberID, UnitUIC: "WBBBB0", AccessLevel: models.AccessRecorder},
	)
	resp, err := newSoldierService(w).ElevatedRoles(context.Background(), managerID, memberID)
	if err != nil {
		t.Fatalf("ElevatedRoles: %v", err)
	}
	if !reflect.DeepEqual(resp.Evaluator, []string{"WCCCC0"}) || !reflect.DeepEqual(resp.Recorder, []string{"WBBBB0"}) || len(resp.Manager) != 0 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestUpdateSoldierAdditionalMOS(t *testing.T) {
	w := newWorld()
	svc := newSoldierService(w)
	ctx := context.Background()

	updated, err := svc.UpdateSoldier(ctx, memberID, memberID, &dto.UpdateSoldierRequest{
		AdditionalMOS: &[]string{" 15t", "15B", "15T", ""},
	})
	if err != nil {
		t.Fatalf("UpdateSoldier: %v", err)
	}
	if !reflect.DeepEqual(updated.AdditionalMOS, []string{"15B", "15T"}) {
		t.Errorf("additional = %v", updated.AdditionalMOS)
	}
	if w.tx.calls != 1 {
		t.Errorf("transactions = %d", w.tx.calls)
	}

	if _, err := svc.UpdateSoldier(ctx, memberID, memberID, &dto.UpdateSoldierRequest{AdditionalMOS: &[]string{"15B", "99Z"}}); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("unknown additional mos: %v", err)
	}
	if got := w.soldiers.additional[memberID]; !reflect.DeepEqual(got, []string{"15B", "15T"}) {
		t.Errorf("rejected update changed additional mos: %v", got)
	}

	// omitted list leaves the codes alone, an empty list clears them
	if _, err := svc.UpdateSoldier(ctx, memberID, memberID, &dto.UpdateSoldierRequest{FirstName: strp("Mia")}); err != nil {
		t.Fatalf("UpdateSoldier: %v", err)
	}
	if got := w.soldiers.additional[memberID]; len(got) != 2 {
		t.Errorf("additional after unrelated update = %v", got)
	}
	cleared, err := svc.UpdateSoldier(ctx, memberID, memberID, &dto.UpdateSoldierRequest{AdditionalMOS: &[]string{}})
	if err != nil {
		t.Fatalf("UpdateSoldier: %v", err)
	}
	if len(cleared.AdditionalMOS) != 0 {
		t.Errorf("additional after clear = %v", cleared.AdditionalMOS)
	}
}
