package auth

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/pkg/apperrors"
)

type fakeSoldiers map[string]*models.Soldier

func (f fakeSoldiers) GetByID(_ context.Context, id string) (*models.Soldier, error) {
	if s, ok := f[id]; ok {
		return s, nil
	}
	return nil, apperrors.NewResourceNotFoundError(apperrors.MsgSoldierNotFound)
}

type fakeRoles map[string][]*models.UserRole

func (f fakeRoles) ListByUser(_ context.Context, id string) ([]*models.UserRole, error) {
	return f[id], nil
}

type fakeUnits map[string]*models.Unit

func (f fakeUnits) GetByUIC(_ context.Context, uic string) (*models.Unit, error) {
	if u, ok := f[uic]; ok {
		return u, nil
	}
	return nil, apperrors.NewResourceNotFoundError(apperrors.MsgUnitNotFound)
}

func (f fakeUnits) GetMany(_ context.Context, uics []string) ([]*models.Unit, error) {
	var out []*models.Unit
	for _, uic := range uics {
		if u, ok := f[uic]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f fakeUnits) AllUICs(context.Context) ([]string, error) {
	return []string{"BDE", "BN1", "BN2", "CO1"}, nil
}

func fixture() *AuthorizationService {
	units := fakeUnits{
		"BDE": {UIC: "BDE", SubordinateUICs: []string{"BN1", "BN2", "CO1"}},
		"BN1": {UIC: "BN1", ParentUICs: []string{"BDE"}, SubordinateUICs: []string{"CO1"}},
		"BN2": {UIC: "BN2", ParentUICs: []string{"BDE"}},
		"CO1": {UIC: "CO1", ParentUICs: []string{"BN1", "BDE"}},
	}
	soldiers := fakeSoldiers{
		"1000000001": {UserID: "1000000001", IsAdmin: true, UnitUIC: "BDE"},
		"1000000002": {UserID: "1000000002", UnitUIC: "BN1"},
		"1000000003": {UserID: "1000000003", UnitUIC: "CO1"},
		"1000000004": {UserID: "1000000004", UnitUIC: "BN2"},
	}
	roles := fakeRoles{
		"1000000002": {
			{UserID: "1000000002", UnitUIC: "BN1", AccessLevel: models.AccessManager},
			{UserID: "1000000002", UnitUIC: "BN2", AccessLevel: models.AccessViewer},
		},
	}
	return NewAuthorizationService(soldiers, roles, units)
}

func TestHasRoleForUnit(t *testing.T) {
	authz := fixture()
	ctx := context.Background()
	units := authz.units.(fakeUnits)

	tests := []struct {
		name   string
		user   string
		uic    string
		levels []models.AccessLevel
		want   bool
	}{
		{"admin sees everything", "1000000001", "CO1", nil, true},
		{"role on ancestor covers subordinate", "1000000002", "CO1", nil, true},
		{"role does not cover parent", "1000000002", "BDE", nil, false},
		{"level filter matches", "1000000002", "CO1", []models.AccessLevel{models.AccessManager}, true},
		{"level filter rejects viewer", "1000000002", "BN2", []models.AccessLevel{models.AccessManager}, false},
		{"no roles", "1000000003", "CO1", nil, false},
		{"unknown user", "9999999999", "CO1", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authz.HasRoleForUnit(ctx, tt.user, units[tt.uic], tt.levels...)
			if err != nil {
				t.Fatalf("HasRoleForUnit: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManagedUnits(t *testing.T) {
	authz := fixture()
	ctx := context.Background()

	got, err := authz.ManagedUnits(ctx, "1000000002")
	if err != nil {
		t.Fatalf("ManagedUnits: %v", err)
	}
	if want := []string{"BN1", "CO1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("managed = %v, want %v", got, want)
	}

	all, err := authz.ManagedUnits(ctx, "1000000001")
	if err != nil {
		t.Fatalf("ManagedUnits admin: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("admin should manage all units, got %v", all)
	}

	none, err := authz.ManagedUnits(ctx, "1000000003")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no managed units, got %v %v", none, err)
	}
}

func TestRequireSoldierAccess(t *testing.T) {
	authz := fixture()
	ctx := context.Background()
	soldiers := authz.soldiers.(fakeSoldiers)

	if err := authz.RequireSoldierAccess(ctx, "1000000003", soldiers["1000000003"]); err != nil {
		t.Fatalf("self access denied: %v", err)
	}
	if err := authz.RequireSoldierAccess(ctx, "1000000002", soldiers["1000000003"]); err != nil {
		t.Fatalf("manager access denied: %v", err)
	}

	err := authz.RequireSoldierAccess(ctx, "1000000003", soldiers["1000000004"])
	if !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if msg, _ := apperrors.MessageOf(err); msg != apperrors.MsgNoSoldierRole {
		t.Fatalf("message = %q", msg)
	}
}

func TestRoleHierarchies(t *testing.T) {
	got, err := fixture().RoleHierarchies(context.Background(), "1000000002", models.AccessViewer)
	if err != nil {
		t.Fatalf("RoleHierarchies: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"BN2"}) {
		t.Fatalf("viewer hierarchy = %v", got)
	}
}

func TestHasRoleForUnits(t *testing.T) {
	authz := fixture()
	ctx := context.Background()

	ok, err := authz.HasRoleForUnits(ctx, "1000000002", []string{"BN2", "CO1"}, models.AccessManager)
	if err != nil || !ok {
		t.Fatalf("manager of BN1 should cover CO1: ok=%v err=%v", ok, err)
	}
	ok, err = authz.HasRoleForUnits(ctx, "1000000002", []string{"BN2", "BDE"}, models.AccessManager)
	if err != nil || ok {
		t.Fatalf("viewer role on BN2 is not a manager role: ok=%v err=%v", ok, err)
	}
	ok, err = authz.HasRoleForUnits(ctx, "1000000003", []string{"CO1"})
	if err != nil || ok {
		t.Fatalf("soldier without roles passed: ok=%v err=%v", ok, err)
	}
}
