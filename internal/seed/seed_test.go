package seed

import (
	"context"
	"testing"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/validation"
	"github.com/rs/zerolog"
)

type memStore struct {
	units        map[string]*models.Unit
	soldiers     map[string]*models.Soldier
	mos          map[string]bool
	lookups      map[string]int
	docTypes     map[string]bool
	designations map[string]bool
	roles        []string
	rebuilds     int
}

func newMemStore() *memStore {
	return &memStore{
		units:        map[string]*models.Unit{},
		soldiers:     map[string]*models.Soldier{},
		mos:          map[string]bool{},
		lookups:      map[string]int{},
		docTypes:     map[string]bool{},
		designations: map[string]bool{},
	}
}

func (m *memStore) Exists(_ context.Context, uic string) (bool, error) {
	_, ok := m.units[uic]
	return ok, nil
}

func (m *memStore) Create(_ context.Context, u *models.Unit) error {
	if u.ParentUIC != nil && m.units[*u.ParentUIC] == nil {
		return apperrors.NewBadRequestError("Parent unit does not exist.")
	}
	m.units[u.UIC] = u
	return nil
}

type memSoldiers struct{ *memStore }

func (m memSoldiers) GetByID(_ context.Context, id string) (*models.Soldier, error) {
	if s, ok := m.soldiers[id]; ok {
		return s, nil
	}
	return nil, apperrors.NewResourceNotFoundError(apperrors.MsgSoldierNotFound)
}

func (m memSoldiers) Create(_ context.Context, s *models.Soldier) error {
	m.soldiers[s.UserID] = s
	return nil
}

func (m memSoldiers) UpsertMOS(_ context.Context, c *models.MOSCode) error {
	m.mos[c.MOS] = true
	return nil
}

func (m *memStore) UpsertLookup(_ context.Context, table string, _ *models.Lookup) error {
	m.lookups[table]++
	return nil
}

func (m *memStore) UpsertTCSLocation(context.Context, *models.TCSLocation) error { return nil }
func (m *memStore) UpsertTask(context.Context, *models.Task) error               { return nil }

func (m *memStore) UpsertType(_ context.Context, t string) error {
	m.docTypes[t] = true
	return nil
}

func (m *memStore) UpsertDesignation(_ context.Context, d *models.Designation) error {
	m.designations[d.Type+"/"+*d.Description] = true
	return nil
}

func (m *memStore) Upsert(_ context.Context, userID, uic string, level models.AccessLevel) (*models.UserRole, error) {
	m.roles = append(m.roles, userID+"/"+uic+"/"+string(level))
	return &models.UserRole{}, nil
}

func (m *memStore) RebuildHierarchy(context.Context) ([]string, error) {
	m.rebuilds++
	return nil, nil
}

func newSeeder(m *memStore) *Seeder {
	return &Seeder{
		Units:        m,
		Soldiers:     memSoldiers{m},
		Forms:        m,
		Documents:    m,
		Designations: m,
		Roles:        m,
		Hierarchy:    m,
		Logger:       zerolog.Nop(),
	}
}

func TestCreateReferenceData(t *testing.T) {
	m := newMemStore()
	s := newSeeder(m)

	for i := 0; i < 2; i++ {
		if err := s.CreateReferenceData(context.Background(), "TRANSIENT"); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if len(m.mos) != len(mosCodes) {
		t.Errorf("mos = %d, want %d", len(m.mos), len(mosCodes))
	}
	for _, table := range []string{models.LookupAwardTypes, models.LookupEventTypes, models.LookupTrainingTypes, models.LookupEvaluationTypes} {
		if m.lookups[table] == 0 {
			t.Errorf("no %s seeded", table)
		}
	}
	if !m.docTypes["Other"] {
		t.Error("document types not seeded")
	}
	if len(m.designations) != len(designations) || !m.designations["QC/Quality Control Inspector"] {
		t.Errorf("designations = %v", m.designations)
	}
	if m.units["TRANSIENT"] == nil {
		t.Fatal("transient unit not created")
	}
}

func TestCreateDemoData(t *testing.T) {
	m := newMemStore()
	s := newSeeder(m)

	res, err := s.CreateDemoData(context.Background(), 20, 7)
	if err != nil {
		t.Fatal(err)
	}
	if res.Units != 9 {
		t.Errorf("units = %d, want 9", res.Units)
	}
	if res.Soldiers != len(m.soldiers) || res.Soldiers == 0 {
		t.Errorf("soldiers = %d, stored %d", res.Soldiers, len(m.soldiers))
	}
	if m.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", m.rebuilds)
	}
	if len(m.roles) != 1 || m.roles[0] != res.Manager+"/WDEMA0/Manager" {
		t.Errorf("roles = %v", m.roles)
	}

	for id, soldier := range m.soldiers {
		if !validation.IsDoDID(id) {
			t.Errorf("generated id %q is not an EDIPI", id)
		}
		if m.units[soldier.UnitUIC] == nil {
			t.Errorf("soldier %s placed in unknown unit %s", id, soldier.UnitUIC)
		}
		if soldier.BirthMonth == nil || !models.IsMonth(*soldier.BirthMonth) {
			t.Errorf("soldier %s birth month %v", id, soldier.BirthMonth)
		}
	}
	for uic := range m.units {
		if !validation.IsUIC(uic) {
			t.Errorf("generated uic %q is not valid", uic)
		}
	}

	again, err := newSeeder(m).CreateDemoData(context.Background(), 20, 7)
	if err != nil {
		t.Fatal(err)
	}
	if again.Units != 0 || again.Soldiers != 0 || again.Manager != res.Manager {
		t.Errorf("second run = %+v, want nothing new", again)
	}
}

func TestCreateDemoDataRejectsZero(t *testing.T) {
	if _, err := newSeeder(newMemStore()).CreateDemoData(context.Background(), 0, 1); err == nil {
		t.Fatal("expected error")
	}
}
