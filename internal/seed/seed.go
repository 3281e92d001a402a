// Package seed loads reference data every deployment needs and, on request,
// generated demo units and soldiers.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"
)

// UnitWriter creates units
type UnitWriter interface {
	Exists(ctx context.Context, uic string) (bool, error)
	Create(ctx context.Context, u *models.Unit) error
}

// SoldierWriter creates soldiers and MOS codes
type SoldierWriter interface {
	GetByID(ctx context.Context, userID string) (*models.Soldier, error)
	Create(ctx context.Context, s *models.Soldier) error
	UpsertMOS(ctx context.Context, m *models.MOSCode) error
}

// FormWriter fills the form lookup tables
type FormWriter interface {
	UpsertLookup(ctx context.Context, table string, l *models.Lookup) error
	UpsertTCSLocation(ctx context.Context, l *models.TCSLocation) error
	UpsertTask(ctx context.Context, t *models.Task) error
}

// DocumentTypeWriter fills the supporting document types
type DocumentTypeWriter interface {
	UpsertType(ctx context.Context, docType string) error
}

// DesignationWriter fills the designation types
type DesignationWriter interface {
	UpsertDesignation(ctx context.Context, d *models.Designation) error
}

// RoleWriter grants unit roles
type RoleWriter interface {
	Upsert(ctx context.Context, userID, uic string, level models.AccessLevel) (*models.UserRole, error)
}

// HierarchyRebuilder recomputes unit lineages after units are inserted
type HierarchyRebuilder interface {
	RebuildHierarchy(ctx context.Context) ([]string, error)
}

// Seeder writes seed data through the repositories
type Seeder struct {
	Units        UnitWriter
	Soldiers     SoldierWriter
	Forms        FormWriter
	Documents    DocumentTypeWriter
	Designations DesignationWriter
	Roles        RoleWriter
	Hierarchy    HierarchyRebuilder
	Logger       zerolog.Logger
}

var mosCodes = []models.MOSCode{
	{MOS: "15B", MOSDescription: "Aircraft Powerplant Repairer", AMTP: true},
	{MOS: "15D", MOSDescription: "Aircraft Powertrain Repairer", AMTP: true},
	{MOS: "15E", MOSDescription: "Unmanned Aircraft Systems Repairer", AMTP: true},
	{MOS: "15F", MOSDescription: "Aircraft Electrician", AMTP: true},
	{MOS: "15G", MOSDescription: "Aircraft Structural Repairer", AMTP: true},
	{MOS: "15H", MOSDescription: "Aircraft Pneudraulics Repairer", AMTP: true},
	{MOS: "15N", MOSDescription: "Avionic Mechanic", AMTP: true},
	{MOS: "15R", MOSDescription: "AH-64 Attack Helicopter Repairer", AMTP: true},
	{MOS: "15T", MOSDescription: "UH-60 Helicopter Repairer", AMTP: true},
	{MOS: "15U", MOSDescription: "CH-47 Helicopter Repairer", AMTP: true},
	{MOS: "15P", MOSDescription: "Aviation Operations Specialist", ICTL: true},
	{MOS: "15Q", MOSDescription: "Air Traffic Control Operator", ICTL: true},
	{MOS: "92A", MOSDescription: "Automated Logistical Specialist"},
}

var lookups = map[string][]string{
	models.LookupEventTypes:      {models.EventTypeEvaluation, "Training", "Award", models.EventTypePCSETS, models.EventTypeInUnitTransfer, "TCS", "Other"},
	models.LookupEvaluationTypes: {models.EvaluationTypeAnnual, "No Notice", "Commander's", "Other"},
	models.LookupTrainingTypes:   {"Safety", "Maintenance Test Flight", "Hazmat", "Tool Room", "Other"},
	models.LookupAwardTypes:      {"AAM", "ARCOM", "MSM", "Certificate of Achievement", "Other"},
}

var tcsLocations = []models.TCSLocation{
	{Abbreviation: "FTR", Location: strPtr("Fort Novosel, AL")},
	{Abbreviation: "FEU", Location: strPtr("Fort Eustis, VA")},
}

var tasks = []models.Task{
	{TaskNumber: "552-000-1001", TaskTitle: "Perform Daily Inspection"},
	{TaskNumber: "552-000-1002", TaskTitle: "Perform Preventive Maintenance Service"},
	{TaskNumber: "552-000-1003", TaskTitle: "Perform Engine Run-Up"},
	{TaskNumber: "552-000-1004", TaskTitle: "Inspect Main Rotor System"},
	{TaskNumber: "552-000-1005", TaskTitle: "Service Hydraulic System"},
}

var documentTypes = []string{"DA 2166-9", "DA 7817", "ERB", "Certificate", "Memorandum", "Other"}

var designations = []models.Designation{
	{Type: "QC", Description: strPtr("Quality Control Inspector")},
	{Type: "TI", Description: strPtr("Technical Inspector")},
	{Type: "Safety", Description: strPtr("Unit Safety Officer")},
	{Type: "Tool Room", Description: strPtr("Tool Room Custodian")},
}

var ranks = []string{"PV2", "PFC", "SPC", "SGT", "SSG", "SFC", "WO1", "CW2"}

// CreateReferenceData writes MOS codes, form lookups, document and designation
// types and the transient unit. Existing rows are left as they are.
func (s *Seeder) CreateReferenceData(ctx context.Context, transientUIC string) error {
	s.Logger.Info().Msg("Checking/Creating reference data...")
	var finalErr error

	for i := range mosCodes {
		if err := s.Soldiers.UpsertMOS(ctx, &mosCodes[i]); err != nil {
			s.Logger.Error().Err(err).Str("mos", mosCodes[i].MOS).Msg("Error creating MOS code")
			finalErr = errors.Join(finalErr, err)
		}
	}

	for table, values := range lookups {
		for _, v := range values {
			if err := s.Forms.UpsertLookup(ctx, table, &models.Lookup{Type: v}); err != nil {
				s.Logger.Error().Err(err).Str("table", table).Str("type", v).Msg("Error creating lookup")
				finalErr = errors.Join(finalErr, err)
			}
		}
	}

	for i := range tcsLocations {
		if err := s.Forms.UpsertTCSLocation(ctx, &tcsLocations[i]); err != nil {
			finalErr = errors.Join(finalErr, err)
		}
	}
	for i := range tasks {
		if err := s.Forms.UpsertTask(ctx, &tasks[i]); err != nil {
			finalErr = errors.Join(finalErr, err)
		}
	}

	for _, t := range documentTypes {
		if err := s.Documents.UpsertType(ctx, t); err != nil {
			finalErr = errors.Join(finalErr, err)
		}
	}

	for i := range designations {
		if err := s.Designations.UpsertDesignation(ctx, &designations[i]); err != nil {
			finalErr = errors.Join(finalErr, err)
		}
	}

	if _, err := s.ensureUnit(ctx, &models.Unit{
		UIC:         transientUIC,
		ShortName:   "Transient",
		DisplayName: "Transient Soldiers",
		Echelon:     "UNK",
		Compo:       "1",
		StartDate:   models.DefaultUnitStartDate,
	}); err != nil {
		s.Logger.Error().Err(err).Str("uic", transientUIC).Msg("Error creating transient unit")
		finalErr = errors.Join(finalErr, err)
	}

	return finalErr
}

// DemoResult counts generated demo records
type DemoResult struct {
	Units    int
	Soldiers int
	Manager  string
}

// CreateDemoData generates a brigade with two battalions of three companies
// and n soldiers spread over the companies. The first soldier manages the
// brigade. The same seed always produces the same data.
func (s *Seeder) CreateDemoData(ctx context.Context, n int, seed int64) (*DemoResult, error) {
	if n < 1 {
		return nil, fmt.Errorf("demo soldier count must be positive")
	}
	faker := gofakeit.New(seed)
	result := &DemoResult{}

	brigade := demoUnit("WDEMA0", "BDE", "1-1 Aviation Brigade", nil)
	units := []*models.Unit{brigade}
	var companies []string
	for b, bn := range []string{"B", "C"} {
		battalion := demoUnit("WDE"+bn+"A0", "BN", fmt.Sprintf("%d-1 AVN", b+1), &brigade.UIC)
		units = append(units, battalion)
		for _, co := range []string{"A", "B", "C"} {
			company := demoUnit("WDE"+bn+co+"1", "CO", fmt.Sprintf("%s CO %d-1 AVN", co, b+1), &battalion.UIC)
			units = append(units, company)
			companies = append(companies, company.UIC)
		}
	}

	for _, u := range units {
		created, err := s.ensureUnit(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("demo unit %s: %w", u.UIC, err)
		}
		if created {
			result.Units++
		}
	}
	if _, err := s.Hierarchy.RebuildHierarchy(ctx); err != nil {
		return nil, fmt.Errorf("rebuild hierarchy: %w", err)
	}

	for i := 0; i < n; i++ {
		soldier := fakeSoldier(faker, companies[i%len(companies)])
		if i == 0 {
			soldier.UnitUIC = brigade.UIC
			result.Manager = soldier.UserID
		}
		created, err := s.ensureSoldier(ctx, soldier)
		if err != nil {
			return nil, fmt.Errorf("demo soldier %s: %w", soldier.UserID, err)
		}
		if created {
			result.Soldiers++
		}
	}

	if _, err := s.Roles.Upsert(ctx, result.Manager, brigade.UIC, models.AccessManager); err != nil {
		return nil, fmt.Errorf("demo manager role: %w", err)
	}

	s.Logger.Info().Int("units", result.Units).Int("soldiers", result.Soldiers).Str("manager", result.Manager).Msg("Demo data created")
	return result, nil
}

func (s *Seeder) ensureUnit(ctx context.Context, u *models.Unit) (bool, error) {
	exists, err := s.Units.Exists(ctx, u.UIC)
	if err != nil || exists {
		return false, err
	}
	if err := s.Units.Create(ctx, u); err != nil {
		if errors.Is(err, apperrors.ErrResourceAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Seeder) ensureSoldier(ctx context.Context, soldier *models.Soldier) (bool, error) {
	_, err := s.Soldiers.GetByID(ctx, soldier.UserID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, apperrors.ErrResourceNotFound) {
		return false, err
	}
	if err := s.Soldiers.Create(ctx, soldier); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func demoUnit(uic, echelon, name string, parent *string) *models.Unit {
	return &models.Unit{
		UIC:         uic,
		ShortName:   name,
		DisplayName: name,
		Echelon:     echelon,
		Compo:       "1",
		ParentUIC:   parent,
		StartDate:   time.Date(2000, time.October, 1, 0, 0, 0, 0, time.UTC),
	}
}

func fakeSoldier(faker *gofakeit.Faker, uic string) *models.Soldier {
	mos := mosCodes[faker.Number(0, len(mosCodes)-1)].MOS
	first, last := faker.FirstName(), faker.LastName()
	email := fmt.Sprintf("%s.%s.mil@army.mil", first, last)
	month := models.Months[faker.Number(0, len(models.Months)-1)]
	return &models.Soldier{
		UserID:       fmt.Sprintf("%010d", faker.Number(1000000000, 1999999999)),
		Rank:         ranks[faker.Number(0, len(ranks)-1)],
		FirstName:    first,
		LastName:     last,
		PrimaryMOS:   &mos,
		UnitUIC:      uic,
		IsMaintainer: true,
		DoDEmail:     &email,
		BirthMonth:   &month,
	}
}

func strPtr(s string) *string { return &s }
