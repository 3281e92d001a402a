package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/events"
	"github.com/ai2c/amap/internal/pkg/helpers"
	"github.com/rs/zerolog"
)

// ErrNoRawSource is returned by transforms when no staging database is configured
var ErrNoRawSource error = apperrors.NewCustomError(apperrors.ErrServiceUnavailable, "Staging source database is not configured.")

// FaultETLService defines the interface for the fault transform
type FaultETLService interface {
	TransformFaults(ctx context.Context, filterDate *string) (*dto.FaultETLResult, error)
}

type faultETLServiceImpl struct {
	tx           Transactor
	raw          RawSource
	faults       FaultStore
	soldiers     SoldierStore
	units        UnitStore
	publisher    events.Publisher
	lookbackDays int
	logger       zerolog.Logger
	now          func() time.Time
}

// NewFaultETLService creates a new FaultETLService. raw may be nil when no staging
// database is configured.
func NewFaultETLService(
	tx Transactor,
	raw RawSource,
	faults FaultStore,
	soldiers SoldierStore,
	units UnitStore,
	publisher events.Publisher,
	lookbackDays int,
	logger zerolog.Logger,
) FaultETLService {
	return &faultETLServiceImpl{
		tx:           tx,
		raw:          raw,
		faults:       faults,
		soldiers:     soldiers,
		units:        units,
		publisher:    publisher,
		lookbackDays: lookbackDays,
		logger:       logger,
		now:          time.Now,
	}
}

// TransformFaults copies faults and fault actions synced on or after the filter date
// from the staging tables
func (s *faultETLServiceImpl) TransformFaults(ctx context.Context, filterDate *string) (*dto.FaultETLResult, error) {
	if s.raw == nil {
		return nil, ErrNoRawSource
	}

	since := helpers.DateOf(s.now()).AddDate(0, 0, -s.lookbackDays)
	if filterDate != nil && *filterDate != "" {
		d, err := helpers.ParseISODate(*filterDate)
		if err != nil {
			return nil, apperrors.NewValidationError("filter_date", "Invalid date format. Please use YYYY-MM-DD.")
		}
		since = d
	}

	rawFaults, err := s.raw.FaultsSince(ctx, since)
	if err != nil {
		return nil, err
	}
	rawActions, err := s.raw.FaultActionsSince(ctx, since)
	if err != nil {
		return nil, err
	}

	result := &dto.FaultETLResult{
		Message:    dto.FaultETLMessage,
		FilterDate: helpers.FormatISODate(since),
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.loadFaults(ctx, rawFaults, result); err != nil {
			return err
		}
		return s.loadActions(ctx, rawActions, result)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.ETLCompleted, map[string]interface{}{
		"job":    "faults",
		"result": result,
	})
	s.logger.Info().
		Str("filterDate", result.FilterDate).
		Int("faultsCreated", result.FaultsCreated).
		Int("faultsUpdated", result.FaultsUpdated).
		Int("actionsCreated", result.ActionsCreated).
		Int("maintainersLinked", result.MaintainersLinked).
		Int("actionsSkipped", result.ActionsSkipped).
		Msg("Fault transform finished")
	return result, nil
}

func (s *faultETLServiceImpl) loadFaults(ctx context.Context, rawFaults []*models.RawFault, result *dto.FaultETLResult) error {
	if len(rawFaults) == 0 {
		return nil
	}

	ids := make([]string, 0, len(rawFaults))
	var uics, people []string
	for _, rf := range rawFaults {
		ids = append(ids, rf.ID)
		if rf.UIC != nil {
			uics = append(uics, *rf.UIC)
		}
		if rf.EDIPI != nil {
			people = append(people, *rf.EDIPI)
		}
	}
	existing, err := s.faults.ExistingFaultIDs(ctx, ids)
	if err != nil {
		return err
	}
	knownUnits, err := s.knownUnits(ctx, dedupe(uics))
	if err != nil {
		return err
	}
	knownSoldiers, err := s.soldiers.GetMany(ctx, dedupe(people))
	if err != nil {
		return err
	}

	for _, rf := range rawFaults {
		fault := faultFromRaw(rf)
		if rf.UIC != nil && knownUnits[*rf.UIC] {
			fault.UnitUIC = rf.UIC
		}
		if rf.EDIPI != nil && knownSoldiers[*rf.EDIPI] != nil {
			fault.DiscoveredByID = rf.EDIPI
		}

		if existing[fault.ID] {
			if err := s.faults.UpdateFault(ctx, fault); err != nil {
				return err
			}
			result.FaultsUpdated++
			continue
		}
		if err := s.faults.CreateFault(ctx, fault); err != nil {
			return err
		}
		existing[fault.ID] = true
		result.FaultsCreated++
	}
	return nil
}

func (s *faultETLServiceImpl) loadActions(ctx context.Context, rawActions []*models.RawFaultAction, result *dto.FaultETLResult) error {
	if len(rawActions) == 0 {
		return nil
	}

	var actionIDs, faultIDs, people []string
	for _, ra := range rawActions {
		actionIDs = append(actionIDs, ra.ID)
		faultIDs = append(faultIDs, ra.FaultID)
		for _, p := range []*string{ra.PersonnelDoDID, ra.ClosedByDoDID, ra.TechnicalInspectorDoDID} {
			if p != nil {
				people = append(people, *p)
			}
		}
	}
	existingActions, err := s.faults.ExistingActionIDs(ctx, dedupe(actionIDs))
	if err != nil {
		return err
	}
	existingFaults, err := s.faults.ExistingFaultIDs(ctx, dedupe(faultIDs))
	if err != nil {
		return err
	}
	known, err := s.soldiers.GetMany(ctx, dedupe(people))
	if err != nil {
		return err
	}
	knownID := func(id *string) *string {
		if id != nil && known[*id] != nil {
			return id
		}
		return nil
	}

	for _, ra := range rawActions {
		maintainer := knownID(ra.PersonnelDoDID)
		if maintainer == nil {
			result.ActionsSkipped++
			continue
		}
		hours := models.DefaultMaintainerManHours
		if ra.ManHours != nil && *ra.ManHours != 0 {
			hours = *ra.ManHours
		}

		if !existingActions[ra.ID] {
			if !existingFaults[ra.FaultID] {
				s.logger.Warn().Str("faultID", ra.FaultID).Str("actionID", ra.ID).Msg("Fault action has no 13-1 record")
				result.ActionsSkipped++
				continue
			}
			action := actionFromRaw(ra)
			action.ClosedByID = knownID(ra.ClosedByDoDID)
			action.TechnicalInspectorID = knownID(ra.TechnicalInspectorDoDID)
			if err := s.faults.CreateAction(ctx, action); err != nil {
				return err
			}
			existingActions[ra.ID] = true
			result.ActionsCreated++
		}

		linked, err := s.faults.EnsureMaintainer(ctx, ra.ID, *maintainer, hours)
		if err != nil {
			return err
		}
		if linked {
			result.MaintainersLinked++
		}
	}
	return nil
}

func (s *faultETLServiceImpl) knownUnits(ctx context.Context, uics []string) (map[string]bool, error) {
	units, err := s.units.GetMany(ctx, uics)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(units))
	for _, u := range units {
		out[u.UIC] = true
	}
	return out, nil
}

// faultFromRaw maps the vendor columns of a raw fault; unit and discoverer are resolved by the caller
func faultFromRaw(rf *models.RawFault) *models.Fault {
	status := models.FaultOpen
	if rf.Status != nil && *rf.Status == 1 {
		status = models.FaultClosed
	}
	var hours float64
	if rf.TotalManHours != nil {
		if h, err := strconv.ParseFloat(strings.TrimSpace(*rf.TotalManHours), 64); err == nil {
			hours = h
		}
	}
	return &models.Fault{
		ID:                   rf.ID,
		Aircraft:             rf.SerialNumber,
		DiscoveredByName:     rf.FaultDiscoveredBy,
		StatusCode:           models.FaultStatusCodes.FromRaw(rf.StatusCodeValue),
		SystemCode:           models.SystemCodes.FromRaw(rf.SystemCodeValue),
		WhenDiscoveredCode:   models.WhenDiscoveredCodes.FromRaw(rf.WhenDiscoveredCodeValue),
		HowRecognizedCode:    models.HowRecognizedCodes.FromRaw(rf.HowRecognizedCodeValue),
		MalfunctionEffect:    models.MalfunctionEffectCodes.FromRaw(rf.MalfunctionEffectValue),
		FailureCode:          models.FailureCodes.FromRaw(rf.FailureCodeValue),
		CorrectiveActionCode: models.CorrectiveActionCodes.FromRaw(rf.CorrectiveActionCodeValue),
		MaintenanceLevelCode: models.MaintenanceLevelCodes.FromRaw(rf.MaintenanceLevelCodeValue),
		DiscoveryDateTime:    rf.DiscoveryDateTime.UTC(),
		CorrectiveDateTime:   utcPtr(rf.CorrectiveDateTime),
		Status:               status,
		Remarks:              rf.Remarks,
		MaintenanceDelay:     rf.MaintenanceDelay,
		FaultWorkUnitCode:    rf.FaultWorkUnitCode,
		TotalManHours:        hours,
		Source:               models.FaultSources.FromRaw(rf.Source),
	}
}

// actionFromRaw maps the vendor columns of a raw fault action; people are resolved by the caller
func actionFromRaw(ra *models.RawFaultAction) *models.FaultAction {
	sequence := 1
	if ra.SequenceNumber != nil && *ra.SequenceNumber > 0 {
		sequence = int(*ra.SequenceNumber)
	}
	return &models.FaultAction{
		ID:                   ra.ID,
		FaultID:              ra.FaultID,
		DiscoveryDateTime:    utcPtr(ra.DiscoveryDateTime),
		ClosedDateTime:       utcPtr(ra.ClosedDateTime),
		MaintenanceAction:    ra.MaintenanceAction,
		CorrectiveAction:     ra.CorrectiveAction,
		StatusCode:           models.FaultStatusCodes.FromRaw(ra.StatusCodeValue),
		FaultWorkUnitCode:    ra.FaultWorkUnitCode,
		MaintenanceLevelCode: models.MaintenanceLevelCodes.FromRaw(ra.MaintenanceLevelCodeValue),
		CorrectiveActionCode: models.ActionCodes.FromRaw(ra.ActionCodeValue),
		SequenceNumber:       sequence,
		Source:               models.FaultSources.FromRaw(ra.Source),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
