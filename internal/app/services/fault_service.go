package services

import (
	"context"
	"sort"

	"github.com/ai2c/amap/internal/app/auth"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/app/repositories"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/helpers"
	"github.com/rs/zerolog"
)

// Placeholders rendered for missing fault data
const (
	UnknownWUC    = "UNK"
	UnknownPerson = "Unknown"
)

// FaultService defines the interface for fault read operations
type FaultService interface {
	StatusCodes() []models.CodeOption
	GetFault(ctx context.Context, id string) (*dto.FaultDetailResponse, error)
	SoldierHistory(ctx context.Context, requesterID, userID string) ([]dto.SoldierFaultHistoryRow, error)
	SoldierFaultIDs(ctx context.Context, requesterID, userID string) ([]string, error)
	SoldierWUCs(ctx context.Context, requesterID, userID string) ([]string, error)
	MaintainerFaults(ctx context.Context, requesterID, userID, start, end string) (*dto.MaintainerFaultsResponse, error)
}

type faultServiceImpl struct {
	faults   FaultStore
	soldiers SoldierStore
	authz    *auth.AuthorizationService
	logger   zerolog.Logger
}

// NewFaultService creates a new FaultService
func NewFaultService(faults FaultStore, soldiers SoldierStore, authz *auth.AuthorizationService, logger zerolog.Logger) FaultService {
	return &faultServiceImpl{
		faults:   faults,
		soldiers: soldiers,
		authz:    authz,
		logger:   logger,
	}
}

// StatusCodes lists fault status codes for dropdowns
func (s *faultServiceImpl) StatusCodes() []models.CodeOption {
	return models.FaultStatusCodes.Options()
}

// GetFault returns a fault with its actions ordered by sequence number
func (s *faultServiceImpl) GetFault(ctx context.Context, id string) (*dto.FaultDetailResponse, error) {
	fault, err := s.faults.GetFault(ctx, id)
	if err != nil {
		return nil, err
	}
	actions, err := s.faults.ListActions(ctx, []string{fault.ID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].SequenceNumber < actions[j].SequenceNumber
	})

	views, err := s.actionViews(ctx, actions)
	if err != nil {
		return nil, err
	}
	return &dto.FaultDetailResponse{
		Fault:        faultView(fault),
		FaultActions: views,
	}, nil
}

// SoldierHistory lists every action the soldier touched, once, under the soldier's
// highest priority role
func (s *faultServiceImpl) SoldierHistory(ctx context.Context, requesterID, userID string) ([]dto.SoldierFaultHistoryRow, error) {
	rows, err := s.roleRows(ctx, requesterID, userID)
	if err != nil {
		return nil, err
	}

	best := make(map[string]repositories.FaultRoleRow, len(rows))
	var order []string
	for _, row := range rows {
		current, seen := best[row.FaultActionID]
		if !seen {
			order = append(order, row.FaultActionID)
			best[row.FaultActionID] = row
			continue
		}
		if models.FaultRolePriority[row.Role] < models.FaultRolePriority[current.Role] {
			best[row.FaultActionID] = row
		}
	}

	out := make([]dto.SoldierFaultHistoryRow, 0, len(order))
	for _, id := range order {
		row := best[id]
		view := dto.SoldierFaultHistoryRow{
			FaultID:           row.FaultID,
			FaultActionID:     row.FaultActionID,
			Role:              row.Role,
			Aircraft:          row.Aircraft,
			FaultWorkUnitCode: helpers.StringOrEmpty(row.FaultWorkUnitCode),
			DiscoveryDateTime: row.DiscoveryDateTime,
			MaintenanceAction: row.MaintenanceAction,
		}
		if row.Role == models.FaultRoleMaintainer {
			hours := row.ManHours
			view.ManHours = &hours
		}
		out = append(out, view)
	}
	return out, nil
}

// SoldierFaultIDs lists the faults the soldier took part in
func (s *faultServiceImpl) SoldierFaultIDs(ctx context.Context, requesterID, userID string) ([]string, error) {
	rows, err := s.roleRows(ctx, requesterID, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.FaultID)
	}
	ids = dedupe(ids)
	sort.Strings(ids)
	return ids, nil
}

// SoldierWUCs lists the non-empty work unit codes of the actions the soldier took part in
func (s *faultServiceImpl) SoldierWUCs(ctx context.Context, requesterID, userID string) ([]string, error) {
	rows, err := s.roleRows(ctx, requesterID, userID)
	if err != nil {
		return nil, err
	}
	wucs := make([]string, 0, len(rows))
	for _, row := range rows {
		wucs = append(wucs, helpers.StringOrEmpty(row.FaultWorkUnitCode))
	}
	wucs = dedupe(wucs)
	sort.Strings(wucs)
	return wucs, nil
}

func (s *faultServiceImpl) roleRows(ctx context.Context, requesterID, userID string) ([]repositories.FaultRoleRow, error) {
	soldier, err := s.soldiers.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireSoldierAccess(ctx, requesterID, soldier); err != nil {
		return nil, err
	}
	return s.faults.SoldierFaultRoles(ctx, userID)
}

// MaintainerFaults lists faults discovered between start and end, both inclusive,
// on which the soldier maintained an action
func (s *faultServiceImpl) MaintainerFaults(ctx context.Context, requesterID, userID, start, end string) (*dto.MaintainerFaultsResponse, error) {
	soldier, err := s.soldiers.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	from, err := helpers.ParseISODate(start)
	if err != nil {
		return nil, apperrors.NewBadRequestError("Invalid date format. Please use YYYY-MM-DD.")
	}
	to, err := helpers.ParseISODate(end)
	if err != nil {
		return nil, apperrors.NewBadRequestError("Invalid date format. Please use YYYY-MM-DD.")
	}
	if from.After(to) {
		return nil, apperrors.NewBadRequestError("Invalid date window - Start Date after End Date.")
	}
	if err := s.authz.RequireSoldierAccess(ctx, requesterID, soldier); err != nil {
		return nil, err
	}

	faults, err := s.faults.FaultsMaintainedInWindow(ctx, userID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	resp := &dto.MaintainerFaultsResponse{
		Faults:       make([]dto.FaultView, 0, len(faults)),
		FaultActions: []dto.ActionView{},
	}
	if len(faults) == 0 {
		return resp, nil
	}

	ids := make([]string, 0, len(faults))
	for _, f := range faults {
		resp.Faults = append(resp.Faults, faultView(f))
		ids = append(ids, f.ID)
	}
	actions, err := s.faults.ActionsMaintainedBy(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	resp.FaultActions, err = s.actionViews(ctx, actions)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *faultServiceImpl) actionViews(ctx context.Context, actions []*models.FaultAction) ([]dto.ActionView, error) {
	if len(actions) == 0 {
		return []dto.ActionView{}, nil
	}
	actionIDs := make([]string, 0, len(actions))
	var people []string
	for _, a := range actions {
		actionIDs = append(actionIDs, a.ID)
		if a.ClosedByID != nil {
			people = append(people, *a.ClosedByID)
		}
		if a.TechnicalInspectorID != nil {
			people = append(people, *a.TechnicalInspectorID)
		}
	}

	links, err := s.faults.ListMaintainers(ctx, actionIDs)
	if err != nil {
		return nil, err
	}
	byAction := make(map[string][]dto.MaintainerView, len(actions))
	for _, l := range links {
		byAction[l.FaultActionID] = append(byAction[l.FaultActionID], dto.MaintainerView{
			SoldierID:   l.SoldierID,
			NameAndRank: l.NameAndRank,
			ManHours:    l.ManHours,
		})
	}

	names, err := s.soldiers.GetMany(ctx, dedupe(people))
	if err != nil {
		return nil, err
	}
	nameOf := func(id *string) string {
		if id == nil {
			return UnknownPerson
		}
		if soldier := names[*id]; soldier != nil {
			return soldier.NameAndRank()
		}
		return UnknownPerson
	}

	out := make([]dto.ActionView, 0, len(actions))
	for _, a := range actions {
		maintainers := byAction[a.ID]
		if maintainers == nil {
			maintainers = []dto.MaintainerView{}
		}
		var total float64
		for _, m := range maintainers {
			total += m.ManHours
		}
		out = append(out, dto.ActionView{
			ID:                    a.ID,
			FaultID:               a.FaultID,
			DiscoveryDateTime:     a.DiscoveryDateTime,
			ClosedDateTime:        a.ClosedDateTime,
			ClosedBy:              nameOf(a.ClosedByID),
			TechnicalInspector:    nameOf(a.TechnicalInspectorID),
			MaintenanceAction:     a.MaintenanceAction,
			CorrectiveAction:      a.CorrectiveAction,
			StatusCode:            a.StatusCode,
			StatusLabel:           models.FaultStatusCodes.Label(a.StatusCode),
			FaultWorkUnitCode:     wucOrUnknown(a.FaultWorkUnitCode),
			MaintenanceLevelCode:  a.MaintenanceLevelCode,
			MaintenanceLevelLabel: models.MaintenanceLevelCodes.Label(a.MaintenanceLevelCode),
			ActionCode:            a.CorrectiveActionCode,
			ActionLabel:           models.ActionCodes.Label(a.CorrectiveActionCode),
			SequenceNumber:        a.SequenceNumber,
			Source:                a.Source,
			Maintainers:           maintainers,
			TotalManHours:         total,
		})
	}
	return out, nil
}

func faultView(f *models.Fault) dto.FaultView {
	discoveredBy := UnknownPerson
	if f.DiscoveredByName != nil && *f.DiscoveredByName != "" {
		discoveredBy = *f.DiscoveredByName
	}
	return dto.FaultView{
		ID:                     f.ID,
		Aircraft:               f.Aircraft,
		UnitUIC:                f.UnitUIC,
		DiscoveredBy:           discoveredBy,
		DiscoveredByID:         f.DiscoveredByID,
		StatusCode:             f.StatusCode,
		StatusLabel:            models.FaultStatusCodes.Label(f.StatusCode),
		SystemCode:             f.SystemCode,
		SystemLabel:            models.SystemCodes.Label(f.SystemCode),
		WhenDiscoveredCode:     f.WhenDiscoveredCode,
		WhenDiscoveredLabel:    models.WhenDiscoveredCodes.Label(f.WhenDiscoveredCode),
		HowRecognizedCode:      f.HowRecognizedCode,
		HowRecognizedLabel:     models.HowRecognizedCodes.Label(f.HowRecognizedCode),
		MalfunctionEffectCode:  f.MalfunctionEffect,
		MalfunctionEffectLabel: models.MalfunctionEffectCodes.Label(f.MalfunctionEffect),
		FailureCode:            f.FailureCode,
		FailureLabel:           models.FailureCodes.Label(f.FailureCode),
		CorrectiveActionCode:   f.CorrectiveActionCode,
		CorrectiveActionLabel:  models.CorrectiveActionCodes.Label(f.CorrectiveActionCode),
		MaintenanceLevelCode:   f.MaintenanceLevelCode,
		MaintenanceLevelLabel:  models.MaintenanceLevelCodes.Label(f.MaintenanceLevelCode),
		DiscoveryDateTime:      f.DiscoveryDateTime,
		CorrectiveDateTime:     f.CorrectiveDateTime,
		Status:                 f.Status,
		Remarks:                f.Remarks,
		MaintenanceDelay:       f.MaintenanceDelay,
		FaultWorkUnitCode:      wucOrUnknown(f.FaultWorkUnitCode),
		TotalManHours:          f.TotalManHours,
		Source:                 f.Source,
		SourceLabel:            models.FaultSources.Label(f.Source),
	}
}

func wucOrUnknown(wuc *string) string {
	if wuc == nil || *wuc == "" {
		return UnknownWUC
	}
	return *wuc
}
