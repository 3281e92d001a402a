package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ai2c/amap/internal/app/auth"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/app/repositories"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/events"
	"github.com/ai2c/amap/internal/pkg/helpers"
	"github.com/ai2c/amap/internal/pkg/hierarchy"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const taskForceUICAttempts = 5

// UnitService defines the interface for unit operations
type UnitService interface {
	ListUnits(ctx context.Context, requesterID string, req *dto.UnitListRequest) (*dto.PaginatedResponse, error)
	ListTaskForces(ctx context.Context, page, size int) (*dto.PaginatedResponse, error)
	GetUnit(ctx context.Context, requesterID, uic string) (*models.Unit, error)
	GetHierarchy(ctx context.Context, requesterID, uic string) (*dto.UnitHierarchyResponse, error)
	CreateTaskForce(ctx context.Context, requesterID string, req *dto.CreateTaskForceRequest) (*models.Unit, error)
	UpdateUnit(ctx context.Context, requesterID, uic string, req *dto.UpdateUnitRequest) (*models.Unit, error)
	UnitSoldiers(ctx context.Context, requesterID string, uics []string) ([]dto.UnitSoldiersResponse, error)
	RebuildHierarchy(ctx context.Context) ([]string, error)
}

// unitServiceImpl implements UnitService
type unitServiceImpl struct {
	tx        Transactor
	units     UnitStore
	soldiers  SoldierStore
	hierarchy *HierarchyRebuilder
	authz     *auth.AuthorizationService
	logger    zerolog.Logger
}

// NewUnitService creates a new UnitService
func NewUnitService(
	tx Transactor,
	units UnitStore,
	soldiers SoldierStore,
	rebuilder *HierarchyRebuilder,
	authz *auth.AuthorizationService,
	logger zerolog.Logger,
) UnitService {
	return &unitServiceImpl{
		tx:        tx,
		units:     units,
		soldiers:  soldiers,
		hierarchy: rebuilder,
		authz:     authz,
		logger:    logger,
	}
}

// HierarchyRebuilder recomputes parent, child and subordinate lists of every
// unit from the parent links and stamps changed units with a new logical time
type HierarchyRebuilder struct {
	units     UnitStore
	clock     ClockStore
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewHierarchyRebuilder creates a new HierarchyRebuilder
func NewHierarchyRebuilder(units UnitStore, clock ClockStore, publisher events.Publisher, logger zerolog.Logger) *HierarchyRebuilder {
	return &HierarchyRebuilder{units: units, clock: clock, publisher: publisher, logger: logger}
}

// Rebuild must run inside a transaction. It returns the UICs whose lists changed.
func (h *HierarchyRebuilder) Rebuild(ctx context.Context) ([]string, int64, error) {
	if err := h.units.LockHierarchy(ctx); err != nil {
		return nil, 0, err
	}
	links, err := h.units.ParentLinks(ctx)
	if err != nil {
		return nil, 0, err
	}
	return h.rebuildFrom(ctx, links)
}

func (h *HierarchyRebuilder) rebuildFrom(ctx context.Context, links map[string]string) ([]string, int64, error) {
	tree, err := hierarchy.New(links)
	if err != nil {
		return nil, 0, apperrors.NewBadRequestError(err.Error())
	}

	fresh := tree.All()
	stored, err := h.units.StoredLineages(ctx)
	if err != nil {
		return nil, 0, err
	}

	changed := hierarchy.Changed(stored, fresh)
	if len(changed) == 0 {
		return changed, 0, nil
	}

	logicalTime, err := h.clock.Bump(ctx, models.LogicalClockUnit)
	if err != nil {
		return nil, 0, fmt.Errorf("error bumping unit clock: %w", err)
	}

	updates := make(map[string]hierarchy.Lineage, len(changed))
	for _, uic := range changed {
		updates[uic] = fresh[uic]
	}
	if err := h.units.UpdateLineages(ctx, updates, logicalTime); err != nil {
		return nil, 0, err
	}

	h.logger.Info().Int("changed", len(changed)).Int64("logicalTime", logicalTime).Msg("Unit hierarchy rebuilt")
	return changed, logicalTime, nil
}

// Announce publishes a hierarchy change once the transaction committed
func (h *HierarchyRebuilder) Announce(ctx context.Context, changed []string, logicalTime int64) {
	if len(changed) == 0 {
		return
	}
	h.publisher.Publish(ctx, events.UnitHierarchyUpdated, map[string]interface{}{
		"uics":         changed,
		"logical_time": logicalTime,
	})
}

// ListUnits retrieves units with filtering and pagination
func (s *unitServiceImpl) ListUnits(ctx context.Context, requesterID string, req *dto.UnitListRequest) (*dto.PaginatedResponse, error) {
	filter := repositories.UnitFilter{
		Echelon: strings.ToUpper(req.Echelon),
		Compo:   req.Compo,
		State:   req.State,
		Search:  strings.TrimSpace(req.Search),
		SortBy:  req.SortBy,
		Page:    req.Page,
		Size:    req.Size,
	}

	if req.TopLevelUIC != "" {
		top, err := s.units.GetByUIC(ctx, req.TopLevelUIC)
		if err != nil {
			return nil, err
		}
		filter.UICs = top.SubordinateUnitHierarchy(true)
	}

	if req.Role != "" {
		roleUICs, err := s.authz.RoleHierarchies(ctx, requesterID, models.AccessLevel(req.Role))
		if err != nil {
			return nil, fmt.Errorf("error resolving role units: %w", err)
		}
		if filter.UICs == nil {
			filter.UICs = roleUICs
		} else {
			filter.UICs = intersect(filter.UICs, roleUICs)
		}
	}

	return s.list(ctx, filter)
}

// ListTaskForces retrieves the generated task force units
func (s *unitServiceImpl) ListTaskForces(ctx context.Context, page, size int) (*dto.PaginatedResponse, error) {
	return s.list(ctx, repositories.UnitFilter{TaskForceOnly: true, Page: page, Size: size})
}

func (s *unitServiceImpl) list(ctx context.Context, filter repositories.UnitFilter) (*dto.PaginatedResponse, error) {
	units, total, err := s.units.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing units: %w", err)
	}
	return &dto.PaginatedResponse{
		Items:      units,
		Pagination: helpers.NewPaginationInfo(total, filter.Page, filter.Size),
	}, nil
}

// GetUnit retrieves a unit the requester holds a role for
func (s *unitServiceImpl) GetUnit(ctx context.Context, requesterID, uic string) (*models.Unit, error) {
	unit, err := s.units.GetByUIC(ctx, uic)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireUnitRole(ctx, requesterID, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// GetHierarchy returns the unit with its parent and direct children
func (s *unitServiceImpl) GetHierarchy(ctx context.Context, requesterID, uic string) (*dto.UnitHierarchyResponse, error) {
	unit, err := s.GetUnit(ctx, requesterID, uic)
	if err != nil {
		return nil, err
	}

	resp := &dto.UnitHierarchyResponse{
		Target:   unit.Summary(),
		Children: []models.UnitSummary{},
	}

	if unit.ParentUIC != nil {
		parent, err := s.units.GetByUIC(ctx, *unit.ParentUIC)
		if err != nil {
			return nil, err
		}
		summary := parent.Summary()
		resp.Parent = &summary
	}

	children, err := s.units.GetMany(ctx, unit.ChildUICs)
	if err != nil {
		return nil, err
	}
	sort.Slice(children, func(i, j int) bool { return children[i].UIC < children[j].UIC })
	for _, child := range children {
		resp.Children = append(resp.Children, child.Summary())
	}
	return resp, nil
}

// CreateTaskForce creates a task force unit with a generated UIC
func (s *unitServiceImpl) CreateTaskForce(ctx context.Context, requesterID string, req *dto.CreateTaskForceRequest) (*models.Unit, error) {
	if err := s.requireTaskForceRights(ctx, requesterID, req.ParentUIC); err != nil {
		return nil, err
	}

	unit := &models.Unit{
		ShortName:   strings.TrimSpace(req.ShortName),
		DisplayName: strings.TrimSpace(req.DisplayName),
		NickName:    req.NickName,
		Echelon:     strings.ToUpper(req.Echelon),
		Compo:       models.CompoTaskForce,
		ParentUIC:   req.ParentUIC,
		StartDate:   models.DefaultUnitStartDate,
	}
	if err := applyDates(unit, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	var changed []string
	var logicalTime int64
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		uic, err := s.newTaskForceUIC(ctx)
		if err != nil {
			return err
		}
		unit.UIC = uic

		if err := s.units.Create(ctx, unit); err != nil {
			return err
		}
		changed, logicalTime, err = s.hierarchy.Rebuild(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.hierarchy.Announce(ctx, changed, logicalTime)

	s.logger.Info().Str("uic", unit.UIC).Str("requester", requesterID).Msg("Task force created")
	return s.units.GetByUIC(ctx, unit.UIC)
}

func (s *unitServiceImpl) requireTaskForceRights(ctx context.Context, requesterID string, parentUIC *string) error {
	if parentUIC != nil {
		parent, err := s.units.GetByUIC(ctx, *parentUIC)
		if err != nil {
			return err
		}
		ok, err := s.authz.CanManageUnit(ctx, requesterID, parent)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewUnauthorizedError(apperrors.MsgNoUnitRole)
		}
		return nil
	}

	managed, err := s.authz.ManagedUnits(ctx, requesterID)
	if err != nil {
		return err
	}
	if len(managed) == 0 {
		return apperrors.NewUnauthorizedError("Only admins and managers can create task forces.")
	}
	return nil
}

func (s *unitServiceImpl) newTaskForceUIC(ctx context.Context) (string, error) {
	for i := 0; i < taskForceUICAttempts; i++ {
		uic := NewTaskForceUIC()
		exists, err := s.units.Exists(ctx, uic)
		if err != nil {
			return "", err
		}
		if !exists {
			return uic, nil
		}
		s.logger.Debug().Str("uic", uic).Msg("Task force UIC collision, retrying")
	}
	return "", errors.New("could not generate a unique task force UIC")
}

// NewTaskForceUIC returns "TF" followed by 7 uppercase hex characters
func NewTaskForceUIC() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return models.TaskForcePrefix + strings.ToUpper(hex[:7])
}

// UpdateUnit updates unit attributes and, when the parent changes, the hierarchy
func (s *unitServiceImpl) UpdateUnit(ctx context.Context, requesterID, uic string, req *dto.UpdateUnitRequest) (*models.Unit, error) {
	unit, err := s.units.GetByUIC(ctx, uic)
	if err != nil {
		return nil, err
	}
	ok, err := s.authz.CanManageUnit(ctx, requesterID, unit)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewUnauthorizedError(apperrors.MsgNoUnitRole)
	}

	if req.ShortName != nil {
		unit.ShortName = strings.TrimSpace(*req.ShortName)
	}
	if req.DisplayName != nil {
		unit.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.NickName != nil {
		unit.NickName = req.NickName
	}
	if req.Echelon != nil {
		unit.Echelon = strings.ToUpper(*req.Echelon)
	}
	if req.Compo != nil {
		unit.Compo = *req.Compo
	}
	if req.State != nil {
		unit.State = req.State
	}
	if err := applyDates(unit, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	reparent := false
	var newParent string
	if req.ParentUIC != nil {
		newParent = strings.TrimSpace(*req.ParentUIC)
		reparent = newParent != helpers.StringOrEmpty(unit.ParentUIC)
	}

	var changed []string
	var logicalTime int64
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.units.UpdateAttributes(ctx, unit); err != nil {
			return err
		}
		if !reparent {
			return nil
		}

		if err := s.units.LockHierarchy(ctx); err != nil {
			return err
		}
		links, err := s.units.ParentLinks(ctx)
		if err != nil {
			return err
		}
		tree, err := hierarchy.New(links)
		if err != nil {
			return fmt.Errorf("stored unit hierarchy is invalid: %w", err)
		}
		if err := hierarchy.ValidateReparent(tree, uic, newParent); err != nil {
			if errors.Is(err, hierarchy.ErrUnknownParent) {
				return apperrors.NewResourceNotFoundError(apperrors.MsgUnitNotFound)
			}
			return apperrors.NewBadRequestError("A unit cannot be placed under itself or one of its subordinates.")
		}

		var parent *string
		if newParent != "" {
			parent = &newParent
		}
		if err := s.units.SetParent(ctx, uic, parent); err != nil {
			return err
		}
		links[uic] = newParent

		changed, logicalTime, err = s.hierarchy.rebuildFrom(ctx, links)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.hierarchy.Announce(ctx, changed, logicalTime)

	return s.units.GetByUIC(ctx, uic)
}

// UnitSoldiers returns the soldiers of each unit ordered by last and first name
func (s *unitServiceImpl) UnitSoldiers(ctx context.Context, requesterID string, uics []string) ([]dto.UnitSoldiersResponse, error) {
	if len(uics) == 0 {
		return nil, apperrors.NewBadRequestError("At least one uic is required.")
	}

	amtp, err := s.amtpMOS(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.UnitSoldiersResponse, 0, len(uics))
	for _, uic := range uics {
		unit, err := s.GetUnit(ctx, requesterID, uic)
		if err != nil {
			return nil, err
		}
		soldiers, err := s.soldiers.ListByUnits(ctx, []string{uic})
		if err != nil {
			return nil, fmt.Errorf("error listing soldiers of %s: %w", uic, err)
		}

		entry := dto.UnitSoldiersResponse{Unit: unit.Summary(), Soldiers: []dto.SoldierSummary{}}
		for _, soldier := range soldiers {
			entry.Soldiers = append(entry.Soldiers, dto.NewSoldierSummary(soldier, amtp[helpers.StringOrEmpty(soldier.PrimaryMOS)]))
		}
		out = append(out, entry)
	}
	return out, nil
}

// RebuildHierarchy recomputes every unit's derived lists in one transaction
func (s *unitServiceImpl) RebuildHierarchy(ctx context.Context) ([]string, error) {
	var changed []string
	var logicalTime int64
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		var err error
		changed, logicalTime, err = s.hierarchy.Rebuild(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.hierarchy.Announce(ctx, changed, logicalTime)
	return changed, nil
}

func (s *unitServiceImpl) amtpMOS(ctx context.Context) (map[string]bool, error) {
	codes, err := s.soldiers.ListMOS(ctx, repositories.MOSKindAMTP)
	if err != nil {
		return nil, fmt.Errorf("error listing AMTP MOS codes: %w", err)
	}
	out := make(map[string]bool, len(codes))
	for _, c := range codes {
		out[c.MOS] = true
	}
	return out, nil
}

func applyDates(unit *models.Unit, start, end *string) error {
	if start != nil {
		t, err := helpers.ParseISODate(*start)
		if err != nil {
			return apperrors.NewValidationError("start_date", "Invalid date format. Please use YYYY-MM-DD.")
		}
		unit.StartDate = t
	}
	if end != nil {
		if *end == "" {
			unit.EndDate = nil
		} else {
			t, err := helpers.ParseISODate(*end)
			if err != nil {
				return apperrors.NewValidationError("end_date", "Invalid date format. Please use YYYY-MM-DD.")
			}
			unit.EndDate = &t
		}
	}
	if unit.EndDate != nil && unit.EndDate.Before(unit.StartDate) {
		return apperrors.NewValidationError("end_date", "End date cannot be before start date.")
	}
	return nil
}

func intersect(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, v := range b {
		in[v] = true
	}
	out := []string{}
	for _, v := range a {
		if in[v] {
			out = append(out, v)
		}
	}
	return out
}
