package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/ai2c/amap/internal/app/auth"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/helpers"
	"github.com/rs/zerolog"
)

// RequestService defines the interface for permission, transfer and role operations
type RequestService interface {
	CreatePermissionRequest(ctx context.Context, requesterID string, req *dto.CreatePermissionRequest) (*models.UserRequest, error)
	CreateTransferRequest(ctx context.Context, requesterID string, req *dto.CreateTransferRequest) (*models.SoldierTransferRequest, error)
	Counts(ctx context.Context, requesterID string) (*dto.RequestCountsResponse, error)
	ListPermissionRequests(ctx context.Context, requesterID string) ([]dto.UnitPermissionRequests, error)
	ListTransferRequests(ctx context.Context, requesterID string) (*dto.TransferRequestsResponse, error)
	AdjudicatePermissions(ctx context.Context, requesterID string, req *dto.AdjudicateRequest) (string, error)
	AdjudicateTransfers(ctx context.Context, requesterID string, req *dto.AdjudicateRequest) (string, error)
	UserRoles(ctx context.Context, requesterID, userID string) ([]dto.RoleView, error)
	DeleteRole(ctx context.Context, requesterID string, roleID int64) error
}

type requestServiceImpl struct {
	tx            Transactor
	requests      RequestStore
	roles         RoleStore
	soldiers      SoldierStore
	units         UnitStore
	notifications NotificationService
	authz         *auth.AuthorizationService
	logger        zerolog.Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	tx Transactor,
	requests RequestStore,
	roles RoleStore,
	soldiers SoldierStore,
	units UnitStore,
	notifications NotificationService,
	authz *auth.AuthorizationService,
	logger zerolog.Logger,
) RequestService {
	return &requestServiceImpl{
		tx:            tx,
		requests:      requests,
		roles:         roles,
		soldiers:      soldiers,
		units:         units,
		notifications: notifications,
		authz:         authz,
		logger:        logger,
	}
}

// CreatePermissionRequest files a request for an access level on a unit and
// notifies the managers of the unit chain
func (s *requestServiceImpl) CreatePermissionRequest(ctx context.Context, requesterID string, req *dto.CreatePermissionRequest) (*models.UserRequest, error) {
	requester, err := s.soldiers.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	unit, err := s.units.GetByUIC(ctx, req.UIC)
	if err != nil {
		return nil, err
	}
	requesterUnit, err := s.units.GetByUIC(ctx, requester.UnitUIC)
	if err != nil {
		return nil, err
	}

	request := &models.UserRequest{
		UserID:      requesterID,
		UIC:         unit.UIC,
		AccessLevel: models.AccessLevel(req.AccessLevel),
	}

	var delivery *Delivery
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.requests.CreatePermission(ctx, request); err != nil {
			return err
		}
		recipients, err := s.chainManagers(ctx, unit)
		if err != nil {
			return err
		}
		n := AccessRequestNotification(requester, requesterUnit, unit, request.AccessLevel, request.ID)
		delivery, err = s.notifications.Store(ctx, n, recipients)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifications.Dispatch(ctx, delivery)

	s.logger.Info().
		Str("userID", requesterID).
		Str("uic", unit.UIC).
		Str("level", string(request.AccessLevel)).
		Msg("Permission request created")
	return request, nil
}

// CreateTransferRequest asks for a soldier to move into the gaining unit and
// notifies the managers of the soldier's current unit chain
func (s *requestServiceImpl) CreateTransferRequest(ctx context.Context, requesterID string, req *dto.CreateTransferRequest) (*models.SoldierTransferRequest, error) {
	requester, err := s.soldiers.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	soldier, err := s.soldiers.GetByID(ctx, req.SoldierID)
	if err != nil {
		return nil, err
	}
	gaining, err := s.units.GetByUIC(ctx, req.GainingUIC)
	if err != nil {
		return nil, err
	}
	if soldier.UnitUIC == gaining.UIC {
		return nil, apperrors.NewBadRequestError("Soldier is already assigned to the gaining unit.")
	}
	soldierUnit, err := s.units.GetByUIC(ctx, soldier.UnitUIC)
	if err != nil {
		return nil, err
	}
	requesterUnit, err := s.units.GetByUIC(ctx, requester.UnitUIC)
	if err != nil {
		return nil, err
	}

	transfer := &models.SoldierTransferRequest{
		RequesterID: requesterID,
		GainingUIC:  gaining.UIC,
		SoldierID:   soldier.UserID,
	}

	var delivery *Delivery
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.requests.CreateTransfer(ctx, transfer); err != nil {
			return err
		}
		recipients, err := s.chainManagers(ctx, soldierUnit)
		if err != nil {
			return err
		}
		n := TransferRequestNotification(requester, requesterUnit, soldier, soldierUnit, gaining, transfer.ID)
		delivery, err = s.notifications.Store(ctx, n, recipients)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifications.Dispatch(ctx, delivery)

	s.logger.Info().
		Str("requesterID", requesterID).
		Str("soldierID", soldier.UserID).
		Str("gaining", gaining.UIC).
		Msg("Transfer request created")
	return transfer, nil
}

// chainManagers returns the managers of the unit and its ancestors plus every admin
func (s *requestServiceImpl) chainManagers(ctx context.Context, unit *models.Unit) ([]string, error) {
	roles, err := s.roles.ListByUnitsAndLevel(ctx, unitChain(unit), models.AccessManager)
	if err != nil {
		return nil, err
	}
	admins, err := s.soldiers.AdminIDs(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(roles)+len(admins))
	for _, role := range roles {
		ids = append(ids, role.UserID)
	}
	return dedupe(append(ids, admins...)), nil
}

// Counts returns the number of pending requests over the requester's managed units
func (s *requestServiceImpl) Counts(ctx context.Context, requesterID string) (*dto.RequestCountsResponse, error) {
	managed, err := s.managed(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	permissions, err := s.requests.CountPermissionsByUnits(ctx, managed)
	if err != nil {
		return nil, err
	}
	transfers, err := s.requests.CountTransfersTouchingUnits(ctx, managed)
	if err != nil {
		return nil, err
	}
	return &dto.RequestCountsResponse{
		PermissionRequestsCount: permissions,
		TransferRequestsCount:   transfers,
	}, nil
}

// ListPermissionRequests groups the pending permission requests of managed units by unit
func (s *requestServiceImpl) ListPermissionRequests(ctx context.Context, requesterID string) ([]dto.UnitPermissionRequests, error) {
	managed, err := s.managed(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	pending, err := s.requests.ListPermissionsByUnits(ctx, managed)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return []dto.UnitPermissionRequests{}, nil
	}

	var userIDs, uics []string
	for _, req := range pending {
		userIDs = append(userIDs, req.UserID)
		uics = append(uics, req.UIC)
	}
	soldiers, err := s.soldiers.GetMany(ctx, dedupe(userIDs))
	if err != nil {
		return nil, err
	}
	logins, err := s.soldiers.LastLogins(ctx, dedupe(userIDs))
	if err != nil {
		return nil, err
	}
	for _, soldier := range soldiers {
		uics = append(uics, soldier.UnitUIC)
	}
	units, err := s.unitMap(ctx, dedupe(uics))
	if err != nil {
		return nil, err
	}

	grouped := make(map[string]*dto.UnitPermissionRequests)
	var order []string
	for _, req := range pending {
		soldier, ok := soldiers[req.UserID]
		if !ok {
			continue
		}
		group, ok := grouped[req.UIC]
		if !ok {
			unit := units[req.UIC]
			if unit == nil {
				continue
			}
			group = &dto.UnitPermissionRequests{
				UIC:         unit.UIC,
				ShortName:   unit.ShortName,
				DisplayName: unit.DisplayName,
				Requests:    []dto.PermissionRequestRow{},
			}
			grouped[req.UIC] = group
			order = append(order, req.UIC)
		}

		current, err := s.roles.GetLevel(ctx, req.UserID, req.UIC)
		if err != nil {
			return nil, err
		}
		var currentRole *string
		if current != nil {
			level := string(*current)
			currentRole = &level
		}

		lastActive := "Never"
		if at, ok := logins[req.UserID]; ok {
			lastActive = helpers.FormatDisplayDate(&at, "Never")
		}

		unitName := soldier.UnitUIC
		if u := units[soldier.UnitUIC]; u != nil {
			unitName = u.ShortName
		}

		group.Requests = append(group.Requests, dto.PermissionRequestRow{
			RequestID:     req.ID,
			Name:          fmt.Sprintf("%s %s", soldier.FirstName, soldier.LastName),
			Rank:          soldier.Rank,
			DoDID:         soldier.UserID,
			Unit:          unitName,
			LastActive:    lastActive,
			CurrentRole:   currentRole,
			RequestedRole: string(req.AccessLevel),
		})
	}

	sort.Strings(order)
	out := make([]dto.UnitPermissionRequests, 0, len(order))
	for _, uic := range order {
		out = append(out, *grouped[uic])
	}
	return out, nil
}

// ListTransferRequests returns requests into managed units as received and requests
// for soldiers of managed units as sent
func (s *requestServiceImpl) ListTransferRequests(ctx context.Context, requesterID string) (*dto.TransferRequestsResponse, error) {
	managed, err := s.managed(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	resp := &dto.TransferRequestsResponse{
		ReceivedRequests: []dto.TransferRequestRow{},
		SentRequests:     []dto.TransferRequestRow{},
	}

	transfers, err := s.requests.ListTransfersTouchingUnits(ctx, managed)
	if err != nil {
		return nil, err
	}
	if len(transfers) == 0 {
		return resp, nil
	}

	var userIDs []string
	for _, t := range transfers {
		userIDs = append(userIDs, t.SoldierID, t.RequesterID)
	}
	soldiers, err := s.soldiers.GetMany(ctx, dedupe(userIDs))
	if err != nil {
		return nil, err
	}

	var uics, gaining []string
	for _, t := range transfers {
		uics = append(uics, t.GainingUIC)
		gaining = append(gaining, t.GainingUIC)
		if soldier := soldiers[t.SoldierID]; soldier != nil {
			uics = append(uics, soldier.UnitUIC)
		}
	}
	units, err := s.unitMap(ctx, dedupe(uics))
	if err != nil {
		return nil, err
	}
	pocs, err := s.unitPOCs(ctx, dedupe(gaining))
	if err != nil {
		return nil, err
	}

	isManaged := toSet(managed)
	for _, t := range transfers {
		soldier := soldiers[t.SoldierID]
		gainingUnit := units[t.GainingUIC]
		if soldier == nil || gainingUnit == nil {
			continue
		}
		row := dto.TransferRequestRow{
			ID:          t.ID,
			Soldier:     dto.NewSoldierSummary(soldier, false),
			GainingUnit: gainingUnit.Summary(),
			CreatedAt:   t.CreatedAt,
		}
		if current := units[soldier.UnitUIC]; current != nil {
			row.CurrentUnit = current.Summary()
		}
		if requester := soldiers[t.RequesterID]; requester != nil {
			row.Requester = dto.NewSoldierSummary(requester, false)
		}

		if isManaged[t.GainingUIC] {
			resp.ReceivedRequests = append(resp.ReceivedRequests, row)
		}
		if isManaged[soldier.UnitUIC] {
			row.POCs = pocs[t.GainingUIC]
			resp.SentRequests = append(resp.SentRequests, row)
		}
	}
	return resp, nil
}

func (s *requestServiceImpl) unitPOCs(ctx context.Context, uics []string) (map[string][]dto.POC, error) {
	roles, err := s.roles.ListByUnitsAndLevel(ctx, uics, models.AccessManager)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(roles))
	for _, role := range roles {
		ids = append(ids, role.UserID)
	}
	managers, err := s.soldiers.GetMany(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}

	out := make(map[string][]dto.POC)
	for _, role := range roles {
		manager := managers[role.UserID]
		if manager == nil {
			continue
		}
		out[role.UnitUIC] = append(out[role.UnitUIC], dto.POC{Name: manager.NameAndRank(), Email: manager.DoDEmail})
	}
	return out, nil
}

// AdjudicatePermissions approves or denies permission requests on managed units
func (s *requestServiceImpl) AdjudicatePermissions(ctx context.Context, requesterID string, req *dto.AdjudicateRequest) (string, error) {
	if len(req.RequestIDs) == 0 {
		return "", apperrors.NewBadRequestError("request_ids cannot be empty")
	}
	approved := *req.Approved

	managed, err := s.managed(ctx, requesterID)
	if err != nil {
		return "", err
	}
	found, err := s.requests.ListPermissionsByIDs(ctx, req.RequestIDs)
	if err != nil {
		return "", err
	}
	isManaged := toSet(managed)
	pending := make([]*models.UserRequest, 0, len(found))
	for _, r := range found {
		if isManaged[r.UIC] {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return "", apperrors.NewResourceNotFoundError("No permission requests found with provided IDs")
	}

	uics := make([]string, 0, len(pending))
	for _, r := range pending {
		uics = append(uics, r.UIC)
	}
	units, err := s.unitMap(ctx, dedupe(uics))
	if err != nil {
		return "", err
	}

	var deliveries []*Delivery
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		ids := make([]int64, 0, len(pending))
		for _, r := range pending {
			if approved {
				if _, err := s.roles.Upsert(ctx, r.UserID, r.UIC, r.AccessLevel); err != nil {
					return err
				}
			}
			unitName := r.UIC
			if u := units[r.UIC]; u != nil {
				unitName = u.DisplayName
			}
			n := ApprovedDeniedNotification(models.RequestTypePermission,
				fmt.Sprintf("%s access for %s", r.AccessLevel, unitName), approved)
			d, err := s.notifications.Store(ctx, n, []string{r.UserID})
			if err != nil {
				return err
			}
			deliveries = append(deliveries, d)
			ids = append(ids, r.ID)
		}
		return s.requests.DeletePermissions(ctx, ids)
	})
	if err != nil {
		return "", err
	}
	s.notifications.Dispatch(ctx, deliveries...)

	s.logger.Info().
		Str("adjudicator", requesterID).
		Bool("approved", approved).
		Int("count", len(pending)).
		Msg("Permission requests adjudicated")
	return fmt.Sprintf("Successfully %s %d permission request(s)", outcome(approved), len(pending)), nil
}

// AdjudicateTransfers approves or denies transfer requests for soldiers of managed units
func (s *requestServiceImpl) AdjudicateTransfers(ctx context.Context, requesterID string, req *dto.AdjudicateRequest) (string, error) {
	if len(req.RequestIDs) == 0 {
		return "", apperrors.NewBadRequestError("request_ids cannot be empty")
	}
	approved := *req.Approved

	managed, err := s.managed(ctx, requesterID)
	if err != nil {
		return "", err
	}
	found, err := s.requests.ListTransfersByIDs(ctx, req.RequestIDs)
	if err != nil {
		return "", err
	}

	var userIDs, uics []string
	for _, t := range found {
		userIDs = append(userIDs, t.SoldierID)
		uics = append(uics, t.GainingUIC)
	}
	soldiers, err := s.soldiers.GetMany(ctx, dedupe(userIDs))
	if err != nil {
		return "", err
	}
	units, err := s.unitMap(ctx, dedupe(uics))
	if err != nil {
		return "", err
	}

	isManaged := toSet(managed)
	pending := make([]*models.SoldierTransferRequest, 0, len(found))
	for _, t := range found {
		soldier := soldiers[t.SoldierID]
		if soldier != nil && (isManaged[soldier.UnitUIC] || isManaged[t.GainingUIC]) {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return "", apperrors.NewResourceNotFoundError("No transfer requests found with provided IDs")
	}

	var deliveries []*Delivery
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		ids := make([]int64, 0, len(pending))
		for _, t := range pending {
			soldier := soldiers[t.SoldierID]
			if approved {
				if err := s.soldiers.SetUnit(ctx, soldier.UserID, t.GainingUIC); err != nil {
					return err
				}
				if err := s.requests.DeleteTransfersForSoldier(ctx, soldier.UserID); err != nil {
					return err
				}
			}
			gainingName := t.GainingUIC
			if u := units[t.GainingUIC]; u != nil {
				gainingName = u.DisplayName
			}
			n := ApprovedDeniedNotification(models.RequestTypeTransfer,
				fmt.Sprintf("%s to be transferred into %s", soldier.NameAndRank(), gainingName), approved)
			d, err := s.notifications.Store(ctx, n, []string{t.RequesterID})
			if err != nil {
				return err
			}
			deliveries = append(deliveries, d)
			ids = append(ids, t.ID)
		}
		return s.requests.DeleteTransfers(ctx, ids)
	})
	if err != nil {
		return "", err
	}
	s.notifications.Dispatch(ctx, deliveries...)

	s.logger.Info().
		Str("adjudicator", requesterID).
		Bool("approved", approved).
		Int("count", len(pending)).
		Msg("Transfer requests adjudicated")
	return fmt.Sprintf("Successfully %s %d transfer request(s)", outcome(approved), len(pending)), nil
}

// UserRoles returns the roles of a user. Other requesters only see roles on units they manage.
func (s *requestServiceImpl) UserRoles(ctx context.Context, requesterID, userID string) ([]dto.RoleView, error) {
	if _, err := s.soldiers.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	roles, err := s.roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	visible := roles
	if requesterID != userID {
		managed, err := s.managed(ctx, requesterID)
		if err != nil {
			return nil, err
		}
		isManaged := toSet(managed)
		visible = visible[:0:0]
		for _, role := range roles {
			if isManaged[role.UnitUIC] {
				visible = append(visible, role)
			}
		}
	}

	uics := make([]string, 0, len(visible))
	for _, role := range visible {
		uics = append(uics, role.UnitUIC)
	}
	units, err := s.unitMap(ctx, uics)
	if err != nil {
		return nil, err
	}

	out := make([]dto.RoleView, 0, len(visible))
	for _, role := range visible {
		view := dto.RoleView{ID: role.ID, UserID: role.UserID, AccessLevel: role.AccessLevel}
		if u := units[role.UnitUIC]; u != nil {
			view.Unit = u.Summary()
		}
		out = append(out, view)
	}
	return out, nil
}

// DeleteRole revokes a role. Only admins and managers of the role's unit chain may do so.
func (s *requestServiceImpl) DeleteRole(ctx context.Context, requesterID string, roleID int64) error {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	unit, err := s.units.GetByUIC(ctx, role.UnitUIC)
	if err != nil {
		return err
	}
	ok, err := s.authz.CanManageUnit(ctx, requesterID, unit)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewForbiddenError("Requesting user cannot manage roles for this unit.")
	}
	if err := s.roles.Delete(ctx, roleID); err != nil {
		return err
	}
	s.logger.Info().Int64("roleID", roleID).Str("by", requesterID).Msg("User role deleted")
	return nil
}

func (s *requestServiceImpl) managed(ctx context.Context, requesterID string) ([]string, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}
	return s.authz.ManagedUnits(ctx, requesterID)
}

func (s *requestServiceImpl) unitMap(ctx context.Context, uics []string) (map[string]*models.Unit, error) {
	units, err := s.units.GetMany(ctx, uics)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.Unit, len(units))
	for _, u := range units {
		out[u.UIC] = u
	}
	return out, nil
}

// unitChain is the unit followed by its ancestors
func unitChain(unit *models.Unit) []string {
	return append([]string{unit.UIC}, unit.ParentUICs...)
}

func toSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}

func outcome(approved bool) string {
	if approved {
		return "approved"
	}
	return "denied"
}
