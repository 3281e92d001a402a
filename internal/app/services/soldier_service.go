package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ai2c/amap/internal/app/auth"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/helpers"
	"github.com/rs/zerolog"
)

// SoldierService defines the interface for personnel operations
type SoldierService interface {
	CreateSoldier(ctx context.Context, requesterID string, req *dto.CreateSoldierRequest) (*dto.SoldierDetailResponse, error)
	GetSoldierDetails(ctx context.Context, requesterID, userID string) (*dto.SoldierDetailResponse, error)
	UpdateSoldier(ctx context.Context, requesterID, userID string, req *dto.UpdateSoldierRequest) (*dto.SoldierDetailResponse, error)
	Login(ctx context.Context, userID string) (*dto.LoginResponse, error)
	ListMOS(ctx context.Context, kind string) ([]*models.MOSCode, error)
	ElevatedRoles(ctx context.Context, requesterID, userID string) (*dto.ElevatedRolesResponse, error)
}

type soldierServiceImpl struct {
	tx       Transactor
	soldiers SoldierStore
	units    UnitStore
	roles    RoleStore
	requests RequestStore
	flags    FlagStore
	events   EventStore
	authz    *auth.AuthorizationService
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSoldierService creates a new SoldierService
func NewSoldierService(
	tx Transactor,
	soldiers SoldierStore,
	units UnitStore,
	roles RoleStore,
	requests RequestStore,
	flags FlagStore,
	events EventStore,
	authz *auth.AuthorizationService,
	logger zerolog.Logger,
) SoldierService {
	return &soldierServiceImpl{
		tx:       tx,
		soldiers: soldiers,
		units:    units,
		roles:    roles,
		requests: requests,
		flags:    flags,
		events:   events,
		authz:    authz,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateSoldier registers the requesting user
func (s *soldierServiceImpl) CreateSoldier(ctx context.Context, requesterID string, req *dto.CreateSoldierRequest) (*dto.SoldierDetailResponse, error) {
	if req.UserID != requesterID {
		return nil, apperrors.NewUnauthorizedError("Cannot create a profile for another user.")
	}
	if _, err := s.units.GetByUIC(ctx, req.UnitUIC); err != nil {
		return nil, err
	}
	if err := s.checkProfileFields(ctx, req.PrimaryMOS, req.BirthMonth); err != nil {
		return nil, err
	}

	soldier := &models.Soldier{
		UserID:        req.UserID,
		Rank:          strings.ToUpper(strings.TrimSpace(req.Rank)),
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		PrimaryMOS:    req.PrimaryMOS,
		UnitUIC:       req.UnitUIC,
		DoDEmail:      req.DoDEmail,
		ReceiveEmails: req.ReceiveEmails,
		BirthMonth:    req.BirthMonth,
	}
	if err := s.soldiers.Create(ctx, soldier); err != nil {
		return nil, err
	}

	s.logger.Info().Str("userID", soldier.UserID).Str("unit", soldier.UnitUIC).Msg("Soldier registered")
	return s.details(ctx, soldier)
}

// GetSoldierDetails returns the profile of a soldier the requester may see
func (s *soldierServiceImpl) GetSoldierDetails(ctx context.Context, requesterID, userID string) (*dto.SoldierDetailResponse, error) {
	soldier, err := s.soldiers.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireSoldierAccess(ctx, requesterID, soldier); err != nil {
		return nil, err
	}
	return s.details(ctx, soldier)
}

// UpdateSoldier updates the requester's own profile
func (s *soldierServiceImpl) UpdateSoldier(ctx context.Context, requesterID, userID string, req *dto.UpdateSoldierRequest) (*dto.SoldierDetailResponse, error) {
	if requesterID != userID {
		return nil, apperrors.NewUnauthorizedError("Cannot update another user's profile.")
	}
	soldier, err := s.soldiers.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.UnitUIC != nil && *req.UnitUIC != soldier.UnitUIC {
		exists, err := s.units.Exists(ctx, *req.UnitUIC)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.NewBadRequestError("Invalid Unit specified in request body.")
		}
		soldier.UnitUIC = *req.UnitUIC
	}
	if err := s.checkProfileFields(ctx, req.PrimaryMOS, req.BirthMonth); err != nil {
		return nil, err
	}
	var additional []string
	if req.AdditionalMOS != nil {
		codes, err := s.additionalMOS(ctx, *req.AdditionalMOS)
		if err != nil {
			return nil, err
		}
		additional = codes
	}

	if req.Rank != nil {
		soldier.Rank = strings.ToUpper(strings.TrimSpace(*req.Rank))
	}
	if req.FirstName != nil {
		soldier.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		soldier.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.PrimaryMOS != nil {
		soldier.PrimaryMOS = req.PrimaryMOS
	}
	if req.DoDEmail != nil {
		soldier.DoDEmail = req.DoDEmail
	}
	if req.ReceiveEmails != nil {
		soldier.ReceiveEmails = *req.ReceiveEmails
	}
	if req.BirthMonth != nil {
		soldier.BirthMonth = req.BirthMonth
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.soldiers.Update(ctx, soldier); err != nil {
			return err
		}
		if req.AdditionalMOS == nil {
			return nil
		}
		return s.soldiers.ReplaceAdditionalMOS(ctx, soldier.UserID, additional)
	})
	if err != nil {
		return nil, err
	}
	return s.details(ctx, soldier)
}

// additionalMOS trims, dedupes and checks the requested additional MOS codes
func (s *soldierServiceImpl) additionalMOS(ctx context.Context, requested []string) ([]string, error) {
	seen := make(map[string]bool, len(requested))
	out := make([]string, 0, len(requested))
	for _, mos := range requested {
		mos = strings.ToUpper(strings.TrimSpace(mos))
		if mos == "" || seen[mos] {
			continue
		}
		ok, err := s.soldiers.MOSExists(ctx, mos)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.NewValidationError("additional_mos", fmt.Sprintf("%s: %s", mos, apperrors.MsgMOSNotFound))
		}
		seen[mos] = true
		out = append(out, mos)
	}
	sort.Strings(out)
	return out, nil
}

func (s *soldierServiceImpl) checkProfileFields(ctx context.Context, mos, birthMonth *string) error {
	if birthMonth != nil && !models.IsMonth(*birthMonth) {
		return apperrors.NewValidationError("birth_month", "Birth month must be one of JAN through DEC.")
	}
	if mos != nil {
		ok, err := s.soldiers.MOSExists(ctx, *mos)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewResourceNotFoundError(apperrors.MsgMOSNotFound)
		}
	}
	return nil
}

// Login records a login and returns who the user is and what they can see
func (s *soldierServiceImpl) Login(ctx context.Context, userID string) (*dto.LoginResponse, error) {
	soldier, err := s.soldiers.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return &dto.LoginResponse{UserID: userID, NewUser: true}, nil
		}
		return nil, err
	}

	if err := s.soldiers.RecordLogin(ctx, userID, s.now()); err != nil {
		return nil, err
	}

	details, err := s.details(ctx, soldier)
	if err != nil {
		return nil, err
	}

	roles := &dto.UnitRoles{}
	for level, dest := range map[models.AccessLevel]*[]string{
		models.AccessViewer:   &roles.Viewer,
		models.AccessRecorder: &roles.Recorder,
		models.AccessManager:  &roles.Manager,
	} {
		uics, err := s.authz.RoleHierarchies(ctx, userID, level)
		if err != nil {
			return nil, err
		}
		*dest = uics
	}

	open, err := s.requests.HasOpenPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		UserID:          userID,
		User:            details,
		UnitRoles:       roles,
		HasOpenRequests: open,
	}, nil
}

// ListMOS lists MOS codes of a kind
func (s *soldierServiceImpl) ListMOS(ctx context.Context, kind string) ([]*models.MOSCode, error) {
	return s.soldiers.ListMOS(ctx, kind)
}

// ElevatedRoles returns the units the user holds each access level on
func (s *soldierServiceImpl) ElevatedRoles(ctx context.Context, requesterID, userID string) (*dto.ElevatedRolesResponse, error) {
	soldier, err := s.soldiers.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireSoldierAccess(ctx, requesterID, soldier); err != nil {
		return nil, err
	}

	roles, err := s.roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ElevatedRolesResponse{
		Viewer:    []string{},
		Recorder:  []string{},
		Manager:   []string{},
		Evaluator: []string{},
	}
	for _, role := range roles {
		switch role.AccessLevel {
		case models.AccessViewer:
			resp.Viewer = append(resp.Viewer, role.UnitUIC)
		case models.AccessRecorder:
			resp.Recorder = append(resp.Recorder, role.UnitUIC)
		case models.AccessManager:
			resp.Manager = append(resp.Manager, role.UnitUIC)
		case models.AccessEvaluator:
			resp.Evaluator = append(resp.Evaluator, role.UnitUIC)
		}
	}
	for _, list := range [][]string{resp.Viewer, resp.Recorder, resp.Manager, resp.Evaluator} {
		sort.Strings(list)
	}
	return resp, nil
}

func (s *soldierServiceImpl) details(ctx context.Context, soldier *models.Soldier) (*dto.SoldierDetailResponse, error) {
	unit, err := s.units.GetByUIC(ctx, soldier.UnitUIC)
	if err != nil {
		return nil, fmt.Errorf("error loading unit of %s: %w", soldier.UserID, err)
	}

	availability, err := soldierAvailability(ctx, s.flags, soldier, unit, s.now())
	if err != nil {
		return nil, err
	}

	additional, err := s.soldiers.AdditionalMOS(ctx, soldier.UserID)
	if err != nil {
		return nil, err
	}

	var evalDate *string
	lastEval, err := s.events.LatestAnnualGoDate(ctx, soldier.UserID)
	if err != nil {
		return nil, err
	}
	if lastEval != nil {
		d := helpers.FormatDisplayDate(lastEval, "")
		evalDate = &d
	}

	return &dto.SoldierDetailResponse{
		UserID:               soldier.UserID,
		Rank:                 soldier.Rank,
		FirstName:            soldier.FirstName,
		LastName:             soldier.LastName,
		Display:              soldier.NameAndRank(),
		PrimaryMOS:           soldier.PrimaryMOS,
		AdditionalMOS:        additional,
		Unit:                 unit.Summary(),
		IsAdmin:              soldier.IsAdmin,
		IsMaintainer:         soldier.IsMaintainer,
		DoDEmail:             soldier.DoDEmail,
		ReceiveEmails:        soldier.ReceiveEmails,
		BirthMonth:           soldier.BirthMonth,
		AvailabilityStatus:   availability,
		PrimaryML:            soldier.ReportingML,
		RecentAnnualEvalDate: evalDate,
	}, nil
}

// soldierAvailability is the worst availability among the soldier's active flags
// and the active flags of every unit in the soldier's chain
func soldierAvailability(ctx context.Context, flags FlagStore, soldier *models.Soldier, unit *models.Unit, now time.Time) (models.MxAvailability, error) {
	own, err := flags.ListForSoldiers(ctx, []string{soldier.UserID})
	if err != nil {
		return "", err
	}
	unitFlags, err := flags.ListForUnits(ctx, unitChain(unit))
	if err != nil {
		return "", err
	}
	return models.PrevailingAvailability(append(own, unitFlags...), now), nil
}
