package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ai2c/amap/internal/app/auth"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/helpers"
	"github.com/rs/zerolog"
)

// AllFlags selects every flag in the requester's managed units
const AllFlags = "ALL"

// FlagService defines the interface for soldier flag operations
type FlagService interface {
	ListFlags(ctx context.Context, requesterID, soldierID string) (*dto.SoldierFlagsResponse, error)
	CreateFlag(ctx context.Context, requesterID string, req *dto.CreateFlagRequest) (*models.SoldierFlag, error)
	UpdateFlag(ctx context.Context, requesterID string, id int64, req *dto.UpdateFlagRequest) (*models.SoldierFlag, error)
	DeleteFlag(ctx context.Context, requesterID string, id int64) (string, error)
}

type flagServiceImpl struct {
	flags    FlagStore
	soldiers SoldierStore
	units    UnitStore
	authz    *auth.AuthorizationService
	logger   zerolog.Logger
	now      func() time.Time
}

// NewFlagService creates a new FlagService
func NewFlagService(flags FlagStore, soldiers SoldierStore, units UnitStore, authz *auth.AuthorizationService, logger zerolog.Logger) FlagService {
	return &flagServiceImpl{
		flags:    flags,
		soldiers: soldiers,
		units:    units,
		authz:    authz,
		logger:   logger,
		now:      time.Now,
	}
}

// ListFlags returns the flags of one soldier, including flags on the soldier's unit
// chain, or with soldierID ALL every flag in the requester's managed units
func (s *flagServiceImpl) ListFlags(ctx context.Context, requesterID, soldierID string) (*dto.SoldierFlagsResponse, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}

	all := soldierID == AllFlags
	var flags []*models.SoldierFlag
	if all {
		managed, err := s.authz.ManagedUnits(ctx, requesterID)
		if err != nil {
			return nil, err
		}
		unitFlags, err := s.flags.ListForUnits(ctx, managed)
		if err != nil {
			return nil, err
		}
		members, err := s.soldiers.ListByUnits(ctx, managed)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.UserID)
		}
		own, err := s.flags.ListForSoldiers(ctx, ids)
		if err != nil {
			return nil, err
		}
		flags = append(own, unitFlags...)
	} else {
		soldier, err := s.soldiers.GetByID(ctx, soldierID)
		if err != nil {
			return nil, err
		}
		if err := s.authz.RequireSoldierAccess(ctx, requesterID, soldier); err != nil {
			return nil, err
		}
		unit, err := s.units.GetByUIC(ctx, soldier.UnitUIC)
		if err != nil {
			return nil, err
		}
		own, err := s.flags.ListForSoldiers(ctx, []string{soldier.UserID})
		if err != nil {
			return nil, err
		}
		unitFlags, err := s.flags.ListForUnits(ctx, unitChain(unit))
		if err != nil {
			return nil, err
		}
		flags = append(own, unitFlags...)
	}

	views, err := s.views(ctx, flags)
	if err != nil {
		return nil, err
	}

	resp := &dto.SoldierFlagsResponse{
		IndividualFlags:   []dto.FlagView{},
		UnitFlags:         []dto.FlagView{},
		UnitFlagPersonnel: []dto.SoldierSummary{},
	}
	var personnelUnits []string
	for _, v := range views {
		if all && v.FlagType == models.FlagUnitPosition && v.UnitUIC != nil && v.SoldierID == nil {
			resp.UnitFlags = append(resp.UnitFlags, v)
			personnelUnits = append(personnelUnits, *v.UnitUIC)
			continue
		}
		resp.IndividualFlags = append(resp.IndividualFlags, v)
	}

	if len(personnelUnits) > 0 {
		personnel, err := s.unitFlagPersonnel(ctx, dedupe(personnelUnits))
		if err != nil {
			return nil, err
		}
		resp.UnitFlagPersonnel = personnel
	}
	return resp, nil
}

// unitFlagPersonnel lists the maintainers of flagged units and their subordinates
func (s *flagServiceImpl) unitFlagPersonnel(ctx context.Context, uics []string) ([]dto.SoldierSummary, error) {
	units, err := s.units.GetMany(ctx, uics)
	if err != nil {
		return nil, err
	}
	var scope []string
	for _, u := range units {
		scope = append(scope, u.SubordinateUnitHierarchy(true)...)
	}
	members, err := s.soldiers.ListByUnits(ctx, dedupe(scope))
	if err != nil {
		return nil, err
	}
	out := make([]dto.SoldierSummary, 0, len(members))
	for _, m := range members {
		if m.IsMaintainer {
			out = append(out, dto.NewSoldierSummary(m, false))
		}
	}
	return out, nil
}

func (s *flagServiceImpl) views(ctx context.Context, flags []*models.SoldierFlag) ([]dto.FlagView, error) {
	var soldierIDs, uics []string
	seen := make(map[int64]bool, len(flags))
	unique := make([]*models.SoldierFlag, 0, len(flags))
	for _, f := range flags {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		unique = append(unique, f)
		if f.SoldierID != nil {
			soldierIDs = append(soldierIDs, *f.SoldierID)
		}
		if f.UnitUIC != nil {
			uics = append(uics, *f.UnitUIC)
		}
	}

	soldiers, err := s.soldiers.GetMany(ctx, dedupe(soldierIDs))
	if err != nil {
		return nil, err
	}
	units, err := s.units.GetMany(ctx, dedupe(uics))
	if err != nil {
		return nil, err
	}
	unitNames := make(map[string]string, len(units))
	for _, u := range units {
		unitNames[u.UIC] = u.ShortName
	}

	today := s.now()
	out := make([]dto.FlagView, 0, len(unique))
	for _, f := range unique {
		v := dto.FlagView{SoldierFlag: *f, Active: f.IsActive(today)}
		if f.SoldierID != nil {
			if soldier := soldiers[*f.SoldierID]; soldier != nil {
				v.SoldierName = helpers.StringPtr(soldier.NameAndRank())
			}
		}
		if f.UnitUIC != nil {
			if name, ok := unitNames[*f.UnitUIC]; ok {
				v.UnitShortName = helpers.StringPtr(name)
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// CreateFlag places a flag on a soldier or, when no soldier is given, on a unit
func (s *flagServiceImpl) CreateFlag(ctx context.Context, requesterID string, req *dto.CreateFlagRequest) (*models.SoldierFlag, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}
	if req.SoldierID == nil && req.UnitUIC == nil {
		return nil, apperrors.NewBadRequestError("Flag requires a soldier or unit.")
	}

	flag := &models.SoldierFlag{
		FlagType:             models.FlagType(req.FlagType),
		AdminFlagInfo:        req.AdminFlagInfo,
		UnitPositionFlagInfo: req.UnitPositionFlagInfo,
		TaskingFlagInfo:      req.TaskingFlagInfo,
		ProfileFlagInfo:      req.ProfileFlagInfo,
		MxAvailability:       models.MxAvailability(req.MxAvailability),
		FlagRemarks:          req.FlagRemarks,
		CreatedBy:            helpers.StringPtr(requesterID),
		LastModifiedBy:       helpers.StringPtr(requesterID),
	}
	if err := setFlagDates(flag, &req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	if req.SoldierID != nil {
		soldier, err := s.soldiers.GetByID(ctx, *req.SoldierID)
		if err != nil {
			return nil, err
		}
		if err := s.authz.RequireSoldierAccess(ctx, requesterID, soldier); err != nil {
			return nil, err
		}
		flag.SoldierID = &soldier.UserID
	} else {
		unit, err := s.units.GetByUIC(ctx, *req.UnitUIC)
		if err != nil {
			return nil, err
		}
		if err := s.authz.RequireUnitRole(ctx, requesterID, unit); err != nil {
			return nil, err
		}
		flag.UnitUIC = &unit.UIC
		// unit flags only carry position info
		flag.AdminFlagInfo, flag.TaskingFlagInfo, flag.ProfileFlagInfo = nil, nil, nil
	}

	flag.ClearOtherInfo()
	if err := checkFlagInfo(flag); err != nil {
		return nil, err
	}

	if err := s.flags.Create(ctx, flag); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("flagID", flag.ID).Str("by", requesterID).Str("type", string(flag.FlagType)).Msg("Soldier flag created")
	return flag, nil
}

// UpdateFlag applies the given fields and clears info fields of other flag types
func (s *flagServiceImpl) UpdateFlag(ctx context.Context, requesterID string, id int64, req *dto.UpdateFlagRequest) (*models.SoldierFlag, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}
	flag, err := s.flags.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireFlagAccess(ctx, requesterID, flag); err != nil {
		return nil, err
	}

	if req.FlagType != nil {
		t := models.FlagType(*req.FlagType)
		if !t.Valid() {
			return nil, apperrors.NewValidationError("flag_type", fmt.Sprintf("%s is not a valid flag type.", *req.FlagType))
		}
		flag.FlagType = t
	}
	if req.MxAvailability != nil {
		m := models.MxAvailability(*req.MxAvailability)
		if !m.Valid() {
			return nil, apperrors.NewValidationError("mx_availability", fmt.Sprintf("%s is not a valid availability.", *req.MxAvailability))
		}
		flag.MxAvailability = m
	}
	if req.AdminFlagInfo != nil {
		flag.AdminFlagInfo = req.AdminFlagInfo
	}
	if req.UnitPositionFlagInfo != nil {
		flag.UnitPositionFlagInfo = req.UnitPositionFlagInfo
	}
	if req.TaskingFlagInfo != nil {
		flag.TaskingFlagInfo = req.TaskingFlagInfo
	}
	if req.ProfileFlagInfo != nil {
		flag.ProfileFlagInfo = req.ProfileFlagInfo
	}
	if req.FlagRemarks != nil {
		flag.FlagRemarks = req.FlagRemarks
	}
	if req.StartDate != nil || req.EndDate != nil {
		start := helpers.FormatISODate(flag.StartDate)
		if req.StartDate != nil {
			start = *req.StartDate
		}
		end := req.EndDate
		if end == nil && flag.EndDate != nil {
			end = helpers.StringPtr(helpers.FormatISODate(*flag.EndDate))
		}
		if err := setFlagDates(flag, &start, end); err != nil {
			return nil, err
		}
	}

	flag.ClearOtherInfo()
	if err := checkFlagInfo(flag); err != nil {
		return nil, err
	}
	flag.LastModifiedBy = helpers.StringPtr(requesterID)

	if err := s.flags.Update(ctx, flag); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("flagID", id).Str("by", requesterID).Msg("Soldier flag updated")
	return flag, nil
}

// DeleteFlag hides a flag
func (s *flagServiceImpl) DeleteFlag(ctx context.Context, requesterID string, id int64) (string, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return "", err
	}
	flag, err := s.flags.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.requireFlagAccess(ctx, requesterID, flag); err != nil {
		return "", err
	}
	if err := s.flags.SoftDelete(ctx, id, requesterID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Soldier Flag (%d) removed from User's view.", id), nil
}

func (s *flagServiceImpl) requireFlagAccess(ctx context.Context, requesterID string, flag *models.SoldierFlag) error {
	if flag.SoldierID != nil {
		soldier, err := s.soldiers.GetByID(ctx, *flag.SoldierID)
		if err != nil {
			return err
		}
		return s.authz.RequireSoldierAccess(ctx, requesterID, soldier)
	}
	if flag.UnitUIC == nil {
		return apperrors.NewResourceNotFoundError(apperrors.MsgFlagNotFound)
	}
	unit, err := s.units.GetByUIC(ctx, *flag.UnitUIC)
	if err != nil {
		return err
	}
	return s.authz.RequireUnitRole(ctx, requesterID, unit)
}

func setFlagDates(flag *models.SoldierFlag, start, end *string) error {
	if start != nil {
		d, err := helpers.ParseISODate(*start)
		if err != nil {
			return apperrors.NewValidationError("start_date", "Invalid date format. Please use YYYY-MM-DD.")
		}
		flag.StartDate = d
	}
	flag.EndDate = nil
	if end != nil && *end != "" {
		d, err := helpers.ParseISODate(*end)
		if err != nil {
			return apperrors.NewValidationError("end_date", "Invalid date format. Please use YYYY-MM-DD.")
		}
		if d.Before(flag.StartDate) {
			return apperrors.NewValidationError("end_date", "End date cannot be before start date.")
		}
		flag.EndDate = &d
	}
	return nil
}

// checkFlagInfo rejects an info value not accepted for the flag's type
func checkFlagInfo(flag *models.SoldierFlag) error {
	for field, value := range map[string]*string{
		"admin_flag_info":         flag.AdminFlagInfo,
		"unit_position_flag_info": flag.UnitPositionFlagInfo,
		"tasking_flag_info":       flag.TaskingFlagInfo,
		"profile_flag_info":       flag.ProfileFlagInfo,
	} {
		if value != nil && !models.ValidFlagInfo(flag.FlagType, *value) {
			return apperrors.NewValidationError(field, fmt.Sprintf("%s is not a valid %s flag option.", *value, flag.FlagType))
		}
	}
	return nil
}
