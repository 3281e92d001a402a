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

// AllDesignations selects every designation in the requester's managed units
const AllDesignations = "ALL"

// DesignationService defines the interface for soldier designation operations
type DesignationService interface {
	ListTypes(ctx context.Context) ([]*models.Designation, error)
	ListDesignations(ctx context.Context, requesterID, soldierID string, currentOnly bool) ([]dto.DesignationView, error)
	CreateDesignation(ctx context.Context, requesterID string, req *dto.CreateDesignationRequest) (*dto.DesignationResponse, error)
	RemoveDesignation(ctx context.Context, requesterID string, id int64) (*dto.DesignationResponse, error)
}

type designationServiceImpl struct {
	designations DesignationStore
	soldiers     SoldierStore
	units        UnitStore
	authz        *auth.AuthorizationService
	logger       zerolog.Logger
	now          func() time.Time
}

// NewDesignationService creates a new DesignationService
func NewDesignationService(designations DesignationStore, soldiers SoldierStore, units UnitStore, authz *auth.AuthorizationService, logger zerolog.Logger) DesignationService {
	return &designationServiceImpl{
		designations: designations,
		soldiers:     soldiers,
		units:        units,
		authz:        authz,
		logger:       logger,
		now:          time.Now,
	}
}

// ListTypes returns the designation types a soldier can be given
func (s *designationServiceImpl) ListTypes(ctx context.Context) ([]*models.Designation, error) {
	return s.designations.ListTypes(ctx)
}

// ListDesignations returns the designations of one soldier, or with soldierID ALL
// every designation held in or by members of the requester's managed units.
// currentOnly drops designations outside their date window.
func (s *designationServiceImpl) ListDesignations(ctx context.Context, requesterID, soldierID string, currentOnly bool) ([]dto.DesignationView, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}

	var found []*models.SoldierDesignation
	if soldierID == AllDesignations {
		managed, err := s.authz.ManagedUnits(ctx, requesterID)
		if err != nil {
			return nil, err
		}
		inUnits, err := s.designations.ListForUnits(ctx, managed)
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
		held, err := s.designations.ListForSoldiers(ctx, ids)
		if err != nil {
			return nil, err
		}
		found = append(held, inUnits...)
	} else {
		soldier, err := s.soldiers.GetByID(ctx, soldierID)
		if err != nil {
			return nil, err
		}
		if err := s.authz.RequireSoldierAccess(ctx, requesterID, soldier); err != nil {
			return nil, err
		}
		found, err = s.designations.ListForSoldiers(ctx, []string{soldier.UserID})
		if err != nil {
			return nil, err
		}
	}

	views, err := s.views(ctx, found)
	if err != nil {
		return nil, err
	}
	if !currentOnly {
		return views, nil
	}
	current := make([]dto.DesignationView, 0, len(views))
	for _, v := range views {
		if v.Active {
			current = append(current, v)
		}
	}
	return current, nil
}

func (s *designationServiceImpl) views(ctx context.Context, found []*models.SoldierDesignation) ([]dto.DesignationView, error) {
	var soldierIDs, uics []string
	seen := make(map[int64]bool, len(found))
	unique := make([]*models.SoldierDesignation, 0, len(found))
	for _, d := range found {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		unique = append(unique, d)
		soldierIDs = append(soldierIDs, d.SoldierID)
		if d.UnitUIC != nil {
			uics = append(uics, *d.UnitUIC)
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
	out := make([]dto.DesignationView, 0, len(unique))
	for _, d := range unique {
		v := dto.DesignationView{SoldierDesignation: *d, Active: d.IsActive(today)}
		if soldier := soldiers[d.SoldierID]; soldier != nil {
			v.SoldierName = helpers.StringPtr(soldier.NameAndRank())
		}
		if d.UnitUIC != nil {
			if name, ok := unitNames[*d.UnitUIC]; ok {
				v.UnitShortName = helpers.StringPtr(name)
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// CreateDesignation gives a soldier a designation within a unit
func (s *designationServiceImpl) CreateDesignation(ctx context.Context, requesterID string, req *dto.CreateDesignationRequest) (*dto.DesignationResponse, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}
	soldier, err := s.soldiers.GetByID(ctx, req.SoldierID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireSoldierAccess(ctx, requesterID, soldier); err != nil {
		return nil, err
	}
	unit, err := s.units.GetByUIC(ctx, req.UnitUIC)
	if err != nil {
		return nil, err
	}
	designation, err := s.designations.FindType(ctx, req.Designation)
	if err != nil {
		return nil, err
	}

	start, err := helpers.ParseISODate(req.StartDate)
	if err != nil {
		return nil, apperrors.NewValidationError("start_date", fmt.Sprintf("Invalid start_date format. Expected YYYY-MM-DD, got: %s", req.StartDate))
	}
	var end *time.Time
	if req.EndDate != nil && *req.EndDate != "" {
		d, err := helpers.ParseISODate(*req.EndDate)
		if err != nil {
			return nil, apperrors.NewValidationError("end_date", fmt.Sprintf("Invalid end_date format. Expected YYYY-MM-DD, got: %s", *req.EndDate))
		}
		if d.Before(start) {
			return nil, apperrors.NewValidationError("end_date", "End date cannot be before start date.")
		}
		end = &d
	}

	assignment := &models.SoldierDesignation{
		SoldierID:              soldier.UserID,
		DesignationID:          designation.ID,
		DesignationType:        designation.Type,
		DesignationDescription: designation.Description,
		UnitUIC:                &unit.UIC,
		StartDate:              start,
		EndDate:                end,
		CreatedBy:              helpers.StringPtr(requesterID),
		LastModifiedBy:         helpers.StringPtr(requesterID),
	}
	if err := s.designations.Create(ctx, assignment); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("designationID", assignment.ID).
		Str("soldierID", soldier.UserID).
		Str("type", designation.Type).
		Str("by", requesterID).
		Msg("Soldier designation created")
	return &dto.DesignationResponse{
		Message:       fmt.Sprintf("Designation '%s' created for %s", designation.Type, soldier.NameAndRank()),
		DesignationID: assignment.ID,
	}, nil
}

// RemoveDesignation hides a designation from the soldier's record
func (s *designationServiceImpl) RemoveDesignation(ctx context.Context, requesterID string, id int64) (*dto.DesignationResponse, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}
	assignment, err := s.designations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	soldier, err := s.soldiers.GetByID(ctx, assignment.SoldierID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireSoldierAccess(ctx, requesterID, soldier); err != nil {
		return nil, err
	}
	if err := s.designations.Remove(ctx, id, requesterID); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("designationID", id).Str("by", requesterID).Msg("Soldier designation removed")
	return &dto.DesignationResponse{Message: "Designation removed successfully", DesignationID: id}, nil
}
