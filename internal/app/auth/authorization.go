package auth

import (
	"context"
	"errors"
	"sort"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/logger"
)

// SoldierStore is the soldier lookup used for authorization
type SoldierStore interface {
	GetByID(ctx context.Context, userID string) (*models.Soldier, error)
}

// RoleStore is the role lookup used for authorization
type RoleStore interface {
	ListByUser(ctx context.Context, userID string) ([]*models.UserRole, error)
}

// UnitStore is the unit lookup used for authorization
type UnitStore interface {
	GetByUIC(ctx context.Context, uic string) (*models.Unit, error)
	GetMany(ctx context.Context, uics []string) ([]*models.Unit, error)
	AllUICs(ctx context.Context) ([]string, error)
}

// AuthorizationService answers who may see and manage which units
type AuthorizationService struct {
	soldiers SoldierStore
	roles    RoleStore
	units    UnitStore
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(soldiers SoldierStore, roles RoleStore, units UnitStore) *AuthorizationService {
	return &AuthorizationService{
		soldiers: soldiers,
		roles:    roles,
		units:    units,
	}
}

// IsAdmin reports whether the user is a known administrator
func (s *AuthorizationService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	soldier, err := s.soldiers.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return false, nil
		}
		logger.Error().Err(err).Str("userID", userID).Msg("Error getting soldier in IsAdmin")
		return false, err
	}
	return soldier.IsAdmin, nil
}

// HasRoleForUnit reports whether the user holds a role, of any of the given levels
// when levels are passed, on the unit or one of its ancestors. Admins always pass.
func (s *AuthorizationService) HasRoleForUnit(ctx context.Context, userID string, unit *models.Unit, levels ...models.AccessLevel) (bool, error) {
	admin, err := s.IsAdmin(ctx, userID)
	if err != nil || admin {
		return admin, err
	}

	roles, err := s.roles.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}

	chain := make(map[string]bool, len(unit.ParentUICs)+1)
	chain[unit.UIC] = true
	for _, p := range unit.ParentUICs {
		chain[p] = true
	}

	for _, role := range roles {
		if chain[role.UnitUIC] && levelMatches(role.AccessLevel, levels) {
			return true, nil
		}
	}
	return false, nil
}

// HasRoleForUnits reports whether the user holds a role covering any of the units
func (s *AuthorizationService) HasRoleForUnits(ctx context.Context, userID string, uics []string, levels ...models.AccessLevel) (bool, error) {
	units, err := s.units.GetMany(ctx, uics)
	if err != nil {
		return false, err
	}
	for _, unit := range units {
		ok, err := s.HasRoleForUnit(ctx, userID, unit, levels...)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// RequireUnitRole returns an unauthorized error unless the user may see the unit
func (s *AuthorizationService) RequireUnitRole(ctx context.Context, userID string, unit *models.Unit) error {
	ok, err := s.HasRoleForUnit(ctx, userID, unit)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewUnauthorizedError(apperrors.MsgNoUnitRole)
	}
	return nil
}

// RequireSoldierAccess returns an unauthorized error unless the requester is the
// soldier or holds a role on the soldier's unit chain
func (s *AuthorizationService) RequireSoldierAccess(ctx context.Context, requesterID string, soldier *models.Soldier) error {
	if requesterID == soldier.UserID {
		return nil
	}
	unit, err := s.units.GetByUIC(ctx, soldier.UnitUIC)
	if err != nil {
		return err
	}
	ok, err := s.HasRoleForUnit(ctx, requesterID, unit)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewUnauthorizedError(apperrors.MsgNoSoldierRole)
	}
	return nil
}

// RoleHierarchies returns, for the given level, the union of each role unit and its
// subordinates, sorted
func (s *AuthorizationService) RoleHierarchies(ctx context.Context, userID string, level models.AccessLevel) ([]string, error) {
	roles, err := s.roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var roots []string
	for _, role := range roles {
		if role.AccessLevel == level {
			roots = append(roots, role.UnitUIC)
		}
	}
	return s.expand(ctx, roots)
}

// ManagedUnits returns every unit for admins, otherwise the units of the user's
// manager roles with their subordinates, sorted
func (s *AuthorizationService) ManagedUnits(ctx context.Context, userID string) ([]string, error) {
	admin, err := s.IsAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	if admin {
		return s.units.AllUICs(ctx)
	}
	return s.RoleHierarchies(ctx, userID, models.AccessManager)
}

// CanManageUnit reports whether the user is an admin or manages the unit chain
func (s *AuthorizationService) CanManageUnit(ctx context.Context, userID string, unit *models.Unit) (bool, error) {
	return s.HasRoleForUnit(ctx, userID, unit, models.AccessManager)
}

func (s *AuthorizationService) expand(ctx context.Context, roots []string) ([]string, error) {
	if len(roots) == 0 {
		return []string{}, nil
	}
	units, err := s.units.GetMany(ctx, roots)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, unit := range units {
		for _, uic := range unit.SubordinateUnitHierarchy(true) {
			seen[uic] = true
		}
	}
	out := make([]string, 0, len(seen))
	for uic := range seen {
		out = append(out, uic)
	}
	sort.Strings(out)
	return out, nil
}

func levelMatches(level models.AccessLevel, levels []models.AccessLevel) bool {
	if len(levels) == 0 {
		return true
	}
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}
