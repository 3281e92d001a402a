package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/db"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoleRepository handles database operations for user roles
type RoleRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewRoleRepository creates a new RoleRepository
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *RoleRepository) selectRoles() squirrel.SelectBuilder {
	return r.sb.Select("id", "user_id", "unit_uic", "access_level").From("user_roles")
}

func (r *RoleRepository) queryRoles(ctx context.Context, q squirrel.SelectBuilder) ([]*models.UserRole, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying user roles")
		return nil, fmt.Errorf("error querying user roles: %w", err)
	}
	defer rows.Close()

	roles := []*models.UserRole{}
	for rows.Next() {
		var role models.UserRole
		if err := rows.Scan(&role.ID, &role.UserID, &role.UnitUIC, &role.AccessLevel); err != nil {
			return nil, fmt.Errorf("error scanning user role: %w", err)
		}
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}

// ListByUser retrieves the roles held by a user
func (r *RoleRepository) ListByUser(ctx context.Context, userID string) ([]*models.UserRole, error) {
	return r.queryRoles(ctx, r.selectRoles().Where(squirrel.Eq{"user_id": userID}).OrderBy("unit_uic"))
}

// ListByUnitsAndLevel retrieves roles of a level held on any of the given units
func (r *RoleRepository) ListByUnitsAndLevel(ctx context.Context, uics []string, level models.AccessLevel) ([]*models.UserRole, error) {
	if len(uics) == 0 {
		return []*models.UserRole{}, nil
	}
	return r.queryRoles(ctx, r.selectRoles().
		Where(squirrel.Eq{"unit_uic": uics, "access_level": level}).OrderBy("unit_uic", "user_id"))
}

// UserIDsWithLevels returns the distinct users holding any of the levels
func (r *RoleRepository) UserIDsWithLevels(ctx context.Context, levels []models.AccessLevel) ([]string, error) {
	sql, args, err := r.sb.Select("DISTINCT user_id").From("user_roles").
		Where(squirrel.Eq{"access_level": levels}).OrderBy("user_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	return queryStrings(ctx, db.Conn(ctx, r.db), sql, args...)
}

// GetByID retrieves a role by id
func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*models.UserRole, error) {
	roles, err := r.queryRoles(ctx, r.selectRoles().Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, apperrors.NewResourceNotFoundError("User Role does not exist.")
	}
	return roles[0], nil
}

// Upsert grants level on uic, updating the level of an existing role
func (r *RoleRepository) Upsert(ctx context.Context, userID, uic string, level models.AccessLevel) (*models.UserRole, error) {
	role := models.UserRole{UserID: userID, UnitUIC: uic, AccessLevel: level}
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO user_roles (user_id, unit_uic, access_level) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, unit_uic) DO UPDATE SET access_level = EXCLUDED.access_level
		RETURNING id`, userID, uic, level).Scan(&role.ID)
	if err != nil {
		logger.Error().Err(err).Str("userID", userID).Str("uic", uic).Msg("Error granting user role")
		return nil, fmt.Errorf("error granting user role: %w", err)
	}
	return &role, nil
}

// Delete removes a role
func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM user_roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting user role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("User Role does not exist.")
	}
	return nil
}

// GetLevel returns the level a user holds directly on uic, if any
func (r *RoleRepository) GetLevel(ctx context.Context, userID, uic string) (*models.AccessLevel, error) {
	var level models.AccessLevel
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT access_level FROM user_roles WHERE user_id = $1 AND unit_uic = $2`, userID, uic).Scan(&level)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading user role: %w", err)
	}
	return &level, nil
}
