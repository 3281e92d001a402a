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

var soldierDesignationColumns = []string{
	"sd.id", "sd.soldier_id", "sd.designation_id", "d.type", "d.description", "sd.unit_uic",
	"sd.start_date", "sd.end_date", "sd.created_by", "sd.last_modified_by", "sd.designation_removed",
}

// DesignationRepository handles designation types and their assignment to soldiers
type DesignationRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewDesignationRepository creates a new DesignationRepository
func NewDesignationRepository(pool *pgxpool.Pool) *DesignationRepository {
	return &DesignationRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListTypes lists every designation ordered by type
func (r *DesignationRepository) ListTypes(ctx context.Context) ([]*models.Designation, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `SELECT id, type, description FROM designations ORDER BY type, id`)
	if err != nil {
		return nil, fmt.Errorf("error querying designations: %w", err)
	}
	defer rows.Close()

	out := []*models.Designation{}
	for rows.Next() {
		var d models.Designation
		if err := rows.Scan(&d.ID, &d.Type, &d.Description); err != nil {
			return nil, fmt.Errorf("error scanning designation: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// FindType retrieves the first designation of the given type
func (r *DesignationRepository) FindType(ctx context.Context, designationType string) (*models.Designation, error) {
	var d models.Designation
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, type, description FROM designations WHERE type = $1 ORDER BY id LIMIT 1`, designationType).
		Scan(&d.ID, &d.Type, &d.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError(apperrors.MsgDesignationNotFound)
		}
		return nil, fmt.Errorf("error retrieving designation: %w", err)
	}
	return &d, nil
}

// UpsertDesignation creates a designation unless the type and description already exist
func (r *DesignationRepository) UpsertDesignation(ctx context.Context, d *models.Designation) error {
	_, err := db.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO designations (type, description) VALUES ($1, $2)
		ON CONFLICT (type, description) DO NOTHING`, d.Type, d.Description)
	if err != nil {
		return fmt.Errorf("error upserting designation: %w", err)
	}
	return nil
}

func scanSoldierDesignation(row pgx.Row) (*models.SoldierDesignation, error) {
	var d models.SoldierDesignation
	err := row.Scan(
		&d.ID, &d.SoldierID, &d.DesignationID, &d.DesignationType, &d.DesignationDescription, &d.UnitUIC,
		&d.StartDate, &d.EndDate, &d.CreatedBy, &d.LastModifiedBy, &d.DesignationRemoved,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DesignationRepository) selectAssignments() squirrel.SelectBuilder {
	return r.sb.Select(soldierDesignationColumns...).
		From("soldier_designations sd").
		Join("designations d ON d.id = sd.designation_id")
}

// Create assigns a designation to a soldier
func (r *DesignationRepository) Create(ctx context.Context, d *models.SoldierDesignation) error {
	sql, args, err := r.sb.Insert("soldier_designations").
		Columns("soldier_id", "designation_id", "unit_uic", "start_date", "end_date",
			"created_by", "last_modified_by", "designation_removed").
		Values(d.SoldierID, d.DesignationID, d.UnitUIC, d.StartDate, d.EndDate,
			d.CreatedBy, d.LastModifiedBy, d.DesignationRemoved).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if err := db.Conn(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&d.ID); err != nil {
		logger.Error().Err(err).Str("soldierID", d.SoldierID).Msg("Error creating soldier designation")
		return fmt.Errorf("error creating soldier designation: %w", err)
	}
	return nil
}

// GetByID retrieves a designation assignment that was not removed
func (r *DesignationRepository) GetByID(ctx context.Context, id int64) (*models.SoldierDesignation, error) {
	sql, args, err := r.selectAssignments().
		Where(squirrel.Eq{"sd.id": id, "sd.designation_removed": false}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	d, err := scanSoldierDesignation(db.Conn(ctx, r.db).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError(apperrors.MsgDesignationNotFound)
		}
		return nil, fmt.Errorf("error retrieving soldier designation: %w", err)
	}
	return d, nil
}

// Remove hides an assignment and records who removed it
func (r *DesignationRepository) Remove(ctx context.Context, id int64, modifiedBy string) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`UPDATE soldier_designations SET designation_removed = TRUE, last_modified_by = $1
		WHERE id = $2 AND NOT designation_removed`, modifiedBy, id)
	if err != nil {
		return fmt.Errorf("error removing soldier designation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(apperrors.MsgDesignationNotFound)
	}
	return nil
}

// ListForSoldiers retrieves the assignments of the given soldiers
func (r *DesignationRepository) ListForSoldiers(ctx context.Context, soldierIDs []string) ([]*models.SoldierDesignation, error) {
	if len(soldierIDs) == 0 {
		return []*models.SoldierDesignation{}, nil
	}
	return r.list(ctx, squirrel.Eq{"sd.soldier_id": soldierIDs, "sd.designation_removed": false})
}

// ListForUnits retrieves the assignments held in the given units
func (r *DesignationRepository) ListForUnits(ctx context.Context, uics []string) ([]*models.SoldierDesignation, error) {
	if len(uics) == 0 {
		return []*models.SoldierDesignation{}, nil
	}
	return r.list(ctx, squirrel.Eq{"sd.unit_uic": uics, "sd.designation_removed": false})
}

func (r *DesignationRepository) listQuery(where squirrel.Sqlizer) squirrel.SelectBuilder {
	return r.selectAssignments().Where(where).OrderBy("sd.start_date DESC", "sd.id")
}

func (r *DesignationRepository) list(ctx context.Context, where squirrel.Sqlizer) ([]*models.SoldierDesignation, error) {
	sql, args, err := r.listQuery(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying soldier designations")
		return nil, fmt.Errorf("error querying soldier designations: %w", err)
	}
	defer rows.Close()

	out := []*models.SoldierDesignation{}
	for rows.Next() {
		d, err := scanSoldierDesignation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning soldier designation: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
