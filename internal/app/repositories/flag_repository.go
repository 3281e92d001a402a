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

var flagColumns = []string{
	"id", "soldier_id", "unit_uic", "flag_type", "admin_flag_info", "unit_position_flag_info",
	"tasking_flag_info", "profile_flag_info", "mx_availability", "start_date", "end_date",
	"flag_remarks", "last_modified_by", "created_by", "flag_deleted",
}

// FlagRepository handles database operations for soldier flags
type FlagRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewFlagRepository creates a new FlagRepository
func NewFlagRepository(pool *pgxpool.Pool) *FlagRepository {
	return &FlagRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanFlag(row pgx.Row) (*models.SoldierFlag, error) {
	var f models.SoldierFlag
	err := row.Scan(
		&f.ID, &f.SoldierID, &f.UnitUIC, &f.FlagType, &f.AdminFlagInfo, &f.UnitPositionFlagInfo,
		&f.TaskingFlagInfo, &f.ProfileFlagInfo, &f.MxAvailability, &f.StartDate, &f.EndDate,
		&f.FlagRemarks, &f.LastModifiedBy, &f.CreatedBy, &f.FlagDeleted,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a new flag
func (r *FlagRepository) Create(ctx context.Context, f *models.SoldierFlag) error {
	sql, args, err := r.sb.Insert("soldier_flags").
		Columns(flagColumns[1:]...).
		Values(f.SoldierID, f.UnitUIC, f.FlagType, f.AdminFlagInfo, f.UnitPositionFlagInfo,
			f.TaskingFlagInfo, f.ProfileFlagInfo, f.MxAvailability, f.StartDate, f.EndDate,
			f.FlagRemarks, f.LastModifiedBy, f.CreatedBy, f.FlagDeleted).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if err := db.Conn(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&f.ID); err != nil {
		logger.Error().Err(err).Msg("Error creating soldier flag")
		return fmt.Errorf("error creating soldier flag: %w", err)
	}
	return nil
}

// GetByID retrieves a non-deleted flag
func (r *FlagRepository) GetByID(ctx context.Context, id int64) (*models.SoldierFlag, error) {
	sql, args, err := r.sb.Select(flagColumns...).From("soldier_flags").
		Where(squirrel.Eq{"id": id, "flag_deleted": false}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	flag, err := scanFlag(db.Conn(ctx, r.db).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError(apperrors.MsgFlagNotFound)
		}
		return nil, fmt.Errorf("error retrieving soldier flag: %w", err)
	}
	return flag, nil
}

// Update writes every mutable column of a flag
func (r *FlagRepository) Update(ctx context.Context, f *models.SoldierFlag) error {
	sql, args, err := r.sb.Update("soldier_flags").
		Set("flag_type", f.FlagType).
		Set("admin_flag_info", f.AdminFlagInfo).
		Set("unit_position_flag_info", f.UnitPositionFlagInfo).
		Set("tasking_flag_info", f.TaskingFlagInfo).
		Set("profile_flag_info", f.ProfileFlagInfo).
		Set("mx_availability", f.MxAvailability).
		Set("start_date", f.StartDate).
		Set("end_date", f.EndDate).
		Set("flag_remarks", f.FlagRemarks).
		Set("last_modified_by", f.LastModifiedBy).
		Where(squirrel.Eq{"id": f.ID, "flag_deleted": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("flagID", f.ID).Msg("Error updating soldier flag")
		return fmt.Errorf("error updating soldier flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(apperrors.MsgFlagNotFound)
	}
	return nil
}

// SoftDelete marks a flag deleted
func (r *FlagRepository) SoftDelete(ctx context.Context, id int64, modifiedBy string) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`UPDATE soldier_flags SET flag_deleted = TRUE, last_modified_by = $1 WHERE id = $2 AND NOT flag_deleted`, modifiedBy, id)
	if err != nil {
		return fmt.Errorf("error deleting soldier flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(apperrors.MsgFlagNotFound)
	}
	return nil
}

// ListForSoldiers retrieves non-deleted flags placed on the given soldiers
func (r *FlagRepository) ListForSoldiers(ctx context.Context, soldierIDs []string) ([]*models.SoldierFlag, error) {
	if len(soldierIDs) == 0 {
		return []*models.SoldierFlag{}, nil
	}
	return r.list(ctx, squirrel.Eq{"soldier_id": soldierIDs, "flag_deleted": false})
}

// ListForUnits retrieves non-deleted unit flags of the given units
func (r *FlagRepository) ListForUnits(ctx context.Context, uics []string) ([]*models.SoldierFlag, error) {
	if len(uics) == 0 {
		return []*models.SoldierFlag{}, nil
	}
	return r.list(ctx, squirrel.And{
		squirrel.Eq{"unit_uic": uics, "flag_deleted": false},
		squirrel.Eq{"soldier_id": nil},
	})
}

func (r *FlagRepository) list(ctx context.Context, where squirrel.Sqlizer) ([]*models.SoldierFlag, error) {
	sql, args, err := r.sb.Select(flagColumns...).From("soldier_flags").Where(where).
		OrderBy("start_date DESC", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying soldier flags")
		return nil, fmt.Errorf("error querying soldier flags: %w", err)
	}
	defer rows.Close()

	flags := []*models.SoldierFlag{}
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning soldier flag: %w", err)
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}
