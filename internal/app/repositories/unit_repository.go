package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/db"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/dberrors"
	"github.com/ai2c/amap/internal/pkg/helpers"
	"github.com/ai2c/amap/internal/pkg/hierarchy"
	"github.com/ai2c/amap/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// hierarchyLockKey serializes hierarchy rebuilds across instances
const hierarchyLockKey int64 = 0x414d4150

var unitColumns = []string{
	"uic", "short_name", "display_name", "nick_name", "echelon", "compo", "state", "parent_uic",
	"parent_uics", "child_uics", "subordinate_uics", "level", "start_date", "end_date", "as_of_logical_time",
}

// unitSortColumns whitelists sort_by values
var unitSortColumns = map[string]string{
	"uic":          "uic",
	"short_name":   "short_name",
	"display_name": "display_name",
	"echelon":      "echelon",
	"level":        "level",
}

// UnitFilter holds list filters and pagination
type UnitFilter struct {
	UICs          []string
	Echelon       string
	Compo         string
	State         string
	Search        string
	TaskForceOnly bool
	SortBy        string
	Page          int
	Size          int
}

// UnitRepository handles database operations for units
type UnitRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewUnitRepository creates a new UnitRepository
func NewUnitRepository(pool *pgxpool.Pool) *UnitRepository {
	return &UnitRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanUnit(row pgx.Row) (*models.Unit, error) {
	var u models.Unit
	err := row.Scan(
		&u.UIC, &u.ShortName, &u.DisplayName, &u.NickName, &u.Echelon, &u.Compo, &u.State, &u.ParentUIC,
		&u.ParentUICs, &u.ChildUICs, &u.SubordinateUICs, &u.Level, &u.StartDate, &u.EndDate, &u.AsOfLogicalTime,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUIC retrieves a unit by its UIC
func (r *UnitRepository) GetByUIC(ctx context.Context, uic string) (*models.Unit, error) {
	sql, args, err := r.sb.Select(unitColumns...).From("units").Where(squirrel.Eq{"uic": uic}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	unit, err := scanUnit(db.Conn(ctx, r.db).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError(apperrors.MsgUnitNotFound)
		}
		logger.Error().Err(err).Str("uic", uic).Msg("Error retrieving unit")
		return nil, fmt.Errorf("error retrieving unit: %w", err)
	}
	return unit, nil
}

// FindByShortName returns the first unit with the given short name
func (r *UnitRepository) FindByShortName(ctx context.Context, shortName string) (*models.Unit, error) {
	sql, args, err := r.sb.Select(unitColumns...).From("units").
		Where(squirrel.Eq{"short_name": shortName}).OrderBy("uic").Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	unit, err := scanUnit(db.Conn(ctx, r.db).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError(apperrors.MsgUnitNotFound)
		}
		return nil, fmt.Errorf("error retrieving unit: %w", err)
	}
	return unit, nil
}

// Exists checks whether a unit exists
func (r *UnitRepository) Exists(ctx context.Context, uic string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM units WHERE uic = $1)`, uic).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking unit existence: %w", err)
	}
	return exists, nil
}

// GetMany retrieves the given units ordered by UIC
func (r *UnitRepository) GetMany(ctx context.Context, uics []string) ([]*models.Unit, error) {
	if len(uics) == 0 {
		return []*models.Unit{}, nil
	}
	sql, args, err := r.sb.Select(unitColumns...).From("units").
		Where(squirrel.Eq{"uic": uics}).OrderBy("uic").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	return r.queryUnits(ctx, sql, args...)
}

// List retrieves units matching the filter with the total count
func (r *UnitRepository) List(ctx context.Context, f UnitFilter) ([]*models.Unit, int64, error) {
	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("units").Where(unitListWhere(f)).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}
	var total int64
	if err := db.Conn(ctx, r.db).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting units")
		return nil, 0, fmt.Errorf("error counting units: %w", err)
	}

	sql, args, err := r.listQuery(f).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}

	units, err := r.queryUnits(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	return units, total, nil
}

// listQuery selects one page of units. Unknown sort_by values order by uic.
func (r *UnitRepository) listQuery(f UnitFilter) squirrel.SelectBuilder {
	orderBy, ok := unitSortColumns[f.SortBy]
	if !ok {
		orderBy = "uic"
	}
	offset, limit := helpers.CalculateOffsetLimit(f.Page, f.Size)
	return r.sb.Select(unitColumns...).From("units").Where(unitListWhere(f)).
		OrderBy(orderBy, "uic").Offset(offset).Limit(uint64(limit))
}

// unitListWhere builds the filter conditions. A non-nil empty UICs matches nothing.
func unitListWhere(f UnitFilter) squirrel.And {
	where := squirrel.And{}
	if f.UICs != nil {
		where = append(where, squirrel.Eq{"uic": f.UICs})
	}
	if f.Echelon != "" {
		where = append(where, squirrel.Eq{"echelon": f.Echelon})
	}
	if f.Compo != "" {
		where = append(where, squirrel.Eq{"compo": f.Compo})
	}
	if f.State != "" {
		where = append(where, squirrel.Eq{"state": f.State})
	}
	if f.TaskForceOnly {
		where = append(where, squirrel.Like{"uic": models.TaskForcePrefix + "%"})
	}
	if f.Search != "" {
		pattern := "%" + helpers.EscapeLike(f.Search) + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{"short_name": pattern},
			squirrel.ILike{"display_name": pattern},
		})
	}
	return where
}

func (r *UnitRepository) queryUnits(ctx context.Context, sql string, args ...interface{}) ([]*models.Unit, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying units")
		return nil, fmt.Errorf("error querying units: %w", err)
	}
	defer rows.Close()

	units := []*models.Unit{}
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning unit: %w", err)
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// Create inserts a new unit
func (r *UnitRepository) Create(ctx context.Context, u *models.Unit) error {
	sql, args, err := r.sb.Insert("units").
		Columns("uic", "short_name", "display_name", "nick_name", "echelon", "compo", "state", "parent_uic", "start_date", "end_date").
		Values(u.UIC, u.ShortName, u.DisplayName, u.NickName, u.Echelon, u.Compo, u.State, u.ParentUIC, u.StartDate, u.EndDate).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if _, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrResourceAlreadyExists
		}
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewBadRequestError("Parent unit does not exist.")
		}
		logger.Error().Err(err).Str("uic", u.UIC).Msg("Error creating unit")
		return fmt.Errorf("error creating unit: %w", err)
	}
	return nil
}

// UpdateAttributes writes the non-hierarchy columns of a unit
func (r *UnitRepository) UpdateAttributes(ctx context.Context, u *models.Unit) error {
	sql, args, err := r.sb.Update("units").
		Set("short_name", u.ShortName).
		Set("display_name", u.DisplayName).
		Set("nick_name", u.NickName).
		Set("echelon", u.Echelon).
		Set("compo", u.Compo).
		Set("state", u.State).
		Set("start_date", u.StartDate).
		Set("end_date", u.EndDate).
		Where(squirrel.Eq{"uic": u.UIC}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("uic", u.UIC).Msg("Error updating unit")
		return fmt.Errorf("error updating unit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(apperrors.MsgUnitNotFound)
	}
	return nil
}

// SetParent changes the parent link of a unit. Derived lists are rebuilt separately.
func (r *UnitRepository) SetParent(ctx context.Context, uic string, parent *string) error {
	sql, args, err := r.sb.Update("units").Set("parent_uic", parent).Where(squirrel.Eq{"uic": uic}).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error setting parent of %s: %w", uic, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(apperrors.MsgUnitNotFound)
	}
	return nil
}

// SetCompo sets the component of the given units
func (r *UnitRepository) SetCompo(ctx context.Context, uics []string, compo string) (int64, error) {
	if len(uics) == 0 {
		return 0, nil
	}
	sql, args, err := r.sb.Update("units").Set("compo", compo).
		Where(squirrel.Eq{"uic": uics}).Where(squirrel.NotEq{"compo": compo}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error setting compo: %w", err)
	}
	return tag.RowsAffected(), nil
}

// LockHierarchy takes the hierarchy advisory lock for the current transaction
func (r *UnitRepository) LockHierarchy(ctx context.Context) error {
	if _, ok := db.TxFromContext(ctx); !ok {
		return errors.New("hierarchy lock requires a transaction")
	}
	return db.AdvisoryLock(ctx, db.Conn(ctx, r.db), hierarchyLockKey)
}

// ParentLinks returns every unit mapped to its parent, empty for roots
func (r *UnitRepository) ParentLinks(ctx context.Context) (map[string]string, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `SELECT uic, COALESCE(parent_uic, '') FROM units`)
	if err != nil {
		return nil, fmt.Errorf("error reading parent links: %w", err)
	}
	defer rows.Close()

	links := make(map[string]string)
	for rows.Next() {
		var uic, parent string
		if err := rows.Scan(&uic, &parent); err != nil {
			return nil, fmt.Errorf("error scanning parent link: %w", err)
		}
		links[uic] = parent
	}
	return links, rows.Err()
}

// StoredLineages returns the derived lists as currently stored
func (r *UnitRepository) StoredLineages(ctx context.Context) (map[string]hierarchy.Lineage, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `SELECT uic, parent_uics, child_uics, subordinate_uics, level FROM units`)
	if err != nil {
		return nil, fmt.Errorf("error reading lineages: %w", err)
	}
	defer rows.Close()

	out := make(map[string]hierarchy.Lineage)
	for rows.Next() {
		var uic string
		var l hierarchy.Lineage
		if err := rows.Scan(&uic, &l.ParentUICs, &l.ChildUICs, &l.SubordinateUICs, &l.Level); err != nil {
			return nil, fmt.Errorf("error scanning lineage: %w", err)
		}
		out[uic] = l
	}
	return out, rows.Err()
}

// UpdateLineages writes derived lists stamped with the logical time
func (r *UnitRepository) UpdateLineages(ctx context.Context, lineages map[string]hierarchy.Lineage, logicalTime int64) error {
	batch := &pgx.Batch{}
	for uic, l := range lineages {
		batch.Queue(`UPDATE units SET parent_uics = $1, child_uics = $2, subordinate_uics = $3, level = $4, as_of_logical_time = $5 WHERE uic = $6`,
			nonNil(l.ParentUICs), nonNil(l.ChildUICs), nonNil(l.SubordinateUICs), l.Level, logicalTime, uic)
	}
	if batch.Len() == 0 {
		return nil
	}

	results := db.Conn(ctx, r.db).SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			logger.Error().Err(err).Msg("Error writing unit lineage")
			return fmt.Errorf("error writing lineage: %w", err)
		}
	}
	return results.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func queryStrings(ctx context.Context, q db.Querier, sql string, args ...interface{}) ([]string, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("error scanning: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AllUICs returns every unit identifier, sorted
func (r *UnitRepository) AllUICs(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, db.Conn(ctx, r.db), `SELECT uic FROM units ORDER BY uic`)
}
