package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/db"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var faultColumns = []string{
	"f.id", "f.aircraft", "f.unit_uic", "f.discovered_by_name", "f.discovered_by_id", "f.status_code",
	"f.system_code", "f.when_discovered_code", "f.how_recognized_code", "f.malfunction_effect_code",
	"f.failure_code", "f.corrective_action_code", "f.maintenance_level_code", "f.discovery_date_time",
	"f.corrective_date_time", "f.status", "f.remarks", "f.maintenance_delay", "f.fault_work_unit_code",
	"f.total_man_hours", "f.source",
}

var actionColumns = []string{
	"a.id", "a.fault_id", "a.discovery_date_time", "a.closed_date_time", "a.closed_by_id",
	"a.maintenance_action", "a.corrective_action", "a.status_code", "a.fault_work_unit_code",
	"a.technical_inspector_id", "a.maintenance_level_code", "a.corrective_action_code",
	"a.sequence_number", "a.source",
}

// MaintainerLink is a maintainer on an action with display name
type MaintainerLink struct {
	FaultActionID string
	SoldierID     string
	NameAndRank   string
	ManHours      float64
}

// FaultRoleRow is one action a soldier touched and in what role
type FaultRoleRow struct {
	FaultActionID     string
	FaultID           string
	Role              string
	Aircraft          string
	FaultWorkUnitCode *string
	DiscoveryDateTime *time.Time
	MaintenanceAction *string
	ManHours          float64
}

// FaultRepository handles database operations for faults and fault actions
type FaultRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewFaultRepository creates a new FaultRepository
func NewFaultRepository(pool *pgxpool.Pool) *FaultRepository {
	return &FaultRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanFault(row pgx.Row) (*models.Fault, error) {
	var f models.Fault
	err := row.Scan(
		&f.ID, &f.Aircraft, &f.UnitUIC, &f.DiscoveredByName, &f.DiscoveredByID, &f.StatusCode,
		&f.SystemCode, &f.WhenDiscoveredCode, &f.HowRecognizedCode, &f.MalfunctionEffect,
		&f.FailureCode, &f.CorrectiveActionCode, &f.MaintenanceLevelCode, &f.DiscoveryDateTime,
		&f.CorrectiveDateTime, &f.Status, &f.Remarks, &f.MaintenanceDelay, &f.FaultWorkUnitCode,
		&f.TotalManHours, &f.Source,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanAction(row pgx.Row) (*models.FaultAction, error) {
	var a models.FaultAction
	err := row.Scan(
		&a.ID, &a.FaultID, &a.DiscoveryDateTime, &a.ClosedDateTime, &a.ClosedByID,
		&a.MaintenanceAction, &a.CorrectiveAction, &a.StatusCode, &a.FaultWorkUnitCode,
		&a.TechnicalInspectorID, &a.MaintenanceLevelCode, &a.CorrectiveActionCode,
		&a.SequenceNumber, &a.Source,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetFault retrieves a fault by its 13-1 id
func (r *FaultRepository) GetFault(ctx context.Context, id string) (*models.Fault, error) {
	sql, args, err := r.sb.Select(faultColumns...).From("faults f").Where(squirrel.Eq{"f.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	fault, err := scanFault(db.Conn(ctx, r.db).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError(apperrors.MsgFaultNotFound)
		}
		logger.Error().Err(err).Str("faultID", id).Msg("Error retrieving fault")
		return nil, fmt.Errorf("error retrieving fault: %w", err)
	}
	return fault, nil
}

// ListActions retrieves the actions of the given faults ordered by sequence number
func (r *FaultRepository) ListActions(ctx context.Context, faultIDs []string) ([]*models.FaultAction, error) {
	if len(faultIDs) == 0 {
		return []*models.FaultAction{}, nil
	}
	sql, args, err := r.sb.Select(actionColumns...).From("fault_actions a").
		Where(squirrel.Eq{"a.fault_id": faultIDs}).OrderBy("a.fault_id", "a.sequence_number", "a.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	return r.queryActions(ctx, sql, args...)
}

func (r *FaultRepository) queryActions(ctx context.Context, sql string, args ...interface{}) ([]*models.FaultAction, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying fault actions")
		return nil, fmt.Errorf("error querying fault actions: %w", err)
	}
	defer rows.Close()

	actions := []*models.FaultAction{}
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning fault action: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// ListMaintainers retrieves the maintainers of the given actions
func (r *FaultRepository) ListMaintainers(ctx context.Context, actionIDs []string) ([]MaintainerLink, error) {
	if len(actionIDs) == 0 {
		return []MaintainerLink{}, nil
	}
	sql, args, err := r.sb.Select("m.fault_action_id", "m.soldier_id", "s.rank || ' ' || s.first_name || ' ' || s.last_name", "m.man_hours").
		From("maintainer_fault_actions m").
		Join("soldiers s ON s.user_id = m.soldier_id").
		Where(squirrel.Eq{"m.fault_action_id": actionIDs}).
		OrderBy("m.fault_action_id", "s.last_name", "s.first_name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying maintainers: %w", err)
	}
	defer rows.Close()

	out := []MaintainerLink{}
	for rows.Next() {
		var m MaintainerLink
		if err := rows.Scan(&m.FaultActionID, &m.SoldierID, &m.NameAndRank, &m.ManHours); err != nil {
			return nil, fmt.Errorf("error scanning maintainer: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const soldierFaultRolesSQL = `
SELECT a.id, a.fault_id, roles.role, f.aircraft, a.fault_work_unit_code, a.discovery_date_time,
       a.maintenance_action, COALESCE(m.man_hours, 0)
FROM (
    SELECT fault_action_id AS action_id, 'Maintainer' AS role FROM maintainer_fault_actions WHERE soldier_id = $1
    UNION ALL
    SELECT id, 'Inspector' FROM fault_actions WHERE technical_inspector_id = $1
    UNION ALL
    SELECT id, 'Closer' FROM fault_actions WHERE closed_by_id = $1
    UNION ALL
    SELECT a2.id, 'Reporter' FROM fault_actions a2 JOIN faults f2 ON f2.id = a2.fault_id WHERE f2.discovered_by_id = $1
) roles
JOIN fault_actions a ON a.id = roles.action_id
JOIN faults f ON f.id = a.fault_id
LEFT JOIN maintainer_fault_actions m ON m.fault_action_id = a.id AND m.soldier_id = $1
ORDER BY a.discovery_date_time DESC NULLS LAST, a.id`

// SoldierFaultRoles lists every action the soldier maintained, inspected, closed or
// whose fault they reported. An action appears once per role.
func (r *FaultRepository) SoldierFaultRoles(ctx context.Context, userID string) ([]FaultRoleRow, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, soldierFaultRolesSQL, userID)
	if err != nil {
		logger.Error().Err(err).Str("userID", userID).Msg("Error querying soldier fault roles")
		return nil, fmt.Errorf("error querying soldier fault roles: %w", err)
	}
	defer rows.Close()

	out := []FaultRoleRow{}
	for rows.Next() {
		var row FaultRoleRow
		if err := rows.Scan(&row.FaultActionID, &row.FaultID, &row.Role, &row.Aircraft, &row.FaultWorkUnitCode,
			&row.DiscoveryDateTime, &row.MaintenanceAction, &row.ManHours); err != nil {
			return nil, fmt.Errorf("error scanning soldier fault role: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// FaultsMaintainedInWindow retrieves faults discovered in [from, to) on which the
// soldier maintained an action, newest first
func (r *FaultRepository) FaultsMaintainedInWindow(ctx context.Context, userID string, from, to time.Time) ([]*models.Fault, error) {
	sql, args, err := r.sb.Select(faultColumns...).From("faults f").
		Where(squirrel.Expr(`EXISTS (SELECT 1 FROM maintainer_fault_actions m JOIN fault_actions a ON a.id = m.fault_action_id
			WHERE a.fault_id = f.id AND m.soldier_id = ?)`, userID)).
		Where(squirrel.GtOrEq{"f.discovery_date_time": from}).
		Where(squirrel.Lt{"f.discovery_date_time": to}).
		OrderBy("f.discovery_date_time DESC", "f.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying maintained faults")
		return nil, fmt.Errorf("error querying maintained faults: %w", err)
	}
	defer rows.Close()

	faults := []*models.Fault{}
	for rows.Next() {
		f, err := scanFault(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning fault: %w", err)
		}
		faults = append(faults, f)
	}
	return faults, rows.Err()
}

// ActionsMaintainedBy retrieves the soldier's actions on the given faults
func (r *FaultRepository) ActionsMaintainedBy(ctx context.Context, userID string, faultIDs []string) ([]*models.FaultAction, error) {
	if len(faultIDs) == 0 {
		return []*models.FaultAction{}, nil
	}
	sql, args, err := r.sb.Select(actionColumns...).From("fault_actions a").
		Join("maintainer_fault_actions m ON m.fault_action_id = a.id").
		Where(squirrel.Eq{"m.soldier_id": userID, "a.fault_id": faultIDs}).
		OrderBy("a.fault_id", "a.sequence_number", "a.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	return r.queryActions(ctx, sql, args...)
}

// ExistingFaultIDs returns which of the given fault ids are stored
func (r *FaultRepository) ExistingFaultIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	return r.existing(ctx, "faults", ids)
}

// ExistingActionIDs returns which of the given action ids are stored
func (r *FaultRepository) ExistingActionIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	return r.existing(ctx, "fault_actions", ids)
}

func (r *FaultRepository) existing(ctx context.Context, table string, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	sql, args, err := r.sb.Select("id").From(table).Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	found, err := queryStrings(ctx, db.Conn(ctx, r.db), sql, args...)
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}

func faultValues(f *models.Fault) []interface{} {
	return []interface{}{
		f.Aircraft, f.UnitUIC, f.DiscoveredByName, f.DiscoveredByID, f.StatusCode,
		f.SystemCode, f.WhenDiscoveredCode, f.HowRecognizedCode, f.MalfunctionEffect,
		f.FailureCode, f.CorrectiveActionCode, f.MaintenanceLevelCode, f.DiscoveryDateTime,
		f.CorrectiveDateTime, f.Status, f.Remarks, f.MaintenanceDelay, f.FaultWorkUnitCode,
		f.TotalManHours, f.Source,
	}
}

var faultWriteColumns = []string{
	"aircraft", "unit_uic", "discovered_by_name", "discovered_by_id", "status_code",
	"system_code", "when_discovered_code", "how_recognized_code", "malfunction_effect_code",
	"failure_code", "corrective_action_code", "maintenance_level_code", "discovery_date_time",
	"corrective_date_time", "status", "remarks", "maintenance_delay", "fault_work_unit_code",
	"total_man_hours", "source",
}

// CreateFault inserts a fault
func (r *FaultRepository) CreateFault(ctx context.Context, f *models.Fault) error {
	sql, args, err := r.sb.Insert("faults").
		Columns(append([]string{"id"}, faultWriteColumns...)...).
		Values(append([]interface{}{f.ID}, faultValues(f)...)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("faultID", f.ID).Msg("Error creating fault")
		return fmt.Errorf("error creating fault: %w", err)
	}
	return nil
}

// UpdateFault refreshes every column of a stored fault
func (r *FaultRepository) UpdateFault(ctx context.Context, f *models.Fault) error {
	q := r.sb.Update("faults")
	for i, v := range faultValues(f) {
		q = q.Set(faultWriteColumns[i], v)
	}
	sql, args, err := q.Where(squirrel.Eq{"id": f.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("faultID", f.ID).Msg("Error updating fault")
		return fmt.Errorf("error updating fault: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(apperrors.MsgFaultNotFound)
	}
	return nil
}

// CreateAction inserts a fault action
func (r *FaultRepository) CreateAction(ctx context.Context, a *models.FaultAction) error {
	sql, args, err := r.sb.Insert("fault_actions").
		Columns("id", "fault_id", "discovery_date_time", "closed_date_time", "closed_by_id",
			"maintenance_action", "corrective_action", "status_code", "fault_work_unit_code",
			"technical_inspector_id", "maintenance_level_code", "corrective_action_code",
			"sequence_number", "source").
		Values(a.ID, a.FaultID, a.DiscoveryDateTime, a.ClosedDateTime, a.ClosedByID,
			a.MaintenanceAction, a.CorrectiveAction, a.StatusCode, a.FaultWorkUnitCode,
			a.TechnicalInspectorID, a.MaintenanceLevelCode, a.CorrectiveActionCode,
			a.SequenceNumber, a.Source).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("actionID", a.ID).Msg("Error creating fault action")
		return fmt.Errorf("error creating fault action: %w", err)
	}
	return nil
}

// EnsureMaintainer links a soldier to an action, reporting whether a link was created
func (r *FaultRepository) EnsureMaintainer(ctx context.Context, actionID, soldierID string, manHours float64) (bool, error) {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO maintainer_fault_actions (fault_action_id, soldier_id, man_hours) VALUES ($1, $2, $3)
		ON CONFLICT (fault_action_id, soldier_id) DO NOTHING`, actionID, soldierID, manHours)
	if err != nil {
		return false, fmt.Errorf("error linking maintainer: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
