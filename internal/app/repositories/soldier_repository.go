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
	"github.com/ai2c/amap/internal/pkg/dberrors"
	"github.com/ai2c/amap/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var soldierColumns = []string{
	"s.user_id", "s.rank", "s.first_name", "s.last_name", "s.primary_mos", "s.unit_uic", "s.is_admin",
	"s.is_maintainer", "s.dod_email", "s.receive_emails", "s.birth_month", "s.reporting_ml",
}

// MOS code list kinds
const (
	MOSKindAll        = "all"
	MOSKindAMTP       = "amtp"
	MOSKindICTL       = "ictl"
	MOSKindAMTPOrICTL = "amtp_or_ictl"
)

// MaintainerRow is a soldier with the unit and MOS attributes used by reports
type MaintainerRow struct {
	Soldier       *models.Soldier
	UnitShortName string
	AMTP          bool
}

// SoldierRepository handles database operations for soldiers, MOS codes and logins
type SoldierRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewSoldierRepository creates a new SoldierRepository
func NewSoldierRepository(pool *pgxpool.Pool) *SoldierRepository {
	return &SoldierRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanSoldier(row pgx.Row, extra ...interface{}) (*models.Soldier, error) {
	var s models.Soldier
	dest := []interface{}{
		&s.UserID, &s.Rank, &s.FirstName, &s.LastName, &s.PrimaryMOS, &s.UnitUIC, &s.IsAdmin,
		&s.IsMaintainer, &s.DoDEmail, &s.ReceiveEmails, &s.BirthMonth, &s.ReportingML,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID retrieves a soldier by EDIPI
func (r *SoldierRepository) GetByID(ctx context.Context, userID string) (*models.Soldier, error) {
	sql, args, err := r.sb.Select(soldierColumns...).From("soldiers s").Where(squirrel.Eq{"s.user_id": userID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	soldier, err := scanSoldier(db.Conn(ctx, r.db).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError(apperrors.MsgSoldierNotFound)
		}
		logger.Error().Err(err).Str("userID", userID).Msg("Error retrieving soldier")
		return nil, fmt.Errorf("error retrieving soldier: %w", err)
	}
	return soldier, nil
}

// GetMany retrieves the given soldiers keyed by EDIPI. Unknown ids are absent.
func (r *SoldierRepository) GetMany(ctx context.Context, userIDs []string) (map[string]*models.Soldier, error) {
	out := make(map[string]*models.Soldier, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	sql, args, err := r.sb.Select(soldierColumns...).From("soldiers s").Where(squirrel.Eq{"s.user_id": userIDs}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	soldiers, err := r.query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	for _, s := range soldiers {
		out[s.UserID] = s
	}
	return out, nil
}

// ListByUnits retrieves the soldiers assigned to the given units ordered by name
func (r *SoldierRepository) ListByUnits(ctx context.Context, uics []string) ([]*models.Soldier, error) {
	if len(uics) == 0 {
		return []*models.Soldier{}, nil
	}
	sql, args, err := r.sb.Select(soldierColumns...).From("soldiers s").
		Where(squirrel.Eq{"s.unit_uic": uics}).
		OrderBy("s.last_name", "s.first_name", "s.user_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	return r.query(ctx, sql, args...)
}

// ListWithLogin retrieves every soldier that has logged in at least once
func (r *SoldierRepository) ListWithLogin(ctx context.Context) ([]*models.Soldier, error) {
	sql, args, err := r.sb.Select(soldierColumns...).From("soldiers s").
		Where("EXISTS (SELECT 1 FROM logins l WHERE l.user_id = s.user_id)").
		OrderBy("s.user_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	return r.query(ctx, sql, args...)
}

// AdminIDs returns the user ids of every administrator
func (r *SoldierRepository) AdminIDs(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, db.Conn(ctx, r.db), `SELECT user_id FROM soldiers WHERE is_admin ORDER BY user_id`)
}

// ListMaintainers retrieves the maintainers of the given units with unit short name and AMTP flag
func (r *SoldierRepository) ListMaintainers(ctx context.Context, uics []string) ([]MaintainerRow, error) {
	if len(uics) == 0 {
		return []MaintainerRow{}, nil
	}
	cols := append(append([]string{}, soldierColumns...), "u.short_name", "COALESCE(m.amtp_mos, FALSE)")
	sql, args, err := r.sb.Select(cols...).From("soldiers s").
		Join("units u ON u.uic = s.unit_uic").
		LeftJoin("mos_codes m ON m.mos = s.primary_mos").
		Where(squirrel.Eq{"s.unit_uic": uics, "s.is_maintainer": true}).
		OrderBy("u.short_name", "s.primary_mos", "s.user_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying maintainers")
		return nil, fmt.Errorf("error querying maintainers: %w", err)
	}
	defer rows.Close()

	out := []MaintainerRow{}
	for rows.Next() {
		var row MaintainerRow
		s, err := scanSoldier(rows, &row.UnitShortName, &row.AMTP)
		if err != nil {
			return nil, fmt.Errorf("error scanning maintainer: %w", err)
		}
		row.Soldier = s
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SoldierRepository) query(ctx context.Context, sql string, args ...interface{}) ([]*models.Soldier, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying soldiers")
		return nil, fmt.Errorf("error querying soldiers: %w", err)
	}
	defer rows.Close()

	soldiers := []*models.Soldier{}
	for rows.Next() {
		s, err := scanSoldier(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning soldier: %w", err)
		}
		soldiers = append(soldiers, s)
	}
	return soldiers, rows.Err()
}

// Create inserts a new soldier
func (r *SoldierRepository) Create(ctx context.Context, s *models.Soldier) error {
	sql, args, err := r.sb.Insert("soldiers").
		Columns("user_id", "rank", "first_name", "last_name", "primary_mos", "unit_uic", "is_admin",
			"is_maintainer", "dod_email", "receive_emails", "birth_month", "reporting_ml").
		Values(s.UserID, s.Rank, s.FirstName, s.LastName, s.PrimaryMOS, s.UnitUIC, s.IsAdmin,
			s.IsMaintainer, s.DoDEmail, s.ReceiveEmails, s.BirthMonth, s.ReportingML).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if _, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.NewConflictError("User already exists.")
		}
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewResourceNotFoundError(apperrors.MsgUnitNotFound)
		}
		logger.Error().Err(err).Str("userID", s.UserID).Msg("Error creating soldier")
		return fmt.Errorf("error creating soldier: %w", err)
	}
	return nil
}

// Update writes every mutable soldier column
func (r *SoldierRepository) Update(ctx context.Context, s *models.Soldier) error {
	sql, args, err := r.sb.Update("soldiers").
		Set("rank", s.Rank).
		Set("first_name", s.FirstName).
		Set("last_name", s.LastName).
		Set("primary_mos", s.PrimaryMOS).
		Set("unit_uic", s.UnitUIC).
		Set("is_maintainer", s.IsMaintainer).
		Set("dod_email", s.DoDEmail).
		Set("receive_emails", s.ReceiveEmails).
		Set("birth_month", s.BirthMonth).
		Where(squirrel.Eq{"user_id": s.UserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("userID", s.UserID).Msg("Error updating soldier")
		return fmt.Errorf("error updating soldier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(apperrors.MsgSoldierNotFound)
	}
	return nil
}

// SetUnit moves a soldier into a unit
func (r *SoldierRepository) SetUnit(ctx context.Context, userID, uic string) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `UPDATE soldiers SET unit_uic = $1 WHERE user_id = $2`, uic, userID)
	if err != nil {
		return fmt.Errorf("error moving soldier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(apperrors.MsgSoldierNotFound)
	}
	return nil
}

// SetReportingML stores the maintenance level a soldier reports at
func (r *SoldierRepository) SetReportingML(ctx context.Context, userID string, ml *string) error {
	_, err := db.Conn(ctx, r.db).Exec(ctx, `UPDATE soldiers SET reporting_ml = $1 WHERE user_id = $2`, ml, userID)
	if err != nil {
		return fmt.Errorf("error updating reporting ml: %w", err)
	}
	return nil
}

// RecordLogin stores a login of the soldier
func (r *SoldierRepository) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := db.Conn(ctx, r.db).Exec(ctx, `INSERT INTO logins (user_id, login_time) VALUES ($1, $2)`, userID, at)
	if err != nil {
		logger.Error().Err(err).Str("userID", userID).Msg("Error recording login")
		return fmt.Errorf("error recording login: %w", err)
	}
	return nil
}

// LastLogins returns the latest login per soldier. Soldiers who never logged in are absent.
func (r *SoldierRepository) LastLogins(ctx context.Context, userIDs []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time)
	if len(userIDs) == 0 {
		return out, nil
	}
	sql, args, err := r.sb.Select("user_id", "MAX(login_time)").From("logins").
		Where(squirrel.Eq{"user_id": userIDs}).GroupBy("user_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying logins: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("error scanning login: %w", err)
		}
		out[id] = at
	}
	return out, rows.Err()
}

// ListMOS lists MOS codes of a kind ordered by amtp desc, ictl desc, mos
func (r *SoldierRepository) ListMOS(ctx context.Context, kind string) ([]*models.MOSCode, error) {
	q := r.sb.Select("mos", "mos_description", "amtp_mos", "ictl_mos").From("mos_codes")
	switch kind {
	case MOSKindAll:
	case MOSKindAMTP:
		q = q.Where(squirrel.Eq{"amtp_mos": true})
	case MOSKindICTL:
		q = q.Where(squirrel.Eq{"ictl_mos": true})
	case MOSKindAMTPOrICTL:
		q = q.Where(squirrel.Or{squirrel.Eq{"amtp_mos": true}, squirrel.Eq{"ictl_mos": true}})
	default:
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("Invalid MOS type %q.", kind))
	}

	sql, args, err := q.OrderBy("amtp_mos DESC", "ictl_mos DESC", "mos").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying mos codes: %w", err)
	}
	defer rows.Close()

	codes := []*models.MOSCode{}
	for rows.Next() {
		var m models.MOSCode
		if err := rows.Scan(&m.MOS, &m.MOSDescription, &m.AMTP, &m.ICTL); err != nil {
			return nil, fmt.Errorf("error scanning mos code: %w", err)
		}
		codes = append(codes, &m)
	}
	return codes, rows.Err()
}

// MOSExists checks whether a MOS code exists
func (r *SoldierRepository) MOSExists(ctx context.Context, mos string) (bool, error) {
	var exists bool
	if err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM mos_codes WHERE mos = $1)`, mos).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking mos existence: %w", err)
	}
	return exists, nil
}

// UpsertMOS creates or updates a MOS code
func (r *SoldierRepository) UpsertMOS(ctx context.Context, m *models.MOSCode) error {
	_, err := db.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO mos_codes (mos, mos_description, amtp_mos, ictl_mos) VALUES ($1, $2, $3, $4)
		ON CONFLICT (mos) DO UPDATE SET mos_description = EXCLUDED.mos_description,
			amtp_mos = EXCLUDED.amtp_mos, ictl_mos = EXCLUDED.ictl_mos`,
		m.MOS, m.MOSDescription, m.AMTP, m.ICTL)
	if err != nil {
		return fmt.Errorf("error upserting mos code: %w", err)
	}
	return nil
}

// AdditionalMOS lists the additional MOS codes a soldier holds
func (r *SoldierRepository) AdditionalMOS(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx,
		`SELECT mos FROM soldier_additional_mos WHERE soldier_id = $1 ORDER BY mos`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying additional mos: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var mos string
		if err := rows.Scan(&mos); err != nil {
			return nil, fmt.Errorf("error scanning additional mos: %w", err)
		}
		out = append(out, mos)
	}
	return out, rows.Err()
}

// ReplaceAdditionalMOS sets the additional MOS codes of a soldier. Run it in a
// transaction so the old set is never lost on its own.
func (r *SoldierRepository) ReplaceAdditionalMOS(ctx context.Context, userID string, codes []string) error {
	conn := db.Conn(ctx, r.db)
	if _, err := conn.Exec(ctx, `DELETE FROM soldier_additional_mos WHERE soldier_id = $1`, userID); err != nil {
		return fmt.Errorf("error clearing additional mos: %w", err)
	}
	if len(codes) == 0 {
		return nil
	}

	q := r.sb.Insert("soldier_additional_mos").Columns("soldier_id", "mos")
	for _, mos := range codes {
		q = q.Values(userID, mos)
	}
	sql, args, err := q.Suffix("ON CONFLICT (soldier_id, mos) DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error setting additional mos: %w", err)
	}
	return nil
}
