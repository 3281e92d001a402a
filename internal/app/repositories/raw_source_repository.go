package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/pkg/logger"
)

var rawFaultColumns = []string{
	"id", "serial_number", "uic", "fault_discovered_by", "edipi", "status_code_value", "system_code_value",
	"when_discovered_code_value", "how_recognized_code_value", "malfunction_effect_code_value",
	"failure_code_value", "corrective_action_code_value", "ti_maintenance_level_code_value",
	"discovery_date_time", "corrective_date_time", "status", "remarks", "maintenance_delay",
	"fault_work_unit_code", "total_man_hours", "source", "fault_sync_timestamp",
}

var rawFaultActionColumns = []string{
	"id_13_2", "id_13_1", "discovery_date_time", "closed_date_time", "closed_by_dodid", "maintenance_action",
	"corrective_action", "status_code_value", "fault_work_unit_code", "technical_inspector_dodid",
	"maintenance_level_code_value", "action_code_value", "sequence_number", "personnel_dodid", "man_hours",
	"source", "fault_action_sync_timestamp",
}

var rawSoldierColumns = []string{
	"edipi", "rank_true_abbreviation", "primary_specialty_code", "first_name", "last_name",
	"birth_month", "dod_email", "uic",
}

// RawSourceRepository reads the vendor staging tables through database/sql
type RawSourceRepository struct {
	sb squirrel.StatementBuilderType
}

// NewRawSourceRepository creates a new RawSourceRepository
func NewRawSourceRepository(sourceDB *sql.DB) *RawSourceRepository {
	return &RawSourceRepository{
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).RunWith(sourceDB),
	}
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// FaultsSince reads raw faults synced on or after since
func (r *RawSourceRepository) FaultsSince(ctx context.Context, since time.Time) ([]*models.RawFault, error) {
	rows, err := r.sb.Select(rawFaultColumns...).
		From("raw_amap_faults").
		Where(squirrel.GtOrEq{"fault_sync_timestamp": since}).
		OrderBy("fault_sync_timestamp", "id").
		QueryContext(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error reading raw faults")
		return nil, fmt.Errorf("error reading raw faults: %w", err)
	}
	defer rows.Close()

	out := []*models.RawFault{}
	for rows.Next() {
		var f models.RawFault
		var uic, discoveredBy, edipi, status, system, when, how, effect, failure, corrective, level sql.NullString
		var remarks, delay, wuc, hours, source sql.NullString
		var correctiveAt sql.NullTime
		var rawStatus sql.NullFloat64
		if err := rows.Scan(&f.ID, &f.SerialNumber, &uic, &discoveredBy, &edipi, &status, &system,
			&when, &how, &effect, &failure, &corrective, &level,
			&f.DiscoveryDateTime, &correctiveAt, &rawStatus, &remarks, &delay,
			&wuc, &hours, &source, &f.SyncTimestamp); err != nil {
			return nil, fmt.Errorf("error scanning raw fault: %w", err)
		}
		f.UIC, f.FaultDiscoveredBy, f.EDIPI = nullString(uic), nullString(discoveredBy), nullString(edipi)
		f.StatusCodeValue, f.SystemCodeValue = nullString(status), nullString(system)
		f.WhenDiscoveredCodeValue, f.HowRecognizedCodeValue = nullString(when), nullString(how)
		f.MalfunctionEffectValue, f.FailureCodeValue = nullString(effect), nullString(failure)
		f.CorrectiveActionCodeValue, f.MaintenanceLevelCodeValue = nullString(corrective), nullString(level)
		f.CorrectiveDateTime, f.Status = nullTime(correctiveAt), nullFloat(rawStatus)
		f.Remarks, f.MaintenanceDelay, f.FaultWorkUnitCode = nullString(remarks), nullString(delay), nullString(wuc)
		f.TotalManHours, f.Source = nullString(hours), nullString(source)
		out = append(out, &f)
	}
	return out, rows.Err()
}

// FaultActionsSince reads raw fault actions synced on or after since
func (r *RawSourceRepository) FaultActionsSince(ctx context.Context, since time.Time) ([]*models.RawFaultAction, error) {
	rows, err := r.sb.Select(rawFaultActionColumns...).
		From("raw_amap_fault_actions").
		Where(squirrel.GtOrEq{"fault_action_sync_timestamp": since}).
		OrderBy("fault_action_sync_timestamp", "id_13_2").
		QueryContext(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error reading raw fault actions")
		return nil, fmt.Errorf("error reading raw fault actions: %w", err)
	}
	defer rows.Close()

	out := []*models.RawFaultAction{}
	for rows.Next() {
		var a models.RawFaultAction
		var discovered, closed sql.NullTime
		var closedBy, mxAction, corrective, status, wuc, inspector, level, actionCode, personnel, source sql.NullString
		var sequence, hours sql.NullFloat64
		if err := rows.Scan(&a.ID, &a.FaultID, &discovered, &closed, &closedBy, &mxAction,
			&corrective, &status, &wuc, &inspector, &level, &actionCode, &sequence, &personnel, &hours,
			&source, &a.SyncTimestamp); err != nil {
			return nil, fmt.Errorf("error scanning raw fault action: %w", err)
		}
		a.DiscoveryDateTime, a.ClosedDateTime = nullTime(discovered), nullTime(closed)
		a.ClosedByDoDID, a.MaintenanceAction, a.CorrectiveAction = nullString(closedBy), nullString(mxAction), nullString(corrective)
		a.StatusCodeValue, a.FaultWorkUnitCode = nullString(status), nullString(wuc)
		a.TechnicalInspectorDoDID, a.MaintenanceLevelCodeValue = nullString(inspector), nullString(level)
		a.ActionCodeValue, a.PersonnelDoDID = nullString(actionCode), nullString(personnel)
		a.SequenceNumber, a.ManHours, a.Source = nullFloat(sequence), nullFloat(hours), nullString(source)
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Soldiers reads every raw soldier
func (r *RawSourceRepository) Soldiers(ctx context.Context) ([]*models.RawSoldier, error) {
	rows, err := r.sb.Select(rawSoldierColumns...).
		From("raw_amap_soldiers").
		OrderBy("edipi").
		QueryContext(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error reading raw soldiers")
		return nil, fmt.Errorf("error reading raw soldiers: %w", err)
	}
	defer rows.Close()

	out := []*models.RawSoldier{}
	for rows.Next() {
		var s models.RawSoldier
		var rank, mos, first, last, email, uic sql.NullString
		var month sql.NullInt64
		if err := rows.Scan(&s.EDIPI, &rank, &mos, &first, &last, &month, &email, &uic); err != nil {
			return nil, fmt.Errorf("error scanning raw soldier: %w", err)
		}
		s.Rank, s.PrimaryMOS, s.FirstName, s.LastName = nullString(rank), nullString(mos), nullString(first), nullString(last)
		s.DoDEmail, s.UIC = nullString(email), nullString(uic)
		if month.Valid {
			m := int(month.Int64)
			s.BirthMonth = &m
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
