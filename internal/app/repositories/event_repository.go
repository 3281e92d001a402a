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

var eventColumns = []string{
	"id", "soldier_id", "date", "uic", "event_type", "training_type", "evaluation_type", "award_type",
	"tcs_location", "gaining_unit", "mos", "go_nogo", "total_mx_hours", "comment", "maintenance_level",
	"recorded_by", "recorded_by_legacy", "attached_da_4856", "mass_entry_key", "event_deleted",
}

// lookupOrder is the list ordering of each lookup table
var lookupOrder = map[string]string{
	models.LookupAwardTypes:      "description",
	models.LookupEventTypes:      "type",
	models.LookupTrainingTypes:   "description",
	models.LookupEvaluationTypes: "description",
}

// EventRepository handles DA 7817 events, their tasks and the form lookups
type EventRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListLookup lists the rows of a lookup table
func (r *EventRepository) ListLookup(ctx context.Context, table string) ([]*models.Lookup, error) {
	order, ok := lookupOrder[table]
	if !ok {
		return nil, fmt.Errorf("unknown lookup table %q", table)
	}
	sql, args, err := r.sb.Select("type", "description").From(table).OrderBy(order+" NULLS LAST", "type").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", table, err)
	}
	defer rows.Close()

	out := []*models.Lookup{}
	for rows.Next() {
		var l models.Lookup
		if err := rows.Scan(&l.Type, &l.Description); err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", table, err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// LookupExists checks whether value is a key of the lookup table
func (r *EventRepository) LookupExists(ctx context.Context, table, value string) (bool, error) {
	key := "type"
	if table == "tcs_locations" {
		key = "abbreviation"
	} else if _, ok := lookupOrder[table]; !ok {
		return false, fmt.Errorf("unknown lookup table %q", table)
	}
	sql, args, err := r.sb.Select("1").From(table).Where(squirrel.Eq{key: value}).Prefix("SELECT EXISTS(").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}
	var exists bool
	if err := db.Conn(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking %s: %w", table, err)
	}
	return exists, nil
}

// UpsertLookup creates or updates a lookup row
func (r *EventRepository) UpsertLookup(ctx context.Context, table string, l *models.Lookup) error {
	if _, ok := lookupOrder[table]; !ok {
		return fmt.Errorf("unknown lookup table %q", table)
	}
	sql, args, err := r.sb.Insert(table).Columns("type", "description").Values(l.Type, l.Description).
		Suffix("ON CONFLICT (type) DO UPDATE SET description = EXCLUDED.description").ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error upserting %s: %w", table, err)
	}
	return nil
}

// ListTCSLocations lists training locations ordered by location
func (r *EventRepository) ListTCSLocations(ctx context.Context) ([]*models.TCSLocation, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `SELECT abbreviation, location FROM tcs_locations ORDER BY location NULLS LAST, abbreviation`)
	if err != nil {
		return nil, fmt.Errorf("error querying tcs locations: %w", err)
	}
	defer rows.Close()

	out := []*models.TCSLocation{}
	for rows.Next() {
		var l models.TCSLocation
		if err := rows.Scan(&l.Abbreviation, &l.Location); err != nil {
			return nil, fmt.Errorf("error scanning tcs location: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// UpsertTCSLocation creates or updates a training location
func (r *EventRepository) UpsertTCSLocation(ctx context.Context, l *models.TCSLocation) error {
	_, err := db.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO tcs_locations (abbreviation, location) VALUES ($1, $2)
		ON CONFLICT (abbreviation) DO UPDATE SET location = EXCLUDED.location`, l.Abbreviation, l.Location)
	if err != nil {
		return fmt.Errorf("error upserting tcs location: %w", err)
	}
	return nil
}

// ListTasks lists tasks, optionally restricted to the given numbers
func (r *EventRepository) ListTasks(ctx context.Context, numbers []string) ([]*models.Task, error) {
	q := r.sb.Select("task_number", "task_title").From("tasks").OrderBy("task_number")
	if numbers != nil {
		q = q.Where(squirrel.Eq{"task_number": numbers})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying tasks: %w", err)
	}
	defer rows.Close()

	out := []*models.Task{}
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.TaskNumber, &t.TaskTitle); err != nil {
			return nil, fmt.Errorf("error scanning task: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// UpsertTask creates or updates a task
func (r *EventRepository) UpsertTask(ctx context.Context, t *models.Task) error {
	_, err := db.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO tasks (task_number, task_title) VALUES ($1, $2)
		ON CONFLICT (task_number) DO UPDATE SET task_title = EXCLUDED.task_title`, t.TaskNumber, t.TaskTitle)
	if err != nil {
		return fmt.Errorf("error upserting task: %w", err)
	}
	return nil
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(
		&e.ID, &e.SoldierID, &e.Date, &e.UIC, &e.EventType, &e.TrainingType, &e.EvaluationType, &e.AwardType,
		&e.TCSLocation, &e.GainingUnit, &e.MOS, &e.GoNoGo, &e.TotalMxHours, &e.Comment, &e.MaintenanceLevel,
		&e.RecordedBy, &e.RecordedByLegacy, &e.AttachedDA4856, &e.MassEntryKey, &e.EventDeleted,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func eventValues(e *models.Event) []interface{} {
	return []interface{}{
		e.SoldierID, e.Date, e.UIC, e.EventType, e.TrainingType, e.EvaluationType, e.AwardType,
		e.TCSLocation, e.GainingUnit, e.MOS, e.GoNoGo, e.TotalMxHours, e.Comment, e.MaintenanceLevel,
		e.RecordedBy, e.RecordedByLegacy, e.AttachedDA4856, e.MassEntryKey, e.EventDeleted,
	}
}

// Create inserts an event
func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	sql, args, err := r.sb.Insert("events").Columns(eventColumns[1:]...).Values(eventValues(e)...).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := db.Conn(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&e.ID); err != nil {
		logger.Error().Err(err).Str("soldierID", e.SoldierID).Msg("Error creating event")
		return fmt.Errorf("error creating event: %w", err)
	}
	return nil
}

// GetByID retrieves a non-deleted event
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	sql, args, err := r.sb.Select(eventColumns...).From("events").
		Where(squirrel.Eq{"id": id, "event_deleted": false}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	event, err := scanEvent(db.Conn(ctx, r.db).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError(apperrors.MsgEventNotFound)
		}
		return nil, fmt.Errorf("error retrieving event: %w", err)
	}
	return event, nil
}

// Update writes every column of an event
func (r *EventRepository) Update(ctx context.Context, e *models.Event) error {
	q := r.sb.Update("events")
	for i, v := range eventValues(e) {
		q = q.Set(eventColumns[i+1], v)
	}
	sql, args, err := q.Where(squirrel.Eq{"id": e.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("eventID", e.ID).Msg("Error updating event")
		return fmt.Errorf("error updating event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(apperrors.MsgEventNotFound)
	}
	return nil
}

// ListBySoldier retrieves a soldier's non-deleted events newest first
func (r *EventRepository) ListBySoldier(ctx context.Context, soldierID string) ([]*models.Event, error) {
	sql, args, err := r.sb.Select(eventColumns...).From("events").
		Where(squirrel.Eq{"soldier_id": soldierID, "event_deleted": false}).
		OrderBy("date DESC", "id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying events")
		return nil, fmt.Errorf("error querying events: %w", err)
	}
	defer rows.Close()

	events := []*models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ReplaceTasks drops the tasks of an event and attaches the given ones
func (r *EventRepository) ReplaceTasks(ctx context.Context, eventID int64, tasks []models.EventTask) error {
	conn := db.Conn(ctx, r.db)
	if _, err := conn.Exec(ctx, `DELETE FROM event_tasks WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("error clearing event tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	q := r.sb.Insert("event_tasks").Columns("event_id", "task_number", "go_nogo")
	for _, t := range tasks {
		q = q.Values(eventID, t.TaskNumber, t.GoNoGo)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error attaching event tasks: %w", err)
	}
	return nil
}

// TasksFor retrieves the tasks of the given events keyed by event id
func (r *EventRepository) TasksFor(ctx context.Context, eventIDs []int64) (map[int64][]models.EventTask, error) {
	out := make(map[int64][]models.EventTask)
	if len(eventIDs) == 0 {
		return out, nil
	}
	sql, args, err := r.sb.Select("et.event_id", "et.task_number", "t.task_title", "et.go_nogo").
		From("event_tasks et").Join("tasks t ON t.task_number = et.task_number").
		Where(squirrel.Eq{"et.event_id": eventIDs}).OrderBy("et.event_id", "et.task_number").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying event tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t models.EventTask
		if err := rows.Scan(&t.EventID, &t.TaskNumber, &t.TaskTitle, &t.GoNoGo); err != nil {
			return nil, fmt.Errorf("error scanning event task: %w", err)
		}
		out[t.EventID] = append(out[t.EventID], t)
	}
	return out, rows.Err()
}

// EventsWithDocuments returns which of the given events have a supporting document
func (r *EventRepository) EventsWithDocuments(ctx context.Context, eventIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if len(eventIDs) == 0 {
		return out, nil
	}
	sql, args, err := r.sb.Select("DISTINCT related_event").From("supporting_documents").
		Where(squirrel.Eq{"related_event": eventIDs, "visible_to_user": true}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying event documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning event document: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// LatestMaintenanceLevel returns the level of the newest non-deleted event that has one
func (r *EventRepository) LatestMaintenanceLevel(ctx context.Context, soldierID string) (*string, error) {
	var ml string
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT maintenance_level FROM events
		WHERE soldier_id = $1 AND NOT event_deleted AND maintenance_level IS NOT NULL
		ORDER BY date DESC, id DESC LIMIT 1`, soldierID).Scan(&ml)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading maintenance level: %w", err)
	}
	return &ml, nil
}

// LatestAnnualGoDate returns the date of the newest passed annual evaluation
func (r *EventRepository) LatestAnnualGoDate(ctx context.Context, soldierID string) (*time.Time, error) {
	var date time.Time
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT date FROM events
		WHERE soldier_id = $1 AND NOT event_deleted AND event_type = $2 AND evaluation_type = $3 AND go_nogo = $4
		ORDER BY date DESC LIMIT 1`,
		soldierID, models.EventTypeEvaluation, models.EvaluationTypeAnnual, models.GO).Scan(&date)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading annual evaluation: %w", err)
	}
	return &date, nil
}
