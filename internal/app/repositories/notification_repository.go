package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/db"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository handles notifications and their delivery rows
type NotificationRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	sql, args, err := r.sb.Insert("notifications").
		Columns("notification_type", "short_display", "verbose_display", "url", "access_request_id", "transfer_request_id").
		Values(n.NotificationType, n.ShortDisplay, n.VerboseDisplay, n.URL, n.AccessRequestID, n.TransferRequestID).
		Suffix("RETURNING id, date_generated").ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := db.Conn(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&n.ID, &n.DateGenerated); err != nil {
		logger.Error().Err(err).Str("type", string(n.NotificationType)).Msg("Error creating notification")
		return fmt.Errorf("error creating notification: %w", err)
	}
	return nil
}

// Deliver creates a delivery row per soldier and returns them keyed by soldier id
func (r *NotificationRepository) Deliver(ctx context.Context, notificationID int64, soldierIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(soldierIDs))
	if len(soldierIDs) == 0 {
		return out, nil
	}
	q := r.sb.Insert("soldier_notifications").Columns("soldier_id", "notification_id")
	for _, id := range soldierIDs {
		q = q.Values(id, notificationID)
	}
	sql, args, err := q.Suffix("ON CONFLICT (soldier_id, notification_id) DO NOTHING RETURNING soldier_id, id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("notificationID", notificationID).Msg("Error delivering notification")
		return nil, fmt.Errorf("error delivering notification: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var soldierID string
		var id int64
		if err := rows.Scan(&soldierID, &id); err != nil {
			return nil, fmt.Errorf("error scanning delivery: %w", err)
		}
		out[soldierID] = id
	}
	return out, rows.Err()
}

// ListForSoldier retrieves a soldier's notifications newest first
func (r *NotificationRepository) ListForSoldier(ctx context.Context, soldierID string) ([]*models.SoldierNotification, error) {
	sql, args, err := r.sb.Select("sn.id", "sn.soldier_id", "sn.notification_id", "sn.notification_read",
		"n.id", "n.notification_type", "n.short_display", "n.verbose_display", "n.url",
		"n.access_request_id", "n.transfer_request_id", "n.date_generated").
		From("soldier_notifications sn").
		Join("notifications n ON n.id = sn.notification_id").
		Where(squirrel.Eq{"sn.soldier_id": soldierID}).
		OrderBy("n.date_generated DESC", "sn.id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying notifications: %w", err)
	}
	defer rows.Close()

	out := []*models.SoldierNotification{}
	for rows.Next() {
		var sn models.SoldierNotification
		var n models.Notification
		if err := rows.Scan(&sn.ID, &sn.SoldierID, &sn.NotificationID, &sn.NotificationRead,
			&n.ID, &n.NotificationType, &n.ShortDisplay, &n.VerboseDisplay, &n.URL,
			&n.AccessRequestID, &n.TransferRequestID, &n.DateGenerated); err != nil {
			return nil, fmt.Errorf("error scanning notification: %w", err)
		}
		sn.Notification = &n
		out = append(out, &sn)
	}
	return out, rows.Err()
}

// MarkRead marks one of the soldier's notifications read
func (r *NotificationRepository) MarkRead(ctx context.Context, soldierID string, id int64) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`UPDATE soldier_notifications SET notification_read = TRUE WHERE id = $1 AND soldier_id = $2`, id, soldierID)
	if err != nil {
		return fmt.Errorf("error marking notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(apperrors.MsgNotificationNotFound)
	}
	return nil
}

// MarkAllRead marks every notification of the soldier read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, soldierID string) (int64, error) {
	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`UPDATE soldier_notifications SET notification_read = TRUE WHERE soldier_id = $1 AND NOT notification_read`, soldierID)
	if err != nil {
		return 0, fmt.Errorf("error marking notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}
