package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/db"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/dberrors"
	"github.com/ai2c/amap/internal/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RequestRepository handles permission and transfer requests
type RequestRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewRequestRepository creates a new RequestRepository
func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreatePermission inserts a permission request
func (r *RequestRepository) CreatePermission(ctx context.Context, req *models.UserRequest) error {
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO user_requests (user_id, uic, access_level) VALUES ($1, $2, $3)
		RETURNING id, created_at`, req.UserID, req.UIC, req.AccessLevel).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.NewConflictError("A permission request for this unit already exists.")
		}
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewResourceNotFoundError(apperrors.MsgUnitNotFound)
		}
		logger.Error().Err(err).Str("userID", req.UserID).Msg("Error creating permission request")
		return fmt.Errorf("error creating permission request: %w", err)
	}
	return nil
}

func (r *RequestRepository) queryPermissions(ctx context.Context, q squirrel.SelectBuilder) ([]*models.UserRequest, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying permission requests: %w", err)
	}
	defer rows.Close()

	out := []*models.UserRequest{}
	for rows.Next() {
		var req models.UserRequest
		if err := rows.Scan(&req.ID, &req.UserID, &req.UIC, &req.AccessLevel, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning permission request: %w", err)
		}
		out = append(out, &req)
	}
	return out, rows.Err()
}

func (r *RequestRepository) selectPermissions() squirrel.SelectBuilder {
	return r.sb.Select("id", "user_id", "uic", "access_level", "created_at").From("user_requests")
}

// ListPermissionsByUnits retrieves permission requests on the given units
func (r *RequestRepository) ListPermissionsByUnits(ctx context.Context, uics []string) ([]*models.UserRequest, error) {
	if len(uics) == 0 {
		return []*models.UserRequest{}, nil
	}
	return r.queryPermissions(ctx, r.selectPermissions().Where(squirrel.Eq{"uic": uics}).OrderBy("uic", "created_at", "id"))
}

// ListPermissionsByIDs retrieves the given permission requests
func (r *RequestRepository) ListPermissionsByIDs(ctx context.Context, ids []int64) ([]*models.UserRequest, error) {
	if len(ids) == 0 {
		return []*models.UserRequest{}, nil
	}
	return r.queryPermissions(ctx, r.selectPermissions().Where(squirrel.Eq{"id": ids}).OrderBy("id"))
}

// CountPermissionsByUnits counts permission requests on the given units
func (r *RequestRepository) CountPermissionsByUnits(ctx context.Context, uics []string) (int64, error) {
	if len(uics) == 0 {
		return 0, nil
	}
	return r.count(ctx, r.sb.Select("COUNT(*)").From("user_requests").Where(squirrel.Eq{"uic": uics}))
}

// HasOpenPermissions reports whether a user has pending permission requests
func (r *RequestRepository) HasOpenPermissions(ctx context.Context, userID string) (bool, error) {
	n, err := r.count(ctx, r.sb.Select("COUNT(*)").From("user_requests").Where(squirrel.Eq{"user_id": userID}))
	return n > 0, err
}

// DeletePermissions removes the given permission requests
func (r *RequestRepository) DeletePermissions(ctx context.Context, ids []int64) error {
	return r.deleteIDs(ctx, "user_requests", ids)
}

// CreateTransfer inserts a transfer request
func (r *RequestRepository) CreateTransfer(ctx context.Context, req *models.SoldierTransferRequest) error {
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO soldier_transfer_requests (requester_id, gaining_uic, soldier_id) VALUES ($1, $2, $3)
		RETURNING id, created_at`, req.RequesterID, req.GainingUIC, req.SoldierID).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.NewConflictError("A transfer request for this soldier into this unit already exists.")
		}
		logger.Error().Err(err).Str("soldierID", req.SoldierID).Msg("Error creating transfer request")
		return fmt.Errorf("error creating transfer request: %w", err)
	}
	return nil
}

func (r *RequestRepository) selectTransfers() squirrel.SelectBuilder {
	return r.sb.Select("t.id", "t.requester_id", "t.gaining_uic", "t.soldier_id", "t.created_at").
		From("soldier_transfer_requests t")
}

func (r *RequestRepository) queryTransfers(ctx context.Context, q squirrel.SelectBuilder) ([]*models.SoldierTransferRequest, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying transfer requests: %w", err)
	}
	defer rows.Close()

	out := []*models.SoldierTransferRequest{}
	for rows.Next() {
		var req models.SoldierTransferRequest
		if err := rows.Scan(&req.ID, &req.RequesterID, &req.GainingUIC, &req.SoldierID, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning transfer request: %w", err)
		}
		out = append(out, &req)
	}
	return out, rows.Err()
}

func transfersTouching(uics []string) squirrel.Or {
	return squirrel.Or{
		squirrel.Eq{"t.gaining_uic": uics},
		squirrel.Expr("t.soldier_id IN (SELECT user_id FROM soldiers WHERE unit_uic = ANY(?))", uics),
	}
}

// ListTransfersTouchingUnits retrieves transfers whose gaining unit or soldier's unit is in uics
func (r *RequestRepository) ListTransfersTouchingUnits(ctx context.Context, uics []string) ([]*models.SoldierTransferRequest, error) {
	if len(uics) == 0 {
		return []*models.SoldierTransferRequest{}, nil
	}
	return r.queryTransfers(ctx, r.selectTransfers().Where(transfersTouching(uics)).OrderBy("t.created_at", "t.id"))
}

// ListTransfersByRequester retrieves the transfers a user asked for
func (r *RequestRepository) ListTransfersByRequester(ctx context.Context, requesterID string) ([]*models.SoldierTransferRequest, error) {
	return r.queryTransfers(ctx, r.selectTransfers().Where(squirrel.Eq{"t.requester_id": requesterID}).OrderBy("t.created_at", "t.id"))
}

// ListTransfersByIDs retrieves the given transfer requests
func (r *RequestRepository) ListTransfersByIDs(ctx context.Context, ids []int64) ([]*models.SoldierTransferRequest, error) {
	if len(ids) == 0 {
		return []*models.SoldierTransferRequest{}, nil
	}
	return r.queryTransfers(ctx, r.selectTransfers().Where(squirrel.Eq{"t.id": ids}).OrderBy("t.id"))
}

// CountTransfersTouchingUnits counts transfers whose gaining unit or soldier's unit is in uics
func (r *RequestRepository) CountTransfersTouchingUnits(ctx context.Context, uics []string) (int64, error) {
	if len(uics) == 0 {
		return 0, nil
	}
	return r.count(ctx, r.sb.Select("COUNT(*)").From("soldier_transfer_requests t").Where(transfersTouching(uics)))
}

// DeleteTransfers removes the given transfer requests
func (r *RequestRepository) DeleteTransfers(ctx context.Context, ids []int64) error {
	return r.deleteIDs(ctx, "soldier_transfer_requests", ids)
}

// DeleteTransfersForSoldier removes every transfer request for a soldier
func (r *RequestRepository) DeleteTransfersForSoldier(ctx context.Context, soldierID string) error {
	if _, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM soldier_transfer_requests WHERE soldier_id = $1`, soldierID); err != nil {
		return fmt.Errorf("error deleting transfer requests: %w", err)
	}
	return nil
}

func (r *RequestRepository) count(ctx context.Context, q squirrel.SelectBuilder) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}
	var n int64
	if err := db.Conn(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting requests: %w", err)
	}
	return n, nil
}

func (r *RequestRepository) deleteIDs(ctx context.Context, table string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	sql, args, err := r.sb.Delete(table).Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("table", table).Msg("Error deleting requests")
		return fmt.Errorf("error deleting from %s: %w", table, err)
	}
	return nil
}
