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

var counselingColumns = []string{"id", "soldier_id", "date", "title", "document", "visible_to_user", "uploaded_by"}

var supportingDocumentColumns = []string{
	"id", "soldier_id", "uploaded_by", "upload_date", "document_date", "document_title", "document",
	"document_type", "related_event", "visible_to_user",
}

// DocumentRepository handles counselings and supporting documents
type DocumentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListTypes lists the supporting document types
func (r *DocumentRepository) ListTypes(ctx context.Context) ([]*models.SupportingDocumentType, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `SELECT id, type FROM supporting_document_types ORDER BY type`)
	if err != nil {
		return nil, fmt.Errorf("error querying document types: %w", err)
	}
	defer rows.Close()

	out := []*models.SupportingDocumentType{}
	for rows.Next() {
		var t models.SupportingDocumentType
		if err := rows.Scan(&t.ID, &t.Type); err != nil {
			return nil, fmt.Errorf("error scanning document type: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// TypeExists checks whether a supporting document type exists
func (r *DocumentRepository) TypeExists(ctx context.Context, docType string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM supporting_document_types WHERE type = $1)`, docType).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking document type: %w", err)
	}
	return exists, nil
}

// UpsertType creates a supporting document type when missing
func (r *DocumentRepository) UpsertType(ctx context.Context, docType string) error {
	_, err := db.Conn(ctx, r.db).Exec(ctx, `INSERT INTO supporting_document_types (type) VALUES ($1) ON CONFLICT (type) DO NOTHING`, docType)
	if err != nil {
		return fmt.Errorf("error upserting document type: %w", err)
	}
	return nil
}

func scanCounseling(row pgx.Row) (*models.Counseling, error) {
	var c models.Counseling
	if err := row.Scan(&c.ID, &c.SoldierID, &c.Date, &c.Title, &c.Document, &c.VisibleToUser, &c.UploadedBy); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCounseling inserts a counseling
func (r *DocumentRepository) CreateCounseling(ctx context.Context, c *models.Counseling) error {
	sql, args, err := r.sb.Insert("counselings").Columns(counselingColumns[1:]...).
		Values(c.SoldierID, c.Date, c.Title, c.Document, c.VisibleToUser, c.UploadedBy).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := db.Conn(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&c.ID); err != nil {
		logger.Error().Err(err).Str("soldierID", c.SoldierID).Msg("Error creating counseling")
		return fmt.Errorf("error creating counseling: %w", err)
	}
	return nil
}

// GetCounseling retrieves a visible counseling
func (r *DocumentRepository) GetCounseling(ctx context.Context, id int64) (*models.Counseling, error) {
	sql, args, err := r.sb.Select(counselingColumns...).From("counselings").
		Where(squirrel.Eq{"id": id, "visible_to_user": true}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	c, err := scanCounseling(db.Conn(ctx, r.db).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError(apperrors.MsgCounselingNotFound)
		}
		return nil, fmt.Errorf("error retrieving counseling: %w", err)
	}
	return c, nil
}

// ListCounselings retrieves counselings by soldier or by ids, newest first
func (r *DocumentRepository) ListCounselings(ctx context.Context, soldierID string, ids []int64, visibleOnly bool) ([]*models.Counseling, error) {
	q := r.sb.Select(counselingColumns...).From("counselings").OrderBy("date DESC", "id DESC")
	if soldierID != "" {
		q = q.Where(squirrel.Eq{"soldier_id": soldierID})
	}
	if ids != nil {
		q = q.Where(squirrel.Eq{"id": ids})
	}
	if visibleOnly {
		q = q.Where(squirrel.Eq{"visible_to_user": true})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying counselings: %w", err)
	}
	defer rows.Close()

	out := []*models.Counseling{}
	for rows.Next() {
		c, err := scanCounseling(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning counseling: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// HideCounseling removes a counseling from the user's view
func (r *DocumentRepository) HideCounseling(ctx context.Context, id int64) error {
	return r.hide(ctx, "counselings", id, apperrors.MsgCounselingNotFound)
}

func scanSupportingDocument(row pgx.Row) (*models.SupportingDocument, error) {
	var d models.SupportingDocument
	err := row.Scan(&d.ID, &d.SoldierID, &d.UploadedBy, &d.UploadDate, &d.DocumentDate, &d.DocumentTitle,
		&d.Document, &d.DocumentType, &d.RelatedEvent, &d.VisibleToUser)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateSupportingDocument inserts a supporting document
func (r *DocumentRepository) CreateSupportingDocument(ctx context.Context, d *models.SupportingDocument) error {
	sql, args, err := r.sb.Insert("supporting_documents").Columns(supportingDocumentColumns[1:]...).
		Values(d.SoldierID, d.UploadedBy, d.UploadDate, d.DocumentDate, d.DocumentTitle, d.Document,
			d.DocumentType, d.RelatedEvent, d.VisibleToUser).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := db.Conn(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&d.ID); err != nil {
		logger.Error().Err(err).Str("soldierID", d.SoldierID).Msg("Error creating supporting document")
		return fmt.Errorf("error creating supporting document: %w", err)
	}
	return nil
}

// GetSupportingDocument retrieves a visible supporting document
func (r *DocumentRepository) GetSupportingDocument(ctx context.Context, id int64) (*models.SupportingDocument, error) {
	sql, args, err := r.sb.Select(supportingDocumentColumns...).From("supporting_documents").
		Where(squirrel.Eq{"id": id, "visible_to_user": true}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	d, err := scanSupportingDocument(db.Conn(ctx, r.db).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError(apperrors.MsgDocumentNotFound)
		}
		return nil, fmt.Errorf("error retrieving supporting document: %w", err)
	}
	return d, nil
}

// ListSupportingDocuments retrieves documents by soldier or by ids, newest first
func (r *DocumentRepository) ListSupportingDocuments(ctx context.Context, soldierID string, ids []int64, visibleOnly bool) ([]*models.SupportingDocument, error) {
	q := r.sb.Select(supportingDocumentColumns...).From("supporting_documents").OrderBy("document_date DESC", "id DESC")
	if soldierID != "" {
		q = q.Where(squirrel.Eq{"soldier_id": soldierID})
	}
	if ids != nil {
		q = q.Where(squirrel.Eq{"id": ids})
	}
	if visibleOnly {
		q = q.Where(squirrel.Eq{"visible_to_user": true})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying supporting documents: %w", err)
	}
	defer rows.Close()

	out := []*models.SupportingDocument{}
	for rows.Next() {
		d, err := scanSupportingDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning supporting document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateSupportingDocument writes the metadata of a supporting document
func (r *DocumentRepository) UpdateSupportingDocument(ctx context.Context, d *models.SupportingDocument) error {
	sql, args, err := r.sb.Update("supporting_documents").
		Set("document_date", d.DocumentDate).
		Set("document_title", d.DocumentTitle).
		Set("document_type", d.DocumentType).
		Set("related_event", d.RelatedEvent).
		Set("visible_to_user", d.VisibleToUser).
		Where(squirrel.Eq{"id": d.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating supporting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(apperrors.MsgDocumentNotFound)
	}
	return nil
}

// HideSupportingDocument removes a supporting document from the user's view
func (r *DocumentRepository) HideSupportingDocument(ctx context.Context, id int64) error {
	return r.hide(ctx, "supporting_documents", id, apperrors.MsgDocumentNotFound)
}

func (r *DocumentRepository) hide(ctx context.Context, table string, id int64, notFound string) error {
	sql, args, err := r.sb.Update(table).Set("visible_to_user", false).
		Where(squirrel.Eq{"id": id, "visible_to_user": true}).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := db.Conn(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error hiding %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(notFound)
	}
	return nil
}
