package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"time"

	"github.com/ai2c/amap/internal/app/auth"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/archive"
	"github.com/ai2c/amap/internal/pkg/filestorage"
	"github.com/ai2c/amap/internal/pkg/helpers"
	"github.com/rs/zerolog"
)

// DocumentService defines the interface for counselings and supporting documents
type DocumentService interface {
	DocumentTypes(ctx context.Context) ([]*models.SupportingDocumentType, error)

	AddCounseling(ctx context.Context, requesterID, soldierID string, form *dto.AddCounselingForm, file *multipart.FileHeader) (string, error)
	ListCounselings(ctx context.Context, requesterID, soldierID string) ([]dto.CounselingView, error)
	GetCounseling(ctx context.Context, requesterID string, id int64) (*dto.CounselingView, error)
	DeleteCounseling(ctx context.Context, requesterID string, id int64) (string, error)

	AddSupportingDocument(ctx context.Context, requesterID, soldierID string, form *dto.AddSupportingDocumentForm, file *multipart.FileHeader) (string, error)
	ListSupportingDocuments(ctx context.Context, requesterID, soldierID string, visibleOnly bool) ([]dto.SupportingDocumentView, error)
	GetSupportingDocument(ctx context.Context, requesterID string, id int64) (*dto.SupportingDocumentView, error)
	UpdateSupportingDocument(ctx context.Context, requesterID string, id int64, req *dto.UpdateSupportingDocumentRequest) (string, error)
	DeleteSupportingDocument(ctx context.Context, requesterID string, id int64) (string, error)

	CombinedDocuments(ctx context.Context, requesterID string, req *dto.CombinedDocumentsRequest) ([]archive.Entry, error)
	WriteArchive(w io.Writer, entries []archive.Entry) error
}

type documentServiceImpl struct {
	documents DocumentStore
	events    EventStore
	soldiers  SoldierStore
	storage   filestorage.FileStorage
	authz     *auth.AuthorizationService
	logger    zerolog.Logger
	now       func() time.Time
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	documents DocumentStore,
	events EventStore,
	soldiers SoldierStore,
	storage filestorage.FileStorage,
	authz *auth.AuthorizationService,
	logger zerolog.Logger,
) DocumentService {
	return &documentServiceImpl{
		documents: documents,
		events:    events,
		soldiers:  soldiers,
		storage:   storage,
		authz:     authz,
		logger:    logger,
		now:       time.Now,
	}
}

// DocumentTypes lists supporting document types
func (s *documentServiceImpl) DocumentTypes(ctx context.Context) ([]*models.SupportingDocumentType, error) {
	return s.documents.ListTypes(ctx)
}

// AddCounseling stores a DA 4856 file for a soldier
func (s *documentServiceImpl) AddCounseling(ctx context.Context, requesterID, soldierID string, form *dto.AddCounselingForm, file *multipart.FileHeader) (string, error) {
	soldier, err := s.accessibleSoldier(ctx, requesterID, soldierID)
	if err != nil {
		return "", err
	}
	date, err := helpers.ParseISODate(form.Date)
	if err != nil {
		return "", apperrors.NewValidationError("date", "Invalid date format. Please use YYYY-MM-DD.")
	}

	stored, err := s.store(file, models.CounselingFolder, soldier.UserID)
	if err != nil {
		return "", err
	}
	counseling := &models.Counseling{
		SoldierID:     soldier.UserID,
		Date:          date,
		Title:         form.Title,
		Document:      stored,
		VisibleToUser: true,
		UploadedBy:    helpers.StringPtr(requesterID),
	}
	if err := s.documents.CreateCounseling(ctx, counseling); err != nil {
		s.discard(stored)
		return "", err
	}
	s.logger.Info().Int64("counselingID", counseling.ID).Str("soldierID", soldier.UserID).Str("by", requesterID).Msg("DA 4856 uploaded")
	return fmt.Sprintf("DA 4856 %s created successfully.", counseling.Title), nil
}

// ListCounselings returns the visible counselings of a soldier
func (s *documentServiceImpl) ListCounselings(ctx context.Context, requesterID, soldierID string) ([]dto.CounselingView, error) {
	soldier, err := s.accessibleSoldier(ctx, requesterID, soldierID)
	if err != nil {
		return nil, err
	}
	counselings, err := s.documents.ListCounselings(ctx, soldier.UserID, nil, true)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CounselingView, 0, len(counselings))
	for _, c := range counselings {
		out = append(out, s.counselingView(c))
	}
	return out, nil
}

// GetCounseling returns one counseling
func (s *documentServiceImpl) GetCounseling(ctx context.Context, requesterID string, id int64) (*dto.CounselingView, error) {
	counseling, err := s.documents.GetCounseling(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.accessibleSoldier(ctx, requesterID, counseling.SoldierID); err != nil {
		return nil, err
	}
	v := s.counselingView(counseling)
	return &v, nil
}

// DeleteCounseling hides a counseling; the file is kept
func (s *documentServiceImpl) DeleteCounseling(ctx context.Context, requesterID string, id int64) (string, error) {
	counseling, err := s.documents.GetCounseling(ctx, id)
	if err != nil {
		return "", err
	}
	if _, err := s.accessibleSoldier(ctx, requesterID, counseling.SoldierID); err != nil {
		return "", err
	}
	if err := s.documents.HideCounseling(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("DA 4856 %s removed from User's view.", counseling.Title), nil
}

// AddSupportingDocument stores a supporting document for a soldier
func (s *documentServiceImpl) AddSupportingDocument(ctx context.Context, requesterID, soldierID string, form *dto.AddSupportingDocumentForm, file *multipart.FileHeader) (string, error) {
	soldier, err := s.accessibleSoldier(ctx, requesterID, soldierID)
	if err != nil {
		return "", err
	}
	docDate, err := helpers.ParseISODate(form.DocumentDate)
	if err != nil {
		return "", apperrors.NewValidationError("document_date", "Invalid date format. Please use YYYY-MM-DD.")
	}
	doc := &models.SupportingDocument{
		SoldierID:     soldier.UserID,
		UploadedBy:    helpers.StringPtr(requesterID),
		UploadDate:    s.now().UTC(),
		DocumentDate:  docDate,
		DocumentTitle: form.DocumentTitle,
		VisibleToUser: true,
	}
	if form.VisibleToUser != nil {
		doc.VisibleToUser = *form.VisibleToUser
	}
	if err := s.setDocumentRefs(ctx, doc, form.DocumentType, form.RelatedEvent); err != nil {
		return "", err
	}

	stored, err := s.store(file, models.SupportingDocumentFolder, soldier.UserID)
	if err != nil {
		return "", err
	}
	doc.Document = stored
	if err := s.documents.CreateSupportingDocument(ctx, doc); err != nil {
		s.discard(stored)
		return "", err
	}
	s.logger.Info().Int64("documentID", doc.ID).Str("soldierID", soldier.UserID).Str("by", requesterID).Msg("Supporting document uploaded")
	return fmt.Sprintf("Supporting Document %s created successfully.", doc.DocumentTitle), nil
}

// ListSupportingDocuments returns a soldier's supporting documents
func (s *documentServiceImpl) ListSupportingDocuments(ctx context.Context, requesterID, soldierID string, visibleOnly bool) ([]dto.SupportingDocumentView, error) {
	soldier, err := s.accessibleSoldier(ctx, requesterID, soldierID)
	if err != nil {
		return nil, err
	}
	docs, err := s.documents.ListSupportingDocuments(ctx, soldier.UserID, nil, visibleOnly)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SupportingDocumentView, 0, len(docs))
	for _, d := range docs {
		out = append(out, s.documentView(d))
	}
	return out, nil
}

// GetSupportingDocument returns one supporting document
func (s *documentServiceImpl) GetSupportingDocument(ctx context.Context, requesterID string, id int64) (*dto.SupportingDocumentView, error) {
	doc, err := s.documents.GetSupportingDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.accessibleSoldier(ctx, requesterID, doc.SoldierID); err != nil {
		return nil, err
	}
	v := s.documentView(doc)
	return &v, nil
}

// UpdateSupportingDocument changes document metadata
func (s *documentServiceImpl) UpdateSupportingDocument(ctx context.Context, requesterID string, id int64, req *dto.UpdateSupportingDocumentRequest) (string, error) {
	doc, err := s.documents.GetSupportingDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if _, err := s.accessibleSoldier(ctx, requesterID, doc.SoldierID); err != nil {
		return "", err
	}

	if req.DocumentDate != nil {
		d, err := helpers.ParseISODate(*req.DocumentDate)
		if err != nil {
			return "", apperrors.NewValidationError("document_date", "Invalid date format. Please use YYYY-MM-DD.")
		}
		doc.DocumentDate = d
	}
	if req.DocumentTitle != nil {
		doc.DocumentTitle = *req.DocumentTitle
	}
	if req.VisibleToUser != nil {
		doc.VisibleToUser = *req.VisibleToUser
	}
	if err := s.setDocumentRefs(ctx, doc, req.DocumentType, req.RelatedEvent); err != nil {
		return "", err
	}

	if err := s.documents.UpdateSupportingDocument(ctx, doc); err != nil {
		return "", err
	}
	return fmt.Sprintf("Supporting Document %s updated.", doc.DocumentTitle), nil
}

// DeleteSupportingDocument hides a supporting document; the file is kept
func (s *documentServiceImpl) DeleteSupportingDocument(ctx context.Context, requesterID string, id int64) (string, error) {
	doc, err := s.documents.GetSupportingDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if _, err := s.accessibleSoldier(ctx, requesterID, doc.SoldierID); err != nil {
		return "", err
	}
	if err := s.documents.HideSupportingDocument(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("Supporting Document %s removed from User's view.", doc.DocumentTitle), nil
}

// CombinedDocuments resolves the selected documents the requester may read into
// archive entries
func (s *documentServiceImpl) CombinedDocuments(ctx context.Context, requesterID string, req *dto.CombinedDocumentsRequest) ([]archive.Entry, error) {
	if len(req.CounselingIDs) == 0 && len(req.SupportingDocumentIDs) == 0 {
		return nil, apperrors.NewBadRequestError("No documents selected.")
	}
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}

	var entries []archive.Entry
	allowed := make(map[string]bool)
	canRead := func(soldierID string) (bool, error) {
		if ok, seen := allowed[soldierID]; seen {
			return ok, nil
		}
		_, err := s.accessibleSoldier(ctx, requesterID, soldierID)
		if err != nil && !apperrors.Is(err, apperrors.ErrUnauthorized, apperrors.ErrResourceNotFound) {
			return false, err
		}
		allowed[soldierID] = err == nil
		return err == nil, nil
	}

	if len(req.CounselingIDs) > 0 {
		counselings, err := s.documents.ListCounselings(ctx, "", req.CounselingIDs, false)
		if err != nil {
			return nil, err
		}
		for _, c := range counselings {
			ok, err := canRead(c.SoldierID)
			if err != nil {
				return nil, err
			}
			if ok && c.Document != nil {
				entries = append(entries, archive.Entry{Name: archiveName("DA4856", c.Title, *c.Document), Key: *c.Document})
			}
		}
	}
	if len(req.SupportingDocumentIDs) > 0 {
		docs, err := s.documents.ListSupportingDocuments(ctx, "", req.SupportingDocumentIDs, false)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			ok, err := canRead(d.SoldierID)
			if err != nil {
				return nil, err
			}
			if ok && d.Document != nil {
				entries = append(entries, archive.Entry{Name: archiveName("Supporting", d.DocumentTitle, *d.Document), Key: *d.Document})
			}
		}
	}

	if len(entries) == 0 {
		return nil, apperrors.NewResourceNotFoundError("No documents found with provided IDs")
	}
	return entries, nil
}

// WriteArchive streams the entries as a zip into w
func (s *documentServiceImpl) WriteArchive(w io.Writer, entries []archive.Entry) error {
	return archive.WriteZip(w, entries, s.storage.Open)
}

func (s *documentServiceImpl) accessibleSoldier(ctx context.Context, requesterID, soldierID string) (*models.Soldier, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}
	soldier, err := s.soldiers.GetByID(ctx, soldierID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireSoldierAccess(ctx, requesterID, soldier); err != nil {
		return nil, err
	}
	return soldier, nil
}

func (s *documentServiceImpl) setDocumentRefs(ctx context.Context, doc *models.SupportingDocument, docType *string, relatedEvent *int64) error {
	if docType != nil && *docType != "" {
		ok, err := s.documents.TypeExists(ctx, *docType)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewResourceNotFoundError(apperrors.MsgDocumentTypeNotFound)
		}
		doc.DocumentType = docType
	}
	if relatedEvent != nil {
		event, err := s.events.GetByID(ctx, *relatedEvent)
		if err != nil {
			return err
		}
		if event.SoldierID != doc.SoldierID {
			return apperrors.NewBadRequestError("Related event belongs to another soldier.")
		}
		doc.RelatedEvent = &event.ID
	}
	return nil
}

// store saves an uploaded file under folder/soldier; no file is allowed
func (s *documentServiceImpl) store(file *multipart.FileHeader, folder, soldierID string) (*string, error) {
	if file == nil {
		return nil, nil
	}
	stored, err := s.storage.SaveFileWithPath(file, path.Join(folder, soldierID))
	if err != nil {
		return nil, err
	}
	return &stored.Key, nil
}

func (s *documentServiceImpl) discard(key *string) {
	if key == nil {
		return
	}
	if err := s.storage.DeleteFile(*key); err != nil {
		s.logger.Warn().Err(err).Str("key", *key).Msg("Failed to remove orphaned upload")
	}
}

func (s *documentServiceImpl) url(key *string) *string {
	if key == nil || *key == "" {
		return nil
	}
	return helpers.StringPtr(s.storage.URL(*key))
}

func (s *documentServiceImpl) counselingView(c *models.Counseling) dto.CounselingView {
	return dto.CounselingView{
		ID:         c.ID,
		SoldierID:  c.SoldierID,
		Date:       eventDate(c.Date),
		Title:      c.Title,
		URL:        s.url(c.Document),
		UploadedBy: c.UploadedBy,
	}
}

func (s *documentServiceImpl) documentView(d *models.SupportingDocument) dto.SupportingDocumentView {
	return dto.SupportingDocumentView{
		ID:            d.ID,
		SoldierID:     d.SoldierID,
		UploadedBy:    d.UploadedBy,
		UploadDate:    d.UploadDate,
		DocumentDate:  eventDate(d.DocumentDate),
		DocumentTitle: d.DocumentTitle,
		DocumentType:  d.DocumentType,
		RelatedEvent:  d.RelatedEvent,
		VisibleToUser: d.VisibleToUser,
		URL:           s.url(d.Document),
	}
}

// archiveName names a stored file inside the zip by its title, keeping the stored extension
func archiveName(prefix, title, key string) string {
	return prefix + "_" + title + path.Ext(key)
}
