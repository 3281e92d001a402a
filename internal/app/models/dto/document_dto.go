package dto

import "time"

// AddCounselingForm is the multipart form of a DA 4856 upload
type AddCounselingForm struct {
	Date  string `form:"date" binding:"required,isodate"`
	Title string `form:"title" binding:"required,max=128"`
}

// AddSupportingDocumentForm is the multipart form of a supporting document upload
type AddSupportingDocumentForm struct {
	DocumentDate  string  `form:"document_date" binding:"required,isodate"`
	DocumentTitle string  `form:"document_title" binding:"required,max=128"`
	DocumentType  *string `form:"document_type"`
	RelatedEvent  *int64  `form:"related_event"`
	VisibleToUser *bool   `form:"visible_to_user"`
}

// UpdateSupportingDocumentRequest changes document metadata
type UpdateSupportingDocumentRequest struct {
	DocumentDate  *string `json:"document_date" binding:"omitempty,isodate"`
	DocumentTitle *string `json:"document_title" binding:"omitempty,max=128"`
	DocumentType  *string `json:"document_type"`
	RelatedEvent  *int64  `json:"related_event"`
	VisibleToUser *bool   `json:"visible_to_user"`
}

// CombinedDocumentsRequest selects documents for a zip download
type CombinedDocumentsRequest struct {
	CounselingIDs         []int64 `json:"counseling_ids"`
	SupportingDocumentIDs []int64 `json:"supporting_document_ids"`
}

// CounselingView is a counseling with its file URL
type CounselingView struct {
	ID         int64   `json:"id"`
	SoldierID  string  `json:"soldier_id"`
	Date       string  `json:"date" example:"01/31/2024"`
	Title      string  `json:"title"`
	URL        *string `json:"url"`
	UploadedBy *string `json:"uploaded_by"`
}

// SupportingDocumentView is a supporting document with its file URL
type SupportingDocumentView struct {
	ID            int64     `json:"id"`
	SoldierID     string    `json:"soldier_id"`
	UploadedBy    *string   `json:"uploaded_by"`
	UploadDate    time.Time `json:"upload_date"`
	DocumentDate  string    `json:"document_date" example:"01/31/2024"`
	DocumentTitle string    `json:"document_title"`
	DocumentType  *string   `json:"document_type"`
	RelatedEvent  *int64    `json:"related_event"`
	VisibleToUser bool      `json:"visible_to_user"`
	URL           *string   `json:"url"`
}
