package models

import "time"

// Counseling is a DA 4856 record
type Counseling struct {
	ID            int64     `json:"id" db:"id"`
	SoldierID     string    `json:"soldier_id" db:"soldier_id"`
	Date          time.Time `json:"date" db:"date"`
	Title         string    `json:"title" db:"title"`
	Document      *string   `json:"document" db:"document"`
	VisibleToUser bool      `json:"visible_to_user" db:"visible_to_user"`
	UploadedBy    *string   `json:"uploaded_by" db:"uploaded_by"`
}

// SupportingDocumentType is a document category
type SupportingDocumentType struct {
	ID   int64  `json:"id" db:"id"`
	Type string `json:"type" db:"type"`
}

// SupportingDocument is a file attached to a soldier's record
type SupportingDocument struct {
	ID            int64     `json:"id" db:"id"`
	SoldierID     string    `json:"soldier_id" db:"soldier_id"`
	UploadedBy    *string   `json:"uploaded_by" db:"uploaded_by"`
	UploadDate    time.Time `json:"upload_date" db:"upload_date"`
	DocumentDate  time.Time `json:"document_date" db:"document_date"`
	DocumentTitle string    `json:"document_title" db:"document_title"`
	Document      *string   `json:"document" db:"document"`
	DocumentType  *string   `json:"document_type" db:"document_type"`
	RelatedEvent  *int64    `json:"related_event" db:"related_event"`
	VisibleToUser bool      `json:"visible_to_user" db:"visible_to_user"`
}

// Storage folders for uploaded documents
const (
	CounselingFolder         = "counselings"
	SupportingDocumentFolder = "supporting_documents"
)
