package filestorage

import (
	"io"
	"mime/multipart"
)

// StoredFile describes a file written to storage
type StoredFile struct {
	Key          string // path relative to the storage root, persisted in the database
	URL          string // public URL served under /uploads
	OriginalName string
	Size         int64
}

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// SaveFileWithPath stores an uploaded file under a subdirectory
	SaveFileWithPath(fileHeader *multipart.FileHeader, subPath string) (*StoredFile, error)

	// SaveStream stores the content of r under a subdirectory
	SaveStream(r io.Reader, filename, subPath string) (*StoredFile, error)

	// Open returns the content of a stored file
	Open(key string) (io.ReadCloser, error)

	// DeleteFile removes a file from storage
	DeleteFile(key string) error

	// URL returns the public URL of a stored file
	URL(key string) string
}
