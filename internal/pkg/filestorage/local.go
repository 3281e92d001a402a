package filestorage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ai2c/amap/internal/pkg/logger"
	"github.com/google/uuid"
)

// ErrInvalidKey is returned for keys escaping the storage root
var ErrInvalidKey = errors.New("invalid file key")

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // root directory of stored files
	baseURL  string // public prefix, e.g. https://amap.example/uploads
}

// NewLocalStorage creates a new LocalStorage instance.
// When baseURL is empty URLs are relative to /uploads.
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	if baseURL == "" {
		baseURL = "/uploads"
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// SaveFileWithPath saves an uploaded file to a specified subdirectory
func (ls *LocalStorage) SaveFileWithPath(fileHeader *multipart.FileHeader, subPath string) (*StoredFile, error) {
	if fileHeader == nil {
		return nil, fmt.Errorf("no file uploaded")
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to open uploaded file")
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	return ls.SaveStream(file, fileHeader.Filename, subPath)
}

// SaveStream writes r to a uniquely named file under subPath
func (ls *LocalStorage) SaveStream(r io.Reader, filename, subPath string) (*StoredFile, error) {
	subPath = path.Clean("/" + filepath.ToSlash(subPath))[1:]

	fullDirPath := filepath.Join(ls.basePath, filepath.FromSlash(subPath))
	if err := os.MkdirAll(fullDirPath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", fullDirPath).Msg("Failed to create subdirectory")
		return nil, fmt.Errorf("failed to create subdirectory: %w", err)
	}

	uniqueFilename := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	key := path.Join(subPath, uniqueFilename)
	dstPath := filepath.Join(fullDirPath, uniqueFilename)

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, r)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		_ = os.Remove(dstPath)
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}

	logger.Info().Str("filename", filename).Str("key", key).Int64("size", size).Msg("File saved successfully")
	return &StoredFile{
		Key:          key,
		URL:          ls.URL(key),
		OriginalName: filename,
		Size:         size,
	}, nil
}

// Open returns a reader over a stored file
func (ls *LocalStorage) Open(key string) (io.ReadCloser, error) {
	physicalPath, err := ls.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(physicalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	return f, nil
}

// DeleteFile removes a file from the storage filesystem.
// Deleting a missing file is not an error.
func (ls *LocalStorage) DeleteFile(key string) error {
	if key == "" {
		return nil
	}

	physicalPath, err := ls.resolve(key)
	if err != nil {
		return err
	}

	if _, err := os.Stat(physicalPath); os.IsNotExist(err) {
		logger.Warn().Str("path", physicalPath).Msg("File to delete does not exist")
		return nil
	}

	if err := os.Remove(physicalPath); err != nil {
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", physicalPath).Msg("File deleted successfully")
	return nil
}

// URL returns the public URL of key
func (ls *LocalStorage) URL(key string) string {
	if key == "" {
		return ""
	}
	return ls.baseURL + "/" + strings.TrimLeft(key, "/")
}

func (ls *LocalStorage) resolve(key string) (string, error) {
	cleaned := path.Clean("/" + filepath.ToSlash(key))
	if cleaned == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return filepath.Join(ls.basePath, filepath.FromSlash(cleaned[1:])), nil
}
