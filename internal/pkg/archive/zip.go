// Package archive bundles stored documents into a single zip download.
package archive

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ErrEmpty is returned when there is nothing to archive
var ErrEmpty = errors.New("no entries to archive")

// Entry is one file of the archive
type Entry struct {
	// Name inside the archive; duplicates get a numeric suffix
	Name string
	// Key of the file in storage
	Key string
}

// Opener reads a stored file by key
type Opener func(key string) (io.ReadCloser, error)

// WriteZip streams entries read through open into w
func WriteZip(w io.Writer, entries []Entry, open Opener) error {
	if len(entries) == 0 {
		return ErrEmpty
	}

	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(entries))

	for _, e := range entries {
		name := uniqueName(sanitize(e.Name), seen)
		if err := copyEntry(zw, name, e.Key, open); err != nil {
			_ = zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

func copyEntry(zw *zip.Writer, name, key string, open Opener) error {
	rc, err := open(key)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer rc.Close()

	fw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := io.Copy(fw, rc); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", name, err)
	}
	return nil
}

func sanitize(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = path.Base(name)
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	return name
}

func uniqueName(name string, seen map[string]int) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + " (" + strconv.Itoa(n) + ")" + ext
}
