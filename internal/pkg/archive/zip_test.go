package archive

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

func memOpener(files map[string]string) Opener {
	return func(key string) (io.ReadCloser, error) {
		body, ok := files[key]
		if !ok {
			return nil, errors.New("missing")
		}
		return io.NopCloser(strings.NewReader(body)), nil
	}
}

func TestWriteZip(t *testing.T) {
	files := map[string]string{
		"counselings/1/a.pdf":          "first",
		"supporting_documents/1/b.pdf": "second",
	}
	entries := []Entry{
		{Name: "Counseling.pdf", Key: "counselings/1/a.pdf"},
		{Name: "../Counseling.pdf", Key: "supporting_documents/1/b.pdf"},
	}

	var buf bytes.Buffer
	if err := WriteZip(&buf, entries, memOpener(files)); err != nil {
		t.Fatalf("WriteZip: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 files, got %d", len(zr.File))
	}
	if zr.File[0].Name != "Counseling.pdf" || zr.File[1].Name != "Counseling (1).pdf" {
		t.Fatalf("unexpected names %q %q", zr.File[0].Name, zr.File[1].Name)
	}

	rc, err := zr.File[1].Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "second" {
		t.Fatalf("body = %q", body)
	}
}

func TestWriteZipErrors(t *testing.T) {
	if err := WriteZip(io.Discard, nil, memOpener(nil)); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	err := WriteZip(io.Discard, []Entry{{Name: "x", Key: "nope"}}, memOpener(nil))
	if err == nil {
		t.Fatalf("expected an open failure")
	}
}
