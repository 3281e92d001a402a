package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"testing"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/klauspost/compress/zip"
)

func newDocumentService(w *world) DocumentService {
	w.documents.types = []*models.SupportingDocumentType{{ID: 1, Type: "Memo"}}
	svc := NewDocumentService(w.documents, w.events, w.soldiers, w.storage, w.authz, testLogger)
	svc.(*documentServiceImpl).now = fixedNow("2024-03-01")
	return svc
}

// upload builds the file header a multipart request would carry
func upload(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	form, err := multipart.NewReader(&body, mw.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	return form.File["file"][0]
}

func TestCounselingLifecycle(t *testing.T) {
	w := newWorld()
	svc := newDocumentService(w)
	ctx := context.Background()

	msg, err := svc.AddCounseling(ctx, managerID, memberID, &dto.AddCounselingForm{Date: "2024-01-31", Title: "Initial"}, upload(t, "counsel.pdf", "pdf-bytes"))
	if err != nil {
		t.Fatalf("AddCounseling: %v", err)
	}
	if msg != "DA 4856 Initial created successfully." {
		t.Errorf("message = %q", msg)
	}
	if _, ok := w.storage.files["counselings/"+memberID+"/f.pdf"]; !ok {
		t.Errorf("stored files = %v", w.storage.files)
	}

	list, err := svc.ListCounselings(ctx, memberID, memberID)
	if err != nil {
		t.Fatalf("ListCounselings: %v", err)
	}
	if len(list) != 1 || list[0].Date != "01/31/2024" || list[0].URL == nil || *list[0].URL != "/uploads/counselings/"+memberID+"/f.pdf" {
		t.Fatalf("list = %+v", list)
	}

	if _, err := svc.GetCounseling(ctx, outsiderID, list[0].ID); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("outsider get: %v", err)
	}

	msg, err = svc.DeleteCounseling(ctx, managerID, list[0].ID)
	if err != nil {
		t.Fatalf("DeleteCounseling: %v", err)
	}
	if msg != "DA 4856 Initial removed from User's view." {
		t.Errorf("message = %q", msg)
	}
	if list, _ := svc.ListCounselings(ctx, memberID, memberID); len(list) != 0 {
		t.Errorf("hidden counseling still listed")
	}
	if len(w.storage.files) != 1 {
		t.Errorf("hiding should keep the file")
	}
}

func TestAddSupportingDocumentReferences(t *testing.T) {
	w := newWorld()
	svc := newDocumentService(w)
	ctx := context.Background()
	w.events.events[7] = &models.Event{ID: 7, SoldierID: outsiderID, Date: day("2024-01-01")}
	w.events.events[8] = &models.Event{ID: 8, SoldierID: memberID, Date: day("2024-01-01")}

	_, err := svc.AddSupportingDocument(ctx, managerID, memberID, &dto.AddSupportingDocumentForm{DocumentDate: "2024-01-31", DocumentTitle: "Orders", DocumentType: strp("Letter")}, upload(t, "a.pdf", "x"))
	if msg, _ := apperrors.MessageOf(err); msg != apperrors.MsgDocumentTypeNotFound {
		t.Errorf("unknown type: %v", err)
	}
	var other int64 = 7
	_, err = svc.AddSupportingDocument(ctx, managerID, memberID, &dto.AddSupportingDocumentForm{DocumentDate: "2024-01-31", DocumentTitle: "Orders", RelatedEvent: &other}, upload(t, "a.pdf", "x"))
	if !errors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("foreign event: %v", err)
	}
	if len(w.storage.files) != 0 {
		t.Errorf("rejected uploads should not be stored")
	}

	var mine int64 = 8
	msg, err := svc.AddSupportingDocument(ctx, managerID, memberID, &dto.AddSupportingDocumentForm{DocumentDate: "2024-01-31", DocumentTitle: "Orders", DocumentType: strp("Memo"), RelatedEvent: &mine}, upload(t, "a.pdf", "x"))
	if err != nil {
		t.Fatalf("AddSupportingDocument: %v", err)
	}
	if msg != "Supporting Document Orders created successfully." {
		t.Errorf("message = %q", msg)
	}

	docs, _ := svc.ListSupportingDocuments(ctx, managerID, memberID, true)
	if len(docs) != 1 || docs[0].RelatedEvent == nil || *docs[0].RelatedEvent != 8 || !docs[0].UploadDate.Equal(fixedNow("2024-03-01")()) {
		t.Fatalf("docs = %+v", docs)
	}

	msg, err = svc.UpdateSupportingDocument(ctx, managerID, docs[0].ID, &dto.UpdateSupportingDocumentRequest{DocumentTitle: strp("Amended Orders"), VisibleToUser: boolp(false)})
	if err != nil {
		t.Fatalf("UpdateSupportingDocument: %v", err)
	}
	if msg != "Supporting Document Amended Orders updated." {
		t.Errorf("message = %q", msg)
	}
	if visible, _ := svc.ListSupportingDocuments(ctx, managerID, memberID, true); len(visible) != 0 {
		t.Errorf("document should be hidden")
	}
	if all, _ := svc.ListSupportingDocuments(ctx, managerID, memberID, false); len(all) != 1 {
		t.Errorf("document should still be listed with visible_only=false")
	}
}

func TestCombinedDocuments(t *testing.T) {
	w := newWorld()
	svc := newDocumentService(w)
	ctx := context.Background()

	if _, err := svc.AddCounseling(ctx, managerID, memberID, &dto.AddCounselingForm{Date: "2024-01-31", Title: "Initial"}, upload(t, "c.pdf", "counseling")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddSupportingDocument(ctx, adminID, outsiderID, &dto.AddSupportingDocumentForm{DocumentDate: "2024-01-31", DocumentTitle: "Orders"}, upload(t, "o.txt", "orders")); err != nil {
		t.Fatal(err)
	}

	_, err := svc.CombinedDocuments(ctx, managerID, &dto.CombinedDocumentsRequest{})
	if msg, _ := apperrors.MessageOf(err); msg != "No documents selected." {
		t.Errorf("empty selection: %v", err)
	}

	entries, err := svc.CombinedDocuments(ctx, managerID, &dto.CombinedDocumentsRequest{CounselingIDs: []int64{1}, SupportingDocumentIDs: []int64{2}})
	if err != nil {
		t.Fatalf("CombinedDocuments: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "DA4856_Initial.pdf" {
		t.Fatalf("entries = %+v", entries)
	}

	var buf bytes.Buffer
	if err := svc.WriteArchive(&buf, entries); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "DA4856_Initial.pdf" {
		t.Fatalf("zip files = %v", zr.File)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	if data, _ := io.ReadAll(rc); string(data) != "counseling" {
		t.Errorf("content = %q", data)
	}

	_, err = svc.CombinedDocuments(ctx, managerID, &dto.CombinedDocumentsRequest{SupportingDocumentIDs: []int64{2}})
	if msg, _ := apperrors.MessageOf(err); msg != "No documents found with provided IDs" {
		t.Errorf("only unreadable documents: %v", err)
	}
}
