package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/app/services"
	"github.com/ai2c/amap/internal/middleware"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/archive"
	"github.com/ai2c/amap/internal/pkg/report"
	"github.com/ai2c/amap/internal/pkg/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const requester = "1000000002"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := validation.RegisterWithGin(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newRouter() *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, requester)
		c.Next()
	})
	return r
}

func serve(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return resp
}

type stubUnits struct {
	services.UnitService
	uics []string
	err  error
}

func (s *stubUnits) GetUnit(_ context.Context, requesterID, uic string) (*models.Unit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Unit{UIC: uic}, nil
}

func (s *stubUnits) UnitSoldiers(_ context.Context, _ string, uics []string) ([]dto.UnitSoldiersResponse, error) {
	s.uics = uics
	return []dto.UnitSoldiersResponse{}, nil
}

func TestGetUnit(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "found", status: http.StatusOK},
		{name: "missing", err: apperrors.NewResourceNotFoundError("Unit does not exist."), status: http.StatusNotFound, message: "Unit does not exist."},
		{name: "no role", err: apperrors.NewUnauthorizedError("Requesting user does not have a user role for this unit."), status: http.StatusUnauthorized, message: "Requesting user does not have a user role for this unit."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter()
			r.GET("/units/:uic", NewUnitController(&stubUnits{err: tt.err}).GetUnit)

			w := serve(r, http.MethodGet, "/units/WAAAA0", "")
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			if tt.message != "" {
				if got := decodeError(t, w).Error.Message; got != tt.message {
					t.Errorf("message = %q, want %q", got, tt.message)
				}
			}
		})
	}
}

func TestUnitSoldiersPassesUICs(t *testing.T) {
	stub := &stubUnits{}
	r := newRouter()
	r.GET("/units/soldiers", NewUnitController(stub).UnitSoldiers)

	w := serve(r, http.MethodGet, "/units/soldiers?uics=WAAAA0&uics=WBBBB0", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if len(stub.uics) != 2 || stub.uics[0] != "WAAAA0" || stub.uics[1] != "WBBBB0" {
		t.Errorf("uics = %v", stub.uics)
	}
}

type stubFlags struct {
	services.FlagService
	deleted int64
}

func (s *stubFlags) DeleteFlag(_ context.Context, _ string, id int64) (string, error) {
	s.deleted = id
	return "Flag removed", nil
}

func TestDeleteFlagParsesID(t *testing.T) {
	stub := &stubFlags{}
	r := newRouter()
	r.DELETE("/flags/:id", NewFlagController(stub).DeleteFlag)

	w := serve(r, http.MethodDelete, "/flags/abc", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := decodeError(t, w).Error.Code; got != dto.ErrorCodeValidationFailed {
		t.Errorf("code = %s", got)
	}
	if stub.deleted != 0 {
		t.Error("service called with an invalid id")
	}

	w = serve(r, http.MethodDelete, "/flags/42", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if stub.deleted != 42 {
		t.Errorf("deleted = %d, want 42", stub.deleted)
	}
}

func TestCreateFlagValidation(t *testing.T) {
	r := newRouter()
	r.POST("/flags", NewFlagController(&stubFlags{}).CreateFlag)

	w := serve(r, http.MethodPost, "/flags", `{"soldier_id":"1000000003","flag_type":"Nope","mx_availability":"Limited","start_date":"2024-01-31"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

type stubFaultETL struct {
	services.FaultETLService
	filterDate *string
	err        error
}

func (s *stubFaultETL) TransformFaults(_ context.Context, filterDate *string) (*dto.FaultETLResult, error) {
	s.filterDate = filterDate
	if s.err != nil {
		return nil, s.err
	}
	return &dto.FaultETLResult{Message: dto.FaultETLMessage}, nil
}

func TestTransformFaults(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		err    error
		status int
		want   string
	}{
		{name: "default window", target: "/etl/faults", status: http.StatusOK},
		{name: "query", target: "/etl/faults?filter_date=2024-01-31", status: http.StatusOK, want: "2024-01-31"},
		{name: "body", target: "/etl/faults", body: `{"filter_date":"2024-02-01"}`, status: http.StatusOK, want: "2024-02-01"},
		{name: "bad date", target: "/etl/faults", body: `{"filter_date":"01/31/2024"}`, status: http.StatusBadRequest},
		{name: "no staging", target: "/etl/faults", err: apperrors.NewCustomError(apperrors.ErrServiceUnavailable, "Staging source database is not configured."), status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubFaultETL{err: tt.err}
			r := newRouter()
			r.POST("/etl/faults", NewETLController(stub, nil, nil).TransformFaults)

			w := serve(r, http.MethodPost, tt.target, tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			if tt.want == "" {
				if stub.filterDate != nil {
					t.Errorf("filterDate = %q, want nil", *stub.filterDate)
				}
				return
			}
			if stub.filterDate == nil || *stub.filterDate != tt.want {
				t.Errorf("filterDate = %v, want %s", stub.filterDate, tt.want)
			}
		})
	}
}

type stubReports struct {
	services.ReportService
	calls int
}

func (s *stubReports) UnitSummary(_ context.Context, _, uic string) (*dto.UnitSummaryResponse, error) {
	s.calls++
	return &dto.UnitSummaryResponse{
		UIC:     uic,
		Columns: report.UnitSummaryHeader,
		Rows:    []report.UnitSummaryRow{{Unit: "A CO", PrimaryMOS: "15T", Total: 2, Available: 1}},
	}, nil
}

func TestUnitSummaryFormats(t *testing.T) {
	stub := &stubReports{}
	r := newRouter()
	r.GET("/reports/unit-summary/:uic", NewReportController(stub).UnitSummary)

	w := serve(r, http.MethodGet, "/reports/unit-summary/WAAAA0?format=pdf", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("pdf status = %d, want 400", w.Code)
	}
	if stub.calls != 0 {
		t.Error("service called for an unsupported format")
	}

	w = serve(r, http.MethodGet, "/reports/unit-summary/WAAAA0?format=csv", "")
	if w.Code != http.StatusOK {
		t.Fatalf("csv status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "WAAAA0_unit_summary.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "Unit,Primary MOS,ML0") {
		t.Errorf("body = %q", w.Body.String())
	}

	w = serve(r, http.MethodGet, "/reports/unit-summary/WAAAA0", "")
	if w.Code != http.StatusOK {
		t.Fatalf("json status = %d", w.Code)
	}
	var resp struct {
		Data dto.UnitSummaryResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.UIC != "WAAAA0" || len(resp.Data.Rows) != 1 || resp.Data.Rows[0].PrimaryMOS != "15T" {
		t.Errorf("data = %+v", resp.Data)
	}
}

type stubDocuments struct {
	services.DocumentService
	err error
}

func (s *stubDocuments) CombinedDocuments(_ context.Context, _ string, req *dto.CombinedDocumentsRequest) ([]archive.Entry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []archive.Entry{{Name: "a.pdf", Key: "k/a.pdf"}}, nil
}

func (s *stubDocuments) WriteArchive(w io.Writer, entries []archive.Entry) error {
	_, err := io.WriteString(w, "PK")
	return err
}

func TestCombinedDocuments(t *testing.T) {
	r := newRouter()
	r.POST("/forms/documents/combined", NewDocumentController(&stubDocuments{}, zerolog.Nop()).CombinedDocuments)

	w := serve(r, http.MethodPost, "/forms/documents/combined", `{"counseling_ids":[1]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, combinedArchiveName) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if w.Body.String() != "PK" {
		t.Errorf("body = %q", w.Body.String())
	}

	r = newRouter()
	notFound := &stubDocuments{err: apperrors.NewResourceNotFoundError("No documents found with provided IDs")}
	r.POST("/forms/documents/combined", NewDocumentController(notFound, zerolog.Nop()).CombinedDocuments)
	w = serve(r, http.MethodPost, "/forms/documents/combined", `{"supporting_document_ids":[9]}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

type stubNotifications struct {
	services.NotificationService
	userID  string
	id      *int64
	readAll bool
}

func (s *stubNotifications) MarkRead(_ context.Context, userID string, id *int64, readAll bool) error {
	s.userID, s.id, s.readAll = userID, id, readAll
	return nil
}

func TestMarkRead(t *testing.T) {
	stub := &stubNotifications{}
	r := newRouter()
	r.PUT("/notifications/read", NewNotificationController(stub).MarkRead)

	w := serve(r, http.MethodPut, "/notifications/read", `{"notification_id":7}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if stub.userID != requester || stub.id == nil || *stub.id != 7 || stub.readAll {
		t.Errorf("got user %s id %v readAll %v", stub.userID, stub.id, stub.readAll)
	}
}

type stubForms struct {
	services.FormService
	table string
}

func (s *stubForms) Lookups(_ context.Context, table string) ([]*models.Lookup, error) {
	s.table = table
	return []*models.Lookup{}, nil
}

func (s *stubForms) UpdateEvent(_ context.Context, _ string, _ int64, _ *dto.UpdateEventRequest) (string, error) {
	return "", apperrors.NewPartialUpdateError("Some fields were not updated.", []string{"date"})
}

func TestFormLookupsAndPartialUpdate(t *testing.T) {
	stub := &stubForms{}
	c := NewFormController(stub)
	r := newRouter()
	r.GET("/forms/training_types", c.TrainingTypes)
	r.PUT("/forms/events/:id", c.UpdateEvent)

	if w := serve(r, http.MethodGet, "/forms/training_types", ""); w.Code != http.StatusOK {
		t.Fatalf("lookup status = %d", w.Code)
	}
	if stub.table != models.LookupTrainingTypes {
		t.Errorf("table = %q", stub.table)
	}

	w := serve(r, http.MethodPut, "/forms/events/3", `{"date":"bad"}`)
	if w.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206: %s", w.Code, w.Body.String())
	}
	if got := decodeError(t, w).Error.Code; got != dto.ErrorCodePartialUpdate {
		t.Errorf("code = %s", got)
	}
}

type stubDesignations struct {
	services.DesignationService
	soldierID string
	current   bool
	calls     int
}

func (s *stubDesignations) ListDesignations(_ context.Context, _, soldierID string, currentOnly bool) ([]dto.DesignationView, error) {
	s.calls++
	s.soldierID = soldierID
	s.current = currentOnly
	return []dto.DesignationView{}, nil
}

func TestListDesignationsCurrentQuery(t *testing.T) {
	stub := &stubDesignations{}
	r := newRouter()
	r.GET("/designations/soldier/:user_id", NewDesignationController(stub).ListDesignations)

	if w := serve(r, http.MethodGet, "/designations/soldier/ALL?current=maybe", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if stub.calls != 0 {
		t.Error("service called with an invalid current flag")
	}

	if w := serve(r, http.MethodGet, "/designations/soldier/ALL?current=true", ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if stub.soldierID != services.AllDesignations || !stub.current {
		t.Errorf("got soldier %q current %v", stub.soldierID, stub.current)
	}

	serve(r, http.MethodGet, "/designations/soldier/1000000003", "")
	if stub.soldierID != "1000000003" || stub.current {
		t.Errorf("got soldier %q current %v", stub.soldierID, stub.current)
	}
}

func TestCreateDesignationValidation(t *testing.T) {
	r := newRouter()
	r.POST("/designations", NewDesignationController(&stubDesignations{}).CreateDesignation)

	w := serve(r, http.MethodPost, "/designations", `{"soldier_id":"1000000003","unit_uic":"WCCCC0","designation":"QC","start_date":"2024-01-01","end_date":"someday"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}
