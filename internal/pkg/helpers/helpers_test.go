package helpers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestCalculateOffsetLimit(t *testing.T) {
	tests := []struct {
		page, size int
		offset     uint64
		limit      int
	}{
		{1, 10, 0, 10},
		{3, 25, 50, 25},
		{0, 10, 0, 10},
		{2, 0, 10, DefaultPageSize},
		{2, 500, 10, DefaultPageSize},
	}
	for _, tt := range tests {
		offset, limit := CalculateOffsetLimit(tt.page, tt.size)
		if offset != tt.offset || limit != tt.limit {
			t.Errorf("CalculateOffsetLimit(%d, %d) = %d, %d; want %d, %d", tt.page, tt.size, offset, limit, tt.offset, tt.limit)
		}
	}
}

func TestNewPaginationInfo(t *testing.T) {
	info := NewPaginationInfo(41, 2, 20)
	if info.TotalPages != 3 || info.CurrentPage != 2 || info.TotalItems != 41 {
		t.Fatalf("unexpected pagination info %+v", info)
	}

	empty := NewPaginationInfo(0, 1, 10)
	if empty.TotalPages != 1 {
		t.Fatalf("empty first page should report one page, got %d", empty.TotalPages)
	}

	clamped := NewPaginationInfo(5, 9, 10)
	if clamped.CurrentPage != 1 {
		t.Fatalf("current page should be clamped, got %d", clamped.CurrentPage)
	}
}

func TestParsePaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/units?page=4&size=1000", nil)

	page, size := ParsePaginationParams(c)
	if page != 4 || size != DefaultPageSize {
		t.Fatalf("got page=%d size=%d", page, size)
	}
}

func TestNullHelpers(t *testing.T) {
	if GetContentNullString("   ").Valid {
		t.Errorf("blank string should be NULL")
	}
	if !GetContentNullString("WDDRA0").Valid {
		t.Errorf("non-blank string should be valid")
	}
	if StringPtr("") != nil {
		t.Errorf("StringPtr of blank should be nil")
	}
	if StringOrEmpty(nil) != "" {
		t.Errorf("StringOrEmpty(nil) should be empty")
	}
	if got := EscapeLike("50%_off"); got != `50\%\_off` {
		t.Errorf("EscapeLike = %q", got)
	}
}

func TestDateHelpers(t *testing.T) {
	d, err := ParseISODate("2024-02-29")
	if err != nil {
		t.Fatalf("ParseISODate: %v", err)
	}
	if got := FormatDisplayDate(&d, "Never"); got != "02/29/2024" {
		t.Errorf("FormatDisplayDate = %q", got)
	}
	if got := FormatISODate(d); got != "2024-02-29" {
		t.Errorf("FormatISODate = %q", got)
	}
	if got := FormatDisplayDate(nil, "Never"); got != "Never" {
		t.Errorf("nil date should use fallback, got %q", got)
	}
	if _, err := ParseISODate("02/29/2024"); err == nil {
		t.Errorf("expected an error for a non ISO date")
	}

	ts := time.Date(2024, 5, 6, 23, 59, 0, 0, time.UTC)
	if !DateOf(ts).Equal(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DateOf did not truncate")
	}
	if ParseDuration("bogus", time.Minute) != time.Minute {
		t.Errorf("ParseDuration should fall back")
	}
}
