package validation

import "testing"

func TestIsUIC(t *testing.T) {
	cases := map[string]bool{
		"WDDRA0":    true,
		"TF1A2B3C4": true,
		"TF1a2b3c4": false,
		"WDDRA":     false,
		"":          false,
		"wddra0":    false,
	}
	for in, want := range cases {
		if got := IsUIC(in); got != want {
			t.Errorf("IsUIC(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsDoDID(t *testing.T) {
	if !IsDoDID("1234567890") {
		t.Errorf("expected 10 digits to pass")
	}
	if IsDoDID("12345") || IsDoDID("12345678ab") {
		t.Errorf("expected malformed ids to fail")
	}
}

type taggedRequest struct {
	UIC    string `validate:"required,uic"`
	UserID string `validate:"required,dodid"`
	Date   string `validate:"omitempty,isodate"`
}

func TestCustomTags(t *testing.T) {
	v := New()

	if err := v.Struct(taggedRequest{UIC: "WDDRA0", UserID: "1234567890", Date: "2024-01-31"}); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	if err := v.Struct(taggedRequest{UIC: "bad", UserID: "1234567890"}); err == nil {
		t.Fatalf("expected uic tag to fail")
	}
	if err := v.Struct(taggedRequest{UIC: "WDDRA0", UserID: "1234567890", Date: "01/31/2024"}); err == nil {
		t.Fatalf("expected isodate tag to fail")
	}
}
