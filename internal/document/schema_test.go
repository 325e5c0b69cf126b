package document

import (
	"errors"
	"testing"

	"github.com/starford/skald/internal/apperr"
)

func validSessionHeader() Header {
	var h Header
	h.Set(FieldDate, String("2026-08-30"))
	h.Set(FieldStatus, String("in-progress"))
	h.Set(FieldTopics, List("tdd"))
	return h
}

func TestValidateHeader_Session(t *testing.T) {
	if err := ValidateHeader(KindSession, validSessionHeader()); err != nil {
		t.Fatalf("valid header rejected: %v", err)
	}
}

func TestValidateHeader_BadDate(t *testing.T) {
	h := validSessionHeader()
	h.Set(FieldDate, String("2026-13-45"))
	err := ValidateHeader(KindSession, h)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != FieldDate {
		t.Errorf("field = %q, want %q", ve.Field, FieldDate)
	}
}

func TestValidateHeader_BadStatus(t *testing.T) {
	h := validSessionHeader()
	h.Set(FieldStatus, String("done"))
	err := ValidateHeader(KindSession, h)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != FieldStatus {
		t.Errorf("field = %q, want %q", ve.Field, FieldStatus)
	}
}

func TestValidateHeader_MissingTopics(t *testing.T) {
	var h Header
	h.Set(FieldDate, String("2026-08-30"))
	h.Set(FieldStatus, String("complete"))
	if err := ValidateHeader(KindSession, h); err == nil {
		t.Fatal("expected error for missing topics")
	}
}

func TestValidateHeader_Plan(t *testing.T) {
	var h Header
	h.Set(FieldID, String("api-rework"))
	h.Set(FieldStatus, String("active"))
	h.Set(FieldAuthor, String("alice"))
	h.Set(FieldUpdated, String("2026-08-30"))
	if err := ValidateHeader(KindPlan, h); err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}

	h.Set(FieldUpdated, String("not-a-date"))
	if err := ValidateHeader(KindPlan, h); err == nil {
		t.Fatal("expected error for bad updated date")
	}
}

func TestValidateHeader_Pattern(t *testing.T) {
	var h Header
	h.Set(FieldTitle, String("Prefer table tests"))
	h.Set(FieldKeywords, List("testing"))
	if err := ValidateHeader(KindPattern, h); err != nil {
		t.Fatalf("valid pattern rejected: %v", err)
	}

	h.Set(FieldKeywords, List())
	if err := ValidateHeader(KindPattern, h); err == nil {
		t.Fatal("expected error for empty keywords")
	}
}

func TestValidStatus(t *testing.T) {
	cases := []struct {
		kind   Kind
		status string
		want   bool
	}{
		{KindSession, "in-progress", true},
		{KindSession, "active", false},
		{KindPlan, "active", true},
		{KindPlan, "in-progress", false},
		{KindPattern, "anything", false},
	}
	for _, tc := range cases {
		if got := ValidStatus(tc.kind, tc.status); got != tc.want {
			t.Errorf("ValidStatus(%s, %s) = %v, want %v", tc.kind, tc.status, got, tc.want)
		}
	}
}

func TestSlug(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Prefer Table Tests", "prefer-table-tests"},
		{"  SQLite + WAL!  ", "sqlite-wal"},
		{"already-sluggy", "already-sluggy"},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := Slug(tc.in); got != tc.want {
			t.Errorf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
