package query

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/skald/internal/apperr"
	"github.com/starford/skald/internal/models"
)

func TestSessionFilter_ValidateDates(t *testing.T) {
	cases := []struct {
		name string
		f    SessionFilter
		ok   bool
	}{
		{"empty", SessionFilter{}, true},
		{"valid range", SessionFilter{After: "2026-08-01", Before: "2026-08-30"}, true},
		{"bad date", SessionFilter{Date: "08/30/2026"}, false},
		{"impossible date", SessionFilter{After: "2026-02-30"}, false},
		{"negative last days", SessionFilter{LastDays: -1}, false},
	}
	for _, tc := range cases {
		err := tc.f.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok {
			var ve *apperr.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
			}
		}
	}
}

func TestSessionFilter_ResolveLastDays(t *testing.T) {
	now := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)

	// last_days=1 means "today only".
	f := SessionFilter{LastDays: 1}.Resolve(now)
	if f.After != "2026-08-30" {
		t.Errorf("After = %q, want 2026-08-30", f.After)
	}
	if f.LastDays != 0 {
		t.Errorf("LastDays should be consumed, got %d", f.LastDays)
	}

	f = SessionFilter{LastDays: 7}.Resolve(now)
	if f.After != "2026-08-24" {
		t.Errorf("After = %q, want 2026-08-24", f.After)
	}

	// An explicit tighter After wins over the window.
	f = SessionFilter{LastDays: 7, After: "2026-08-28"}.Resolve(now)
	if f.After != "2026-08-28" {
		t.Errorf("After = %q, want 2026-08-28", f.After)
	}
}

func TestSessionFilter_Matches(t *testing.T) {
	r := models.SessionRecord{
		Date:   "2026-08-30",
		Status: "in-progress",
		Topics: []string{"TDD", "refactor"},
		Plan:   "api-rework",
	}
	cases := []struct {
		name string
		f    SessionFilter
		want bool
	}{
		{"no constraints", SessionFilter{}, true},
		{"date match", SessionFilter{Date: "2026-08-30"}, true},
		{"date miss", SessionFilter{Date: "2026-08-29"}, false},
		{"range inclusive", SessionFilter{After: "2026-08-30", Before: "2026-08-30"}, true},
		{"before excludes", SessionFilter{Before: "2026-08-29"}, false},
		{"topic case-insensitive substring", SessionFilter{Topic: "tdd"}, true},
		{"topic miss", SessionFilter{Topic: "docs"}, false},
		{"plan match", SessionFilter{Plan: "api-rework"}, true},
		{"plan miss", SessionFilter{Plan: "other"}, false},
	}
	for _, tc := range cases {
		if got := tc.f.Matches(r); got != tc.want {
			t.Errorf("%s: Matches = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPlanFilter_ValidateStatus(t *testing.T) {
	if err := (PlanFilter{Status: "active"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := (PlanFilter{Status: "in-progress"}).Validate()
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for non-plan status, got %v", err)
	}
}

func TestPlanFilter_Matches(t *testing.T) {
	r := models.PlanRecord{
		ID:      "api-rework",
		Status:  "active",
		Author:  "alice",
		Updated: "2026-08-29",
		Topics:  []string{"api"},
	}
	if !(PlanFilter{Status: "active", Author: "alice", Topic: "API"}).Matches(r) {
		t.Error("combined filter should match")
	}
	if (PlanFilter{UpdatedAfter: "2026-08-30"}).Matches(r) {
		t.Error("updated-after should exclude older plans")
	}
	if !(PlanFilter{UpdatedAfter: "2026-08-29", UpdatedBefore: "2026-08-29"}).Matches(r) {
		t.Error("bounds are inclusive")
	}
}

func TestPatternFilter_Matches(t *testing.T) {
	r := models.PatternRecord{
		Title:    "Prefer table tests",
		Keywords: []string{"testing", "style"},
	}
	if !(PatternFilter{Title: "table"}).Matches(r) {
		t.Error("title substring should match")
	}
	if !(PatternFilter{Keyword: "TEST"}).Matches(r) {
		t.Error("keyword match should be case-insensitive")
	}
	if (PatternFilter{Keyword: "sql"}).Matches(r) {
		t.Error("keyword miss should not match")
	}
}

func TestScope_Validate(t *testing.T) {
	for _, s := range []Scope{"", ScopeAll, ScopeSessions, ScopePlans, ScopePatterns} {
		if err := s.Validate(); err != nil {
			t.Errorf("scope %q rejected: %v", s, err)
		}
	}
	if err := Scope("notes").Validate(); err == nil {
		t.Error("expected error for unknown scope")
	}
}
