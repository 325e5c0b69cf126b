// Package query defines the typed filter specifications accepted by every
// index backend, plus the shared in-memory match semantics.
//
// All filters are AND-combined. Date literals are validated up front: a bad
// date is an input error, never a silent empty result.
package query

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/skald/internal/apperr"
	"github.com/starford/skald/internal/document"
	"github.com/starford/skald/internal/models"
)

// Scope limits a search to one document kind or all kinds.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeSessions Scope = "sessions"
	ScopePlans    Scope = "plans"
	ScopePatterns Scope = "patterns"
)

// Validate checks the scope literal. The empty scope is treated as ScopeAll.
func (s Scope) Validate() error {
	switch s {
	case "", ScopeAll, ScopeSessions, ScopePlans, ScopePatterns:
		return nil
	}
	return &apperr.ValidationError{Field: "scope", Value: string(s), Reason: "must be all, sessions, plans, or patterns"}
}

// Includes reports whether documents of kind fall inside the scope.
func (s Scope) Includes(kind document.Kind) bool {
	switch s {
	case "", ScopeAll:
		return true
	case ScopeSessions:
		return kind == document.KindSession
	case ScopePlans:
		return kind == document.KindPlan
	case ScopePatterns:
		return kind == document.KindPattern
	}
	return false
}

// SessionFilter selects session records. Zero values mean "no constraint".
type SessionFilter struct {
	Date     string // exact date
	After    string // inclusive lower bound
	Before   string // inclusive upper bound
	LastDays int    // convenience window ending today; folded into After by Resolve
	Topic    string // substring match against any topic
	Plan     string // exact linked-plan identifier
	Limit    int
}

// Validate checks filter literals before any backend work happens.
func (f SessionFilter) Validate() error {
	if err := checkDates(map[string]string{"date": f.Date, "after": f.After, "before": f.Before}); err != nil {
		return err
	}
	if err := validation.Validate(f.LastDays, validation.Min(0)); err != nil {
		return &apperr.ValidationError{Field: "last-days", Reason: "must not be negative"}
	}
	return nil
}

// Resolve folds the LastDays window into After relative to now. Backends
// apply it once so both evaluate the same effective range.
func (f SessionFilter) Resolve(now time.Time) SessionFilter {
	if f.LastDays > 0 {
		cut := now.AddDate(0, 0, -(f.LastDays - 1)).Format(document.DateLayout)
		if cut > f.After {
			f.After = cut
		}
		f.LastDays = 0
	}
	return f
}

// Matches evaluates a resolved filter against one record.
func (f SessionFilter) Matches(r models.SessionRecord) bool {
	if f.Date != "" && r.Date != f.Date {
		return false
	}
	if f.After != "" && r.Date < f.After {
		return false
	}
	if f.Before != "" && r.Date > f.Before {
		return false
	}
	if f.Plan != "" && r.Plan != f.Plan {
		return false
	}
	if f.Topic != "" && !anyContainsFold(r.Topics, f.Topic) {
		return false
	}
	return true
}

// PlanFilter selects plan records. Zero values mean "no constraint".
type PlanFilter struct {
	Status        string // exact enum value
	Author        string // exact match
	Topic         string // substring match against any topic
	UpdatedAfter  string // inclusive lower bound
	UpdatedBefore string // inclusive upper bound
	Limit         int
}

// Validate checks filter literals, including that a status constraint names
// a real enum value.
func (f PlanFilter) Validate() error {
	if f.Status != "" && !document.ValidStatus(document.KindPlan, f.Status) {
		return &apperr.ValidationError{
			Field: "status", Value: f.Status,
			Reason: "must be one of " + strings.Join(document.PlanStatuses, ", "),
		}
	}
	return checkDates(map[string]string{"updated-after": f.UpdatedAfter, "updated-before": f.UpdatedBefore})
}

// Matches evaluates the filter against one record.
func (f PlanFilter) Matches(r models.PlanRecord) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Author != "" && r.Author != f.Author {
		return false
	}
	if f.UpdatedAfter != "" && r.Updated < f.UpdatedAfter {
		return false
	}
	if f.UpdatedBefore != "" && r.Updated > f.UpdatedBefore {
		return false
	}
	if f.Topic != "" && !anyContainsFold(r.Topics, f.Topic) {
		return false
	}
	return true
}

// PatternFilter selects pattern records. Zero values mean "no constraint".
type PatternFilter struct {
	Title   string // substring match against the title
	Keyword string // substring match against any trigger keyword
	Limit   int
}

// Validate is a no-op today; patterns carry no date or enum fields.
func (f PatternFilter) Validate() error { return nil }

// Matches evaluates the filter against one record.
func (f PatternFilter) Matches(r models.PatternRecord) bool {
	if f.Title != "" && !containsFold(r.Title, f.Title) {
		return false
	}
	if f.Keyword != "" && !anyContainsFold(r.Keywords, f.Keyword) {
		return false
	}
	return true
}

func checkDates(fields map[string]string) error {
	for name, val := range fields {
		if val == "" {
			continue
		}
		if err := validation.Validate(val, validation.Date(document.DateLayout)); err != nil {
			return &apperr.ValidationError{Field: name, Value: val, Reason: "must be a YYYY-MM-DD calendar date"}
		}
	}
	return nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func anyContainsFold(items []string, sub string) bool {
	for _, it := range items {
		if containsFold(it, sub) {
			return true
		}
	}
	return false
}
