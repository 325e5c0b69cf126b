package document

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/skald/internal/apperr"
)

// Kind distinguishes the three document variants. Each kind lives in its own
// subdirectory of the journal root.
type Kind string

const (
	KindSession Kind = "session"
	KindPlan    Kind = "plan"
	KindPattern Kind = "pattern"
)

// Kinds returns all document kinds in their canonical order.
func Kinds() []Kind { return []Kind{KindSession, KindPlan, KindPattern} }

// Valid reports whether k names a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSession, KindPlan, KindPattern:
		return true
	}
	return false
}

// Dir returns the journal subdirectory holding documents of this kind.
func (k Kind) Dir() string {
	switch k {
	case KindSession:
		return "sessions"
	case KindPlan:
		return "plans"
	case KindPattern:
		return "patterns"
	}
	return ""
}

// DateLayout is the fixed calendar-date form used by all date fields.
const DateLayout = "2006-01-02"

// Header field names.
const (
	FieldDate     = "date"
	FieldStatus   = "status"
	FieldTopics   = "topics"
	FieldPlan     = "plan"
	FieldFiles    = "files"
	FieldID       = "id"
	FieldAuthor   = "author"
	FieldUpdated  = "updated"
	FieldTitle    = "title"
	FieldKeywords = "keywords"
)

// Status enums per kind.
var (
	SessionStatuses = []string{"in-progress", "complete", "abandoned"}
	PlanStatuses    = []string{"active", "paused", "planned", "complete", "cancelled"}
)

// ValidStatus reports whether status is in the kind's allowed enum.
func ValidStatus(kind Kind, status string) bool {
	var allowed []string
	switch kind {
	case KindSession:
		allowed = SessionStatuses
	case KindPlan:
		allowed = PlanStatuses
	default:
		return false
	}
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

// ValidateHeader checks the kind-specific required fields and enum values.
// It returns a *apperr.ValidationError naming the first offending field.
func ValidateHeader(kind Kind, h Header) error {
	switch kind {
	case KindSession:
		if err := checkField(FieldDate, h.Scalar(FieldDate),
			validation.Required, validation.Date(DateLayout)); err != nil {
			return err
		}
		if err := checkField(FieldStatus, h.Scalar(FieldStatus),
			validation.Required, validation.In(anys(SessionStatuses)...)); err != nil {
			return err
		}
		if _, ok := h.Get(FieldTopics); !ok {
			return &apperr.ValidationError{Field: FieldTopics, Reason: "required"}
		}
	case KindPlan:
		if err := checkField(FieldID, h.Scalar(FieldID), validation.Required); err != nil {
			return err
		}
		if err := checkField(FieldStatus, h.Scalar(FieldStatus),
			validation.Required, validation.In(anys(PlanStatuses)...)); err != nil {
			return err
		}
		if err := checkField(FieldAuthor, h.Scalar(FieldAuthor), validation.Required); err != nil {
			return err
		}
		if err := checkField(FieldUpdated, h.Scalar(FieldUpdated),
			validation.Required, validation.Date(DateLayout)); err != nil {
			return err
		}
	case KindPattern:
		if err := checkField(FieldTitle, h.Scalar(FieldTitle), validation.Required); err != nil {
			return err
		}
		if len(h.Items(FieldKeywords)) == 0 {
			return &apperr.ValidationError{Field: FieldKeywords, Reason: "required"}
		}
	default:
		return &apperr.ValidationError{Field: "kind", Value: string(kind), Reason: "unknown document kind"}
	}
	return nil
}

func checkField(name, value string, rules ...validation.Rule) error {
	if err := validation.Validate(value, rules...); err != nil {
		return &apperr.ValidationError{Field: name, Value: value, Reason: err.Error()}
	}
	return nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a canonical filename stem from free text, e.g. a pattern
// title: lowercased, runs of non-alphanumerics collapsed to single hyphens.
func Slug(s string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func anys(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
