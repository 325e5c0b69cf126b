package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/skald/internal/apperr"
	"github.com/starford/skald/internal/document"
)

// CreateSessionParams holds the initial field values for a new session.
// Date defaults to today, Status to in-progress.
type CreateSessionParams struct {
	Date    string
	Status  string
	Topics  []string
	Plan    string
	Files   []string
	Summary string
}

// CreateSession writes a new session document and rebuilds the index. The
// filename is derived from the date; an existing file for that date is
// refused with ErrAlreadyExists and left untouched.
func (s *Service) CreateSession(_ context.Context, p CreateSessionParams) (string, error) {
	if p.Date == "" {
		p.Date = today()
	}
	if p.Status == "" {
		p.Status = "in-progress"
	}

	var h document.Header
	h.Set(document.FieldDate, document.String(p.Date))
	h.Set(document.FieldStatus, document.String(p.Status))
	h.Set(document.FieldTopics, document.List(p.Topics...))
	if p.Plan != "" {
		h.Set(document.FieldPlan, document.String(p.Plan))
	}
	if len(p.Files) > 0 {
		h.Set(document.FieldFiles, document.List(p.Files...))
	}
	if err := document.ValidateHeader(document.KindSession, h); err != nil {
		return "", err
	}

	path := document.KindSession.Dir() + "/" + p.Date + ".md"
	return path, s.createDocument(path, h, initialBody("Summary", p.Summary))
}

// CreatePlanParams holds the initial field values for a new plan.
// Status defaults to planned; the updated field is always set to today.
type CreatePlanParams struct {
	ID     string
	Author string
	Status string
	Topics []string
	Goal   string
}

// CreatePlan writes a new plan document and rebuilds the index. The
// filename is derived from the identifier.
func (s *Service) CreatePlan(_ context.Context, p CreatePlanParams) (string, error) {
	if strings.ContainsAny(p.ID, "/\\ ") {
		return "", &apperr.ValidationError{Field: document.FieldID, Value: p.ID, Reason: "must not contain separators or spaces"}
	}
	if p.Status == "" {
		p.Status = "planned"
	}

	var h document.Header
	h.Set(document.FieldID, document.String(p.ID))
	h.Set(document.FieldStatus, document.String(p.Status))
	h.Set(document.FieldAuthor, document.String(p.Author))
	h.Set(document.FieldUpdated, document.String(today()))
	if len(p.Topics) > 0 {
		h.Set(document.FieldTopics, document.List(p.Topics...))
	}
	if err := document.ValidateHeader(document.KindPlan, h); err != nil {
		return "", err
	}

	path := document.KindPlan.Dir() + "/" + p.ID + ".md"
	return path, s.createDocument(path, h, initialBody("Goal", p.Goal))
}

// CreatePatternParams holds the initial field values for a new pattern.
type CreatePatternParams struct {
	Title    string
	Keywords []string
	Lesson   string
}

// CreatePattern writes a new pattern document and rebuilds the index. The
// filename is a slug derived from the title.
func (s *Service) CreatePattern(_ context.Context, p CreatePatternParams) (string, error) {
	var h document.Header
	h.Set(document.FieldTitle, document.String(p.Title))
	h.Set(document.FieldKeywords, document.List(p.Keywords...))
	if err := document.ValidateHeader(document.KindPattern, h); err != nil {
		return "", err
	}
	slug := document.Slug(p.Title)
	if slug == "" {
		return "", &apperr.ValidationError{Field: document.FieldTitle, Value: p.Title, Reason: "yields an empty filename"}
	}

	path := document.KindPattern.Dir() + "/" + slug + ".md"
	return path, s.createDocument(path, h, initialBody("Lesson", p.Lesson))
}

// SessionMutation is a set of metadata changes for one session. Zero-valued
// fields are left untouched; list fields are append-if-absent.
type SessionMutation struct {
	Status    string
	Plan      string
	AddTopics []string
	AddFiles  []string
}

// UpdateSession applies metadata mutations to the session for date, then
// rebuilds the index. Returns the document path.
func (s *Service) UpdateSession(_ context.Context, date string, m SessionMutation) (string, error) {
	if err := validation.Validate(date, validation.Required, validation.Date(document.DateLayout)); err != nil {
		return "", &apperr.ValidationError{Field: document.FieldDate, Value: date, Reason: "must be a YYYY-MM-DD calendar date"}
	}
	if m.Status != "" && !document.ValidStatus(document.KindSession, m.Status) {
		return "", &apperr.ValidationError{
			Field: document.FieldStatus, Value: m.Status,
			Reason: "must be one of " + strings.Join(document.SessionStatuses, ", "),
		}
	}
	path := document.KindSession.Dir() + "/" + date + ".md"
	return path, s.mutateDocument(document.KindSession, path, func(doc *document.Document) error {
		if m.Status != "" {
			doc.Header.Set(document.FieldStatus, document.String(m.Status))
		}
		if m.Plan != "" {
			doc.Header.Set(document.FieldPlan, document.String(m.Plan))
		}
		for _, t := range m.AddTopics {
			doc.Header.AppendUnique(document.FieldTopics, t)
		}
		for _, f := range m.AddFiles {
			doc.Header.AppendUnique(document.FieldFiles, f)
		}
		return nil
	})
}

// PlanMutation is a set of metadata changes for one plan.
type PlanMutation struct {
	Status    string
	Author    string
	AddTopics []string
}

// UpdatePlan applies metadata mutations to the plan with the given
// identifier. Any mutation bumps the plan's updated field to today.
func (s *Service) UpdatePlan(_ context.Context, id string, m PlanMutation) (string, error) {
	if strings.ContainsAny(id, "/\\ ") {
		return "", &apperr.ValidationError{Field: document.FieldID, Value: id, Reason: "must not contain separators or spaces"}
	}
	if m.Status != "" && !document.ValidStatus(document.KindPlan, m.Status) {
		return "", &apperr.ValidationError{
			Field: document.FieldStatus, Value: m.Status,
			Reason: "must be one of " + strings.Join(document.PlanStatuses, ", "),
		}
	}
	path := document.KindPlan.Dir() + "/" + id + ".md"
	return path, s.mutateDocument(document.KindPlan, path, func(doc *document.Document) error {
		if m.Status != "" {
			doc.Header.Set(document.FieldStatus, document.String(m.Status))
		}
		if m.Author != "" {
			doc.Header.Set(document.FieldAuthor, document.String(m.Author))
		}
		for _, t := range m.AddTopics {
			doc.Header.AppendUnique(document.FieldTopics, t)
		}
		doc.Header.Set(document.FieldUpdated, document.String(today()))
		return nil
	})
}

// AppendSection inserts a new titled section into the body of the document
// identified by kind and target (the filename stem: session date, plan id,
// or pattern slug). An ambiguous anchor fails before anything is written.
func (s *Service) AppendSection(_ context.Context, kind document.Kind, target, heading, content string, anchor document.Anchor) (string, error) {
	if !kind.Valid() {
		return "", &apperr.ValidationError{Field: "kind", Value: string(kind), Reason: "unknown document kind"}
	}
	if heading == "" {
		return "", &apperr.ValidationError{Field: "heading", Reason: "required"}
	}
	if strings.ContainsAny(target, "/\\ ") {
		return "", &apperr.ValidationError{Field: "target", Value: target, Reason: "must not contain separators or spaces"}
	}
	path := kind.Dir() + "/" + target + ".md"
	return path, s.mutateDocument(kind, path, func(doc *document.Document) error {
		body, err := document.InsertSection(doc.Body, heading, content, anchor)
		if err != nil {
			return err
		}
		doc.Body = body
		return nil
	})
}

// createDocument writes a new file and rebuilds. The existence check plus
// atomic write keeps a duplicate create from ever clobbering content.
func (s *Service) createDocument(path string, h document.Header, body string) error {
	if s.store.Exists(path) {
		return fmt.Errorf("journal: %s: %w", path, apperr.ErrAlreadyExists)
	}
	if err := s.store.Write(path, document.Serialize(h, body)); err != nil {
		return err
	}
	s.logger.Info("journal: created", slog.String("path", path))
	_, err := s.idx.Rebuild()
	return err
}

// mutateDocument loads the target, applies fn, revalidates the header, and
// writes back followed by a rebuild. A parse error here is fatal: this is
// the exact file the caller asked to modify. fn returning an error leaves
// the file untouched.
func (s *Service) mutateDocument(kind document.Kind, path string, fn func(*document.Document) error) error {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("journal: %s: %w", path, apperr.ErrNotFound)
		}
		return err
	}
	doc, err := document.Parse(data)
	if err != nil {
		if pe, ok := err.(*apperr.ParseError); ok {
			pe.Path = path
		}
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	if err := document.ValidateHeader(kind, doc.Header); err != nil {
		return err
	}
	if err := s.store.Write(path, doc.Bytes()); err != nil {
		return err
	}
	s.logger.Info("journal: updated", slog.String("path", path))
	_, err = s.idx.Rebuild()
	return err
}

// initialBody renders the single seed section every new document starts with.
func initialBody(heading, content string) string {
	if content == "" {
		return "## " + heading + "\n"
	}
	return "## " + heading + "\n\n" + strings.TrimRight(content, "\n") + "\n"
}
