package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/starford/skald/internal/apperr"
	"github.com/starford/skald/internal/document"
	"github.com/starford/skald/internal/models"
	"github.com/starford/skald/internal/query"
	"github.com/starford/skald/internal/storage"
)

// JSONIndex is the flat-file backend: the whole index lives in one JSON
// artifact, replaced atomically on every rebuild. Queries load it into
// memory and filter linearly, which is fine for the anticipated corpus
// size of hundreds to low thousands of documents.
type JSONIndex struct {
	path   string // absolute path of the artifact
	store  storage.Provider
	logger *slog.Logger
}

// NewJSONIndex creates a JSON backend writing its artifact to path.
func NewJSONIndex(path string, store storage.Provider, logger *slog.Logger) *JSONIndex {
	return &JSONIndex{path: path, store: store, logger: logger}
}

type jsonArtifact struct {
	BuiltAt  time.Time      `json:"built_at"`
	Sessions []sessionEntry `json:"sessions"`
	Plans    []planEntry    `json:"plans"`
	Patterns []patternEntry `json:"patterns"`
}

// Rebuild scans the document tree and atomically replaces the artifact.
func (j *JSONIndex) Rebuild() (*models.RebuildStats, error) {
	snap, err := scanTree(j.store, j.logger)
	if err != nil {
		return nil, err
	}
	art := jsonArtifact{
		BuiltAt:  snap.Stats.BuiltAt,
		Sessions: snap.Sessions,
		Plans:    snap.Plans,
		Patterns: snap.Patterns,
	}
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("index: marshal artifact: %w", err)
	}
	if err := storage.WriteAtomic(j.path, data); err != nil {
		return nil, fmt.Errorf("index: write artifact: %w", err)
	}
	return &snap.Stats, nil
}

func (j *JSONIndex) load() (*jsonArtifact, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.ErrIndexMissing
		}
		return nil, fmt.Errorf("index: read artifact: %w", err)
	}
	var art jsonArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("index: decode artifact: %w", err)
	}
	return &art, nil
}

// BuiltAt returns the artifact's build timestamp; zero when it is missing.
func (j *JSONIndex) BuiltAt() (time.Time, error) {
	art, err := j.load()
	if err != nil {
		if err == apperr.ErrIndexMissing {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return art.BuiltAt, nil
}

// QuerySessions filters the in-memory session records.
func (j *JSONIndex) QuerySessions(f query.SessionFilter) ([]models.SessionRecord, error) {
	art, err := j.load()
	if err != nil {
		return nil, err
	}
	f = f.Resolve(time.Now())
	out := []models.SessionRecord{}
	for _, e := range art.Sessions {
		if !f.Matches(e.SessionRecord) {
			continue
		}
		out = append(out, e.SessionRecord)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// QueryPlans filters the in-memory plan records.
func (j *JSONIndex) QueryPlans(f query.PlanFilter) ([]models.PlanRecord, error) {
	art, err := j.load()
	if err != nil {
		return nil, err
	}
	out := []models.PlanRecord{}
	for _, e := range art.Plans {
		if !f.Matches(e.PlanRecord) {
			continue
		}
		out = append(out, e.PlanRecord)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// QueryPatterns filters the in-memory pattern records.
func (j *JSONIndex) QueryPatterns(f query.PatternFilter) ([]models.PatternRecord, error) {
	art, err := j.load()
	if err != nil {
		return nil, err
	}
	out := []models.PatternRecord{}
	for _, e := range art.Patterns {
		if !f.Matches(e.PatternRecord) {
			continue
		}
		out = append(out, e.PatternRecord)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Search performs a case-insensitive substring match over body text and the
// record label (session date, plan id, pattern title).
func (j *JSONIndex) Search(text string, scope query.Scope, limit int) ([]models.SearchResult, error) {
	art, err := j.load()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	needle := strings.ToLower(text)
	out := []models.SearchResult{}

	add := func(kind, path, label, body string, extra []string) bool {
		hay := strings.ToLower(body + "\n" + label + "\n" + strings.Join(extra, " "))
		if !strings.Contains(hay, needle) {
			return true
		}
		out = append(out, models.SearchResult{Kind: kind, Path: path, Label: label, Snippet: snippetOf(body)})
		return len(out) < limit
	}

	if scope.Includes(document.KindSession) {
		for _, e := range art.Sessions {
			if !add(string(document.KindSession), e.Path, e.Date, e.Body, e.Topics) {
				return out, nil
			}
		}
	}
	if scope.Includes(document.KindPlan) {
		for _, e := range art.Plans {
			if !add(string(document.KindPlan), e.Path, e.ID, e.Body, e.Topics) {
				return out, nil
			}
		}
	}
	if scope.Includes(document.KindPattern) {
		for _, e := range art.Patterns {
			if !add(string(document.KindPattern), e.Path, e.Title, e.Body, e.Keywords) {
				return out, nil
			}
		}
	}
	return out, nil
}

// Close is a no-op; the JSON backend holds no handles between calls.
func (j *JSONIndex) Close() error { return nil }
