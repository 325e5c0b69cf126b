// Package journal coordinates the query and mutation surfaces of the
// document index. Queries go through the AutoIndexer so results are never
// stale; mutations write the document file through the atomic storage layer
// and then force a full rebuild, so file and index never diverge for longer
// than one operation.
package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/skald/internal/document"
	"github.com/starford/skald/internal/index"
	"github.com/starford/skald/internal/models"
	"github.com/starford/skald/internal/query"
	"github.com/starford/skald/internal/storage"
)

// Service is the single entry point consumed by the CLI, the HTTP API, and
// the MCP layer.
type Service struct {
	store  storage.Provider
	idx    *index.AutoIndexer
	logger *slog.Logger
}

// NewService creates a journal service.
func NewService(store storage.Provider, idx *index.AutoIndexer, logger *slog.Logger) *Service {
	return &Service{store: store, idx: idx, logger: logger}
}

// Rebuild forces a full index rebuild regardless of staleness.
func (s *Service) Rebuild(_ context.Context) (*models.RebuildStats, error) {
	return s.idx.Rebuild()
}

// Sessions returns session records matching the filter, newest date first.
func (s *Service) Sessions(_ context.Context, f query.SessionFilter) ([]models.SessionRecord, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return s.idx.QuerySessions(f)
}

// Plans returns plan records matching the filter, newest update first.
func (s *Service) Plans(_ context.Context, f query.PlanFilter) ([]models.PlanRecord, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return s.idx.QueryPlans(f)
}

// Patterns returns pattern records matching the filter, by title.
func (s *Service) Patterns(_ context.Context, f query.PatternFilter) ([]models.PatternRecord, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return s.idx.QueryPatterns(f)
}

// Search runs a substring search over indexed body text.
func (s *Service) Search(_ context.Context, text string, scope query.Scope, limit int) ([]models.SearchResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.idx.Search(text, scope, limit)
}

func today() string {
	return time.Now().Format(document.DateLayout)
}
