package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/skald/internal/document"
	"github.com/starford/skald/internal/models"
	"github.com/starford/skald/internal/query"
	"github.com/starford/skald/internal/storage"
)

// staleSkew absorbs file systems that round mtimes to a coarser resolution
// than the recorded build timestamp, so an unchanged tree is never seen as
// stale.
const staleSkew = 10 * time.Millisecond

// AutoIndexer wraps a Backend and guarantees index freshness before every
// read: if any document's mtime postdates the last build (or no index
// exists), it rebuilds first. A failed rebuild surfaces to the caller;
// stale results are never served as fresh.
//
// With auto disabled it degrades to a plain pass-through and the caller owns
// calling Rebuild; reads against a never-built index then fail with
// ErrIndexMissing.
type AutoIndexer struct {
	backend   Backend
	store     storage.Provider
	auto      bool
	warnAfter time.Duration
	logger    *slog.Logger
}

// NewAutoIndexer wraps backend. warnAfter, when positive, logs a warning for
// rebuilds that exceed it; it never aborts a rebuild.
func NewAutoIndexer(backend Backend, store storage.Provider, auto bool, warnAfter time.Duration, logger *slog.Logger) *AutoIndexer {
	return &AutoIndexer{backend: backend, store: store, auto: auto, warnAfter: warnAfter, logger: logger}
}

// EnsureFresh rebuilds the index if any document is newer than the last
// build or no build has happened yet.
func (a *AutoIndexer) EnsureFresh() error {
	if !a.auto {
		return nil
	}
	built, err := a.backend.BuiltAt()
	if err != nil {
		return err
	}
	if !built.IsZero() {
		latest, err := a.latestModTime()
		if err != nil {
			return fmt.Errorf("index: staleness check: %w", err)
		}
		if !latest.After(built.Add(staleSkew)) {
			return nil
		}
	}
	_, err = a.Rebuild()
	return err
}

func (a *AutoIndexer) latestModTime() (time.Time, error) {
	var latest time.Time
	for _, kind := range document.Kinds() {
		infos, err := a.store.List(kind.Dir())
		if err != nil {
			return time.Time{}, err
		}
		for _, fi := range infos {
			if fi.ModTime.After(latest) {
				latest = fi.ModTime
			}
		}
	}
	return latest, nil
}

// Rebuild delegates to the backend and logs slow rebuilds.
func (a *AutoIndexer) Rebuild() (*models.RebuildStats, error) {
	stats, err := a.backend.Rebuild()
	if err != nil {
		return nil, err
	}
	if a.warnAfter > 0 && stats.Duration > a.warnAfter {
		a.logger.Warn("index: slow rebuild",
			slog.Duration("duration", stats.Duration),
			slog.Duration("warn_after", a.warnAfter))
	}
	return stats, nil
}

// BuiltAt delegates to the backend.
func (a *AutoIndexer) BuiltAt() (time.Time, error) { return a.backend.BuiltAt() }

// QuerySessions ensures freshness, then delegates.
func (a *AutoIndexer) QuerySessions(f query.SessionFilter) ([]models.SessionRecord, error) {
	if err := a.EnsureFresh(); err != nil {
		return nil, err
	}
	return a.backend.QuerySessions(f)
}

// QueryPlans ensures freshness, then delegates.
func (a *AutoIndexer) QueryPlans(f query.PlanFilter) ([]models.PlanRecord, error) {
	if err := a.EnsureFresh(); err != nil {
		return nil, err
	}
	return a.backend.QueryPlans(f)
}

// QueryPatterns ensures freshness, then delegates.
func (a *AutoIndexer) QueryPatterns(f query.PatternFilter) ([]models.PatternRecord, error) {
	if err := a.EnsureFresh(); err != nil {
		return nil, err
	}
	return a.backend.QueryPatterns(f)
}

// Search ensures freshness, then delegates.
func (a *AutoIndexer) Search(text string, scope query.Scope, limit int) ([]models.SearchResult, error) {
	if err := a.EnsureFresh(); err != nil {
		return nil, err
	}
	return a.backend.Search(text, scope, limit)
}

// Close closes the wrapped backend.
func (a *AutoIndexer) Close() error { return a.backend.Close() }
