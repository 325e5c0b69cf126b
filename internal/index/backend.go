// Package index implements the derived, rebuildable projection of the
// journal: a JSON flat-file backend, a SQLite backend, and the AutoIndexer
// that keeps whichever backend is configured fresh before every read.
//
// The two backends are interchangeable; choosing one is a deployment-time
// decision made at construction, never inspected at runtime.
package index

import (
	"time"

	"github.com/starford/skald/internal/models"
	"github.com/starford/skald/internal/query"
)

// Backend is the contract every index backend satisfies.
//
// Rebuild always performs a full re-scan of the document tree and fully
// replaces prior index state; it is safe to call at any time. A malformed
// document never fails a rebuild wholesale: it is skipped and recorded in
// RebuildStats.Errors.
//
// Query results follow a hard ordering contract: sessions newest date first
// (path ascending on ties), plans newest update first (id ascending on
// ties), patterns by title ascending.
type Backend interface {
	Rebuild() (*models.RebuildStats, error)
	// BuiltAt returns the index build timestamp, or the zero time when no
	// index has ever been built (the missing state).
	BuiltAt() (time.Time, error)
	QuerySessions(f query.SessionFilter) ([]models.SessionRecord, error)
	QueryPlans(f query.PlanFilter) ([]models.PlanRecord, error)
	QueryPatterns(f query.PatternFilter) ([]models.PatternRecord, error)
	Search(text string, scope query.Scope, limit int) ([]models.SearchResult, error)
	Close() error
}

// defaultSearchLimit caps Search results when the caller gives no limit.
const defaultSearchLimit = 20

var (
	_ Backend = (*JSONIndex)(nil)
	_ Backend = (*SQLiteIndex)(nil)
	_ Backend = (*AutoIndexer)(nil)
)
