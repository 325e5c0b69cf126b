package index

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/starford/skald/internal/checksum"
	"github.com/starford/skald/internal/document"
	"github.com/starford/skald/internal/models"
	"github.com/starford/skald/internal/storage"
)

// sessionEntry couples the indexed metadata with the body text kept for
// full-text search. Same shape for the other kinds below.
type sessionEntry struct {
	models.SessionRecord
	Body string `json:"body"`
}

type planEntry struct {
	models.PlanRecord
	Body string `json:"body"`
}

type patternEntry struct {
	models.PatternRecord
	Body string `json:"body"`
}

// snapshot is the result of one full document-tree scan. Both backends
// persist snapshots; neither ever merges one into prior state.
type snapshot struct {
	Sessions []sessionEntry
	Plans    []planEntry
	Patterns []patternEntry
	Stats    models.RebuildStats
}

// scanTree walks the per-kind journal directories and extracts index
// records. A document that fails to parse or validate is skipped, logged,
// and recorded in the stats; the scan continues.
//
// Stats.BuiltAt is the scan start time, not the end: a file modified while
// the scan is in flight then carries an mtime newer than the build stamp,
// so the next staleness check rebuilds rather than trusting a read that may
// have raced the edit.
func scanTree(store storage.Provider, logger *slog.Logger) (*snapshot, error) {
	start := time.Now()
	snap := &snapshot{}
	snap.Stats.BuiltAt = start

	for _, kind := range document.Kinds() {
		infos, err := store.List(kind.Dir())
		if err != nil {
			return nil, fmt.Errorf("index: list %s: %w", kind.Dir(), err)
		}
		for _, fi := range infos {
			snap.Stats.Scanned++
			if err := scanFile(snap, store, kind, fi.Path); err != nil {
				snap.Stats.Errors = append(snap.Stats.Errors, models.IndexError{Path: fi.Path, Message: err.Error()})
				logger.Warn("rebuild: document skipped",
					slog.String("path", fi.Path), slog.String("error", err.Error()))
			}
		}
	}

	sortSnapshot(snap)
	snap.Stats.Sessions = len(snap.Sessions)
	snap.Stats.Plans = len(snap.Plans)
	snap.Stats.Patterns = len(snap.Patterns)
	snap.Stats.Duration = time.Since(start)
	return snap, nil
}

func scanFile(snap *snapshot, store storage.Provider, kind document.Kind, path string) error {
	data, err := store.Read(path)
	if err != nil {
		return err
	}
	doc, err := document.Parse(data)
	if err != nil {
		return err
	}
	if err := document.ValidateHeader(kind, doc.Header); err != nil {
		return err
	}
	cs := checksum.Sum(data)
	h := &doc.Header

	switch kind {
	case document.KindSession:
		snap.Sessions = append(snap.Sessions, sessionEntry{
			SessionRecord: models.SessionRecord{
				Path:     path,
				Date:     h.Scalar(document.FieldDate),
				Status:   h.Scalar(document.FieldStatus),
				Topics:   nonNil(h.Items(document.FieldTopics)),
				Plan:     h.Scalar(document.FieldPlan),
				Files:    nonNil(h.Items(document.FieldFiles)),
				Checksum: cs,
			},
			Body: doc.Body,
		})
	case document.KindPlan:
		snap.Plans = append(snap.Plans, planEntry{
			PlanRecord: models.PlanRecord{
				Path:     path,
				ID:       h.Scalar(document.FieldID),
				Status:   h.Scalar(document.FieldStatus),
				Author:   h.Scalar(document.FieldAuthor),
				Updated:  h.Scalar(document.FieldUpdated),
				Topics:   nonNil(h.Items(document.FieldTopics)),
				Checksum: cs,
			},
			Body: doc.Body,
		})
	case document.KindPattern:
		snap.Patterns = append(snap.Patterns, patternEntry{
			PatternRecord: models.PatternRecord{
				Path:     path,
				Title:    h.Scalar(document.FieldTitle),
				Keywords: nonNil(h.Items(document.FieldKeywords)),
				Checksum: cs,
			},
			Body: doc.Body,
		})
	}
	return nil
}

// sortSnapshot applies the ordering contract so both backends return rows
// in the same sequence without an explicit sort parameter.
func sortSnapshot(snap *snapshot) {
	sort.Slice(snap.Sessions, func(i, j int) bool {
		a, b := snap.Sessions[i], snap.Sessions[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		return a.Path < b.Path
	})
	sort.Slice(snap.Plans, func(i, j int) bool {
		a, b := snap.Plans[i], snap.Plans[j]
		if a.Updated != b.Updated {
			return a.Updated > b.Updated
		}
		return a.ID < b.ID
	})
	sort.Slice(snap.Patterns, func(i, j int) bool {
		a, b := snap.Patterns[i], snap.Patterns[j]
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.Path < b.Path
	})
}

// snippetOf returns the stored search snippet for a body.
func snippetOf(body string) string {
	const max = 200
	if len(body) > max {
		return body[:max]
	}
	return body
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
