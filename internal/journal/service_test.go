package journal_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/skald/internal/apperr"
	"github.com/starford/skald/internal/document"
	"github.com/starford/skald/internal/index"
	"github.com/starford/skald/internal/journal"
	"github.com/starford/skald/internal/query"
	"github.com/starford/skald/internal/testutil"
)

func newService(t *testing.T) (*journal.Service, string) {
	t.Helper()
	root, store := testutil.TestJournal(t)
	auto := index.NewAutoIndexer(testutil.TestJSONIndex(t, store), store, true, 0, testutil.Logger())
	return journal.NewService(store, auto, testutil.Logger()), root
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestCreateSession_ThenQueryToday(t *testing.T) {
	svc, root := newService(t)
	ctx := context.Background()

	path, err := svc.CreateSession(ctx, journal.CreateSessionParams{
		Topics:  []string{"tdd"},
		Summary: "Started the refactor.",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	today := time.Now().Format(document.DateLayout)
	if path != "sessions/"+today+".md" {
		t.Errorf("path = %q", path)
	}

	content := readFile(t, root, path)
	if !strings.Contains(content, "date: "+today) || !strings.Contains(content, "status: in-progress") {
		t.Errorf("content = %q", content)
	}
	if !strings.Contains(content, "topics: [tdd]") {
		t.Errorf("content = %q", content)
	}

	sessions, err := svc.Sessions(ctx, query.SessionFilter{LastDays: 1})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Date != today {
		t.Fatalf("sessions = %+v", sessions)
	}
	if !cmp.Equal(sessions[0].Topics, []string{"tdd"}) {
		t.Errorf("topics = %v", sessions[0].Topics)
	}
}

func TestCreateSession_DuplicateRefused(t *testing.T) {
	svc, root := newService(t)
	ctx := context.Background()

	p := journal.CreateSessionParams{Date: "2026-08-30", Topics: []string{"tdd"}, Summary: "original"}
	path, err := svc.CreateSession(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	before := readFile(t, root, path)

	p.Summary = "overwrite attempt"
	if _, err := svc.CreateSession(ctx, p); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if after := readFile(t, root, path); after != before {
		t.Error("existing file was modified by refused create")
	}
}

func TestUpdateSession_AppendTopicPreservesOrder(t *testing.T) {
	svc, root := newService(t)
	ctx := context.Background()

	path, err := svc.CreateSession(ctx, journal.CreateSessionParams{
		Date:   "2026-08-30",
		Topics: []string{"tdd"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateSession(ctx, "2026-08-30", journal.SessionMutation{
		AddTopics: []string{"refactor", "tdd"}, // tdd already present
		Status:    "complete",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	content := readFile(t, root, path)
	if !strings.Contains(content, "topics: [tdd, refactor]") {
		t.Errorf("topic order not preserved: %q", content)
	}
	// Field order is untouched: date stays first.
	if !strings.HasPrefix(content, "---\ndate: 2026-08-30\n") {
		t.Errorf("header reordered: %q", content)
	}

	sessions, err := svc.Sessions(ctx, query.SessionFilter{Date: "2026-08-30"})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].Status != "complete" {
		t.Fatalf("sessions = %+v", sessions)
	}
	if !cmp.Equal(sessions[0].Topics, []string{"tdd", "refactor"}) {
		t.Errorf("topics = %v", sessions[0].Topics)
	}
}

func TestUpdateSession_InvalidStatusLeavesFileUntouched(t *testing.T) {
	svc, root := newService(t)
	ctx := context.Background()

	path, err := svc.CreateSession(ctx, journal.CreateSessionParams{Date: "2026-08-30", Topics: []string{"tdd"}})
	if err != nil {
		t.Fatal(err)
	}
	before := readFile(t, root, path)

	_, err = svc.UpdateSession(ctx, "2026-08-30", journal.SessionMutation{Status: "finished"})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if after := readFile(t, root, path); after != before {
		t.Error("file modified despite validation failure")
	}
}

func TestUpdateSession_MissingTarget(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.UpdateSession(context.Background(), "2026-01-01", journal.SessionMutation{Status: "complete"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHandEditedFileVisibleWithoutExplicitRebuild(t *testing.T) {
	svc, root := newService(t)
	ctx := context.Background()

	if _, err := svc.CreateSession(ctx, journal.CreateSessionParams{Date: "2026-08-30", Topics: []string{"tdd"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Sessions(ctx, query.SessionFilter{}); err != nil {
		t.Fatal(err)
	}

	// Simulate an editor writing directly to disk.
	rel := "sessions/2026-08-29.md"
	testutil.WriteDoc(t, root, rel,
		"---\ndate: 2026-08-29\nstatus: complete\ntopics: [docs]\n---\n\n## Summary\n\nHand written.\n")
	future := time.Now().Add(time.Second)
	if err := os.Chtimes(filepath.Join(root, rel), future, future); err != nil {
		t.Fatal(err)
	}

	sessions, err := svc.Sessions(ctx, query.SessionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len = %d, want 2 (hand edit not picked up)", len(sessions))
	}
}

func TestPlans_NewestUpdatedFirst(t *testing.T) {
	svc, root := newService(t)
	ctx := context.Background()

	testutil.WriteDoc(t, root, "plans/older.md",
		"---\nid: older\nstatus: active\nauthor: alice\nupdated: 2026-08-10\n---\n\n## Goal\n\nOld work.\n")
	testutil.WriteDoc(t, root, "plans/newer.md",
		"---\nid: newer\nstatus: active\nauthor: bob\nupdated: 2026-08-25\n---\n\n## Goal\n\nNew work.\n")

	plans, err := svc.Plans(ctx, query.PlanFilter{Status: "active"})
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != 2 || plans[0].ID != "newer" || plans[1].ID != "older" {
		t.Fatalf("plans = %+v", plans)
	}
}

func TestUpdatePlan_BumpsUpdated(t *testing.T) {
	svc, root := newService(t)
	ctx := context.Background()

	testutil.WriteDoc(t, root, "plans/api-rework.md",
		"---\nid: api-rework\nstatus: planned\nauthor: alice\nupdated: 2026-01-01\n---\n\n## Goal\n\nRework.\n")

	path, err := svc.UpdatePlan(ctx, "api-rework", journal.PlanMutation{Status: "active"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	today := time.Now().Format(document.DateLayout)
	content := readFile(t, root, path)
	if !strings.Contains(content, "updated: "+today) {
		t.Errorf("updated not bumped: %q", content)
	}
	if !strings.Contains(content, "status: active") {
		t.Errorf("status not applied: %q", content)
	}
}

func TestCreatePlan_RejectsSeparatorID(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreatePlan(context.Background(), journal.CreatePlanParams{ID: "api/rework", Author: "alice"})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreatePattern_SlugPath(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	path, err := svc.CreatePattern(ctx, journal.CreatePatternParams{
		Title:    "Prefer Table Tests!",
		Keywords: []string{"testing"},
		Lesson:   "Keep cases visible.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if path != "patterns/prefer-table-tests.md" {
		t.Errorf("path = %q", path)
	}

	patterns, err := svc.Patterns(ctx, query.PatternFilter{Keyword: "testing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(patterns) != 1 || patterns[0].Title != "Prefer Table Tests!" {
		t.Errorf("patterns = %+v", patterns)
	}
}

func TestAppendSection(t *testing.T) {
	svc, root := newService(t)
	ctx := context.Background()

	path, err := svc.CreateSession(ctx, journal.CreateSessionParams{
		Date: "2026-08-30", Topics: []string{"tdd"}, Summary: "Work happened.",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.AppendSection(ctx, document.KindSession, "2026-08-30",
		"Decisions", "Chose the JSON backend.", document.Anchor{}); err != nil {
		t.Fatalf("append: %v", err)
	}
	content := readFile(t, root, path)
	if !strings.Contains(content, "## Decisions\n\nChose the JSON backend.") {
		t.Errorf("section missing: %q", content)
	}

	// New content is searchable immediately.
	hits, err := svc.Search(ctx, "JSON backend", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Path != path {
		t.Errorf("hits = %+v", hits)
	}
}

func TestAppendSection_AmbiguousAnchorLeavesFileUntouched(t *testing.T) {
	svc, root := newService(t)
	ctx := context.Background()

	rel := "sessions/2026-08-30.md"
	testutil.WriteDoc(t, root, rel,
		"---\ndate: 2026-08-30\nstatus: in-progress\ntopics: [tdd]\n---\n\n## Notes\n\none\n\n## Notes\n\ntwo\n")
	before := readFile(t, root, rel)

	_, err := svc.AppendSection(ctx, document.KindSession, "2026-08-30",
		"Extra", "text", document.Anchor{Heading: "Notes"})
	var ae *apperr.AmbiguousAnchorError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AmbiguousAnchorError, got %v", err)
	}
	if len(ae.Lines) != 2 {
		t.Errorf("lines = %v", ae.Lines)
	}
	if after := readFile(t, root, rel); after != before {
		t.Error("file modified despite ambiguous anchor")
	}
}

func TestSearch_InvalidScope(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Search(context.Background(), "x", "notes", 0)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUpdatePlan_RejectsSeparatorID(t *testing.T) {
	svc, root := newService(t)
	ctx := context.Background()
	if _, err := svc.CreateSession(ctx, journal.CreateSessionParams{Date: "2026-08-30", Topics: []string{"tdd"}}); err != nil {
		t.Fatal(err)
	}

	// A traversal-shaped id must not resolve into another kind's directory.
	before := readFile(t, root, "sessions/2026-08-30.md")
	_, err := svc.UpdatePlan(ctx, "../sessions/2026-08-30", journal.PlanMutation{Status: "complete"})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := readFile(t, root, "sessions/2026-08-30.md"); got != before {
		t.Error("session file was modified through a plan update")
	}
}

func TestAppendSection_RejectsSeparatorTarget(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.AppendSection(context.Background(), document.KindPlan, "../sessions/2026-08-30", "Notes", "text", document.Anchor{})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
