package index_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/skald/internal/index"
	"github.com/starford/skald/internal/testutil"
)

func TestWatch_DebouncedChange(t *testing.T) {
	root, _ := testutil.TestJournal(t)

	var fired atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- index.Watch(ctx, root, 50*time.Millisecond, testutil.Logger(), func() {
			fired.Add(1)
		})
	}()

	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)

	// A burst of writes should collapse into one callback.
	for _, rel := range []string{"sessions/a.md", "sessions/b.md", "plans/p.md"} {
		testutil.WriteDoc(t, root, rel, "---\n---\nx\n")
	}

	deadline := time.After(2 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher never fired")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Wait out the debounce window; the burst must not fire repeatedly.
	time.Sleep(200 * time.Millisecond)
	if n := fired.Load(); n > 2 {
		t.Errorf("fired %d times for one burst", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatch_IgnoresNonMarkdown(t *testing.T) {
	root, _ := testutil.TestJournal(t)

	var fired atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = index.Watch(ctx, root, 20*time.Millisecond, testutil.Logger(), func() {
			fired.Add(1)
		})
	}()
	time.Sleep(100 * time.Millisecond)

	testutil.WriteDoc(t, root, "sessions/notes.txt", "not a document")
	time.Sleep(200 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("fired %d times for a non-markdown file", n)
	}
}
