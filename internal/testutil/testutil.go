// Package testutil provides shared test helpers for setting up journal trees
// and index backends.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/skald/internal/document"
	"github.com/starford/skald/internal/index"
	"github.com/starford/skald/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestJournal creates a temporary journal root with the per-kind
// subdirectories and a storage.Provider over it.
func TestJournal(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	for _, kind := range document.Kinds() {
		if err := os.MkdirAll(filepath.Join(root, kind.Dir()), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// TestJSONIndex creates a JSON index whose artifact lives outside the
// journal tree.
func TestJSONIndex(t *testing.T, store storage.Provider) *index.JSONIndex {
	t.Helper()
	return index.NewJSONIndex(filepath.Join(t.TempDir(), "index.json"), store, Logger())
}

// TestSQLiteIndex creates a temporary SQLite index that is automatically
// cleaned up.
func TestSQLiteIndex(t *testing.T, store storage.Provider) *index.SQLiteIndex {
	t.Helper()
	idx, err := index.OpenSQLite(filepath.Join(t.TempDir(), "index.db"), store, Logger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

// WriteDoc writes a raw document under the journal root, bypassing the
// storage provider. Used to simulate hand-edited files.
func WriteDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
