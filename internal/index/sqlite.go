package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/skald/internal/apperr"
	"github.com/starford/skald/internal/document"
	"github.com/starford/skald/internal/models"
	"github.com/starford/skald/internal/query"
	"github.com/starford/skald/internal/storage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	path     TEXT PRIMARY KEY,
	date     TEXT NOT NULL,
	status   TEXT NOT NULL,
	topics   TEXT NOT NULL DEFAULT '[]',
	plan     TEXT NOT NULL DEFAULT '',
	files    TEXT NOT NULL DEFAULT '[]',
	checksum TEXT NOT NULL DEFAULT '',
	body     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS plans (
	path     TEXT PRIMARY KEY,
	id       TEXT NOT NULL,
	status   TEXT NOT NULL,
	author   TEXT NOT NULL,
	updated  TEXT NOT NULL,
	topics   TEXT NOT NULL DEFAULT '[]',
	checksum TEXT NOT NULL DEFAULT '',
	body     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS patterns (
	path     TEXT PRIMARY KEY,
	title    TEXT NOT NULL,
	keywords TEXT NOT NULL DEFAULT '[]',
	checksum TEXT NOT NULL DEFAULT '',
	body     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS index_meta (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	built_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_date   ON sessions(date);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_plans_updated   ON plans(updated);
CREATE INDEX IF NOT EXISTS idx_plans_status    ON plans(status);
CREATE INDEX IF NOT EXISTS idx_plans_author    ON plans(author);
`

// SQLiteIndex is the embedded-database backend. Rebuild replaces all rows
// for every kind inside one transaction, so a concurrent reader never
// observes a half-populated table.
type SQLiteIndex struct {
	conn   *sql.DB
	store  storage.Provider
	logger *slog.Logger
}

// OpenSQLite opens (or creates) the SQLite index at path and applies the
// schema.
func OpenSQLite(path string, store storage.Provider, logger *slog.Logger) (*SQLiteIndex, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &SQLiteIndex{conn: conn, store: store, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteIndex) Close() error { return s.conn.Close() }

// Rebuild scans the document tree and replaces every table's contents in a
// single transaction.
func (s *SQLiteIndex) Rebuild() (*models.RebuildStats, error) {
	snap, err := scanTree(s.store, s.logger)
	if err != nil {
		return nil, err
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, table := range []string{"sessions", "plans", "patterns"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return nil, fmt.Errorf("index: clear %s: %w", table, err)
		}
	}

	for _, e := range snap.Sessions {
		_, err := tx.Exec(`
			INSERT INTO sessions (path, date, status, topics, plan, files, checksum, body)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, e.Path, e.Date, e.Status, marshalList(e.Topics), e.Plan, marshalList(e.Files), e.Checksum, e.Body)
		if err != nil {
			return nil, fmt.Errorf("index: insert session %s: %w", e.Path, err)
		}
	}
	for _, e := range snap.Plans {
		_, err := tx.Exec(`
			INSERT INTO plans (path, id, status, author, updated, topics, checksum, body)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, e.Path, e.ID, e.Status, e.Author, e.Updated, marshalList(e.Topics), e.Checksum, e.Body)
		if err != nil {
			return nil, fmt.Errorf("index: insert plan %s: %w", e.Path, err)
		}
	}
	for _, e := range snap.Patterns {
		_, err := tx.Exec(`
			INSERT INTO patterns (path, title, keywords, checksum, body)
			VALUES (?, ?, ?, ?, ?)
		`, e.Path, e.Title, marshalList(e.Keywords), e.Checksum, e.Body)
		if err != nil {
			return nil, fmt.Errorf("index: insert pattern %s: %w", e.Path, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO index_meta (id, built_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET built_at = excluded.built_at
	`, snap.Stats.BuiltAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("index: record build time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("index: commit rebuild: %w", err)
	}
	return &snap.Stats, nil
}

// BuiltAt returns the recorded build timestamp; zero when never built.
func (s *SQLiteIndex) BuiltAt() (time.Time, error) {
	var raw string
	err := s.conn.QueryRow(`SELECT built_at FROM index_meta WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("index: read build time: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("index: parse build time: %w", err)
	}
	return t, nil
}

// ensureBuilt maps the never-built state to ErrIndexMissing so both
// backends surface the same error when auto-rebuild is disabled.
func (s *SQLiteIndex) ensureBuilt() error {
	built, err := s.BuiltAt()
	if err != nil {
		return err
	}
	if built.IsZero() {
		return apperr.ErrIndexMissing
	}
	return nil
}

// QuerySessions pushes the filter down as indexed-column predicates.
func (s *SQLiteIndex) QuerySessions(f query.SessionFilter) ([]models.SessionRecord, error) {
	if err := s.ensureBuilt(); err != nil {
		return nil, err
	}
	f = f.Resolve(time.Now())

	var conds []string
	var args []any
	if f.Date != "" {
		conds, args = append(conds, "date = ?"), append(args, f.Date)
	}
	if f.After != "" {
		conds, args = append(conds, "date >= ?"), append(args, f.After)
	}
	if f.Before != "" {
		conds, args = append(conds, "date <= ?"), append(args, f.Before)
	}
	if f.Plan != "" {
		conds, args = append(conds, "plan = ?"), append(args, f.Plan)
	}
	if f.Topic != "" {
		conds, args = append(conds, `topics LIKE ? ESCAPE '\'`), append(args, likePattern(f.Topic))
	}

	q := `SELECT path, date, status, topics, plan, files, checksum FROM sessions` +
		whereClause(conds) + ` ORDER BY date DESC, path ASC` + limitClause(f.Limit)
	rows, err := s.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query sessions: %w", err)
	}
	defer rows.Close()

	out := []models.SessionRecord{}
	for rows.Next() {
		var r models.SessionRecord
		var topics, files string
		if err := rows.Scan(&r.Path, &r.Date, &r.Status, &topics, &r.Plan, &files, &r.Checksum); err != nil {
			return nil, err
		}
		r.Topics = unmarshalList(topics)
		if r.Topics == nil {
			r.Topics = []string{}
		}
		r.Files = unmarshalList(files)
		out = append(out, r)
	}
	return out, rows.Err()
}

// QueryPlans pushes the filter down as indexed-column predicates.
func (s *SQLiteIndex) QueryPlans(f query.PlanFilter) ([]models.PlanRecord, error) {
	if err := s.ensureBuilt(); err != nil {
		return nil, err
	}

	var conds []string
	var args []any
	if f.Status != "" {
		conds, args = append(conds, "status = ?"), append(args, f.Status)
	}
	if f.Author != "" {
		conds, args = append(conds, "author = ?"), append(args, f.Author)
	}
	if f.UpdatedAfter != "" {
		conds, args = append(conds, "updated >= ?"), append(args, f.UpdatedAfter)
	}
	if f.UpdatedBefore != "" {
		conds, args = append(conds, "updated <= ?"), append(args, f.UpdatedBefore)
	}
	if f.Topic != "" {
		conds, args = append(conds, `topics LIKE ? ESCAPE '\'`), append(args, likePattern(f.Topic))
	}

	q := `SELECT path, id, status, author, updated, topics, checksum FROM plans` +
		whereClause(conds) + ` ORDER BY updated DESC, id ASC` + limitClause(f.Limit)
	rows, err := s.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query plans: %w", err)
	}
	defer rows.Close()

	out := []models.PlanRecord{}
	for rows.Next() {
		var r models.PlanRecord
		var topics string
		if err := rows.Scan(&r.Path, &r.ID, &r.Status, &r.Author, &r.Updated, &topics, &r.Checksum); err != nil {
			return nil, err
		}
		r.Topics = unmarshalList(topics)
		out = append(out, r)
	}
	return out, rows.Err()
}

// QueryPatterns filters on the title and keyword columns.
func (s *SQLiteIndex) QueryPatterns(f query.PatternFilter) ([]models.PatternRecord, error) {
	if err := s.ensureBuilt(); err != nil {
		return nil, err
	}

	var conds []string
	var args []any
	if f.Title != "" {
		conds, args = append(conds, `title LIKE ? ESCAPE '\'`), append(args, likePattern(f.Title))
	}
	if f.Keyword != "" {
		conds, args = append(conds, `keywords LIKE ? ESCAPE '\'`), append(args, likePattern(f.Keyword))
	}

	q := `SELECT path, title, keywords, checksum FROM patterns` +
		whereClause(conds) + ` ORDER BY title ASC, path ASC` + limitClause(f.Limit)
	rows, err := s.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query patterns: %w", err)
	}
	defer rows.Close()

	out := []models.PatternRecord{}
	for rows.Next() {
		var r models.PatternRecord
		var keywords string
		if err := rows.Scan(&r.Path, &r.Title, &keywords, &r.Checksum); err != nil {
			return nil, err
		}
		r.Keywords = unmarshalList(keywords)
		if r.Keywords == nil {
			r.Keywords = []string{}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Search runs a LIKE match over body, label, and list columns per kind.
func (s *SQLiteIndex) Search(text string, scope query.Scope, limit int) ([]models.SearchResult, error) {
	if err := s.ensureBuilt(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	like := likePattern(text)
	out := []models.SearchResult{}

	type target struct {
		kind  document.Kind
		query string
	}
	targets := []target{
		{document.KindSession, `
			SELECT path, date, substr(body, 1, 200) FROM sessions
			WHERE body LIKE ? ESCAPE '\' OR date LIKE ? ESCAPE '\' OR topics LIKE ? ESCAPE '\'
			ORDER BY date DESC, path ASC`},
		{document.KindPlan, `
			SELECT path, id, substr(body, 1, 200) FROM plans
			WHERE body LIKE ? ESCAPE '\' OR id LIKE ? ESCAPE '\' OR topics LIKE ? ESCAPE '\'
			ORDER BY updated DESC, id ASC`},
		{document.KindPattern, `
			SELECT path, title, substr(body, 1, 200) FROM patterns
			WHERE body LIKE ? ESCAPE '\' OR title LIKE ? ESCAPE '\' OR keywords LIKE ? ESCAPE '\'
			ORDER BY title ASC, path ASC`},
	}

	for _, t := range targets {
		if !scope.Includes(t.kind) || len(out) >= limit {
			continue
		}
		rows, err := s.conn.Query(t.query+limitClause(limit-len(out)), like, like, like)
		if err != nil {
			return nil, fmt.Errorf("index: search %ss: %w", t.kind, err)
		}
		for rows.Next() {
			r := models.SearchResult{Kind: string(t.kind)}
			if err := rows.Scan(&r.Path, &r.Label, &r.Snippet); err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return ` WHERE ` + strings.Join(conds, " AND ")
}

// likePattern wraps text in wildcards and escapes %, _ and the escape
// character itself so the text matches literally, same as the in-memory
// substring match.
func likePattern(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, `%`, `\%`)
	text = strings.ReplaceAll(text, `_`, `\_`)
	return "%" + text + "%"
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(` LIMIT %d`, limit)
}

func marshalList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, _ := json.Marshal(items)
	return string(data)
}

func unmarshalList(raw string) []string {
	var out []string
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}
