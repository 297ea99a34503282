// Package catalog is the durable record of what was last exported and with
// which fingerprint. It backs incremental export and index reconciliation.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notebooks (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL DEFAULT '',
	slug     TEXT NOT NULL DEFAULT '',
	created  TEXT NOT NULL DEFAULT '',
	modified TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sections (
	id          TEXT PRIMARY KEY,
	notebook_id TEXT NOT NULL REFERENCES notebooks(id),
	name        TEXT NOT NULL DEFAULT '',
	slug        TEXT NOT NULL DEFAULT '',
	created     TEXT NOT NULL DEFAULT '',
	modified    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS pages (
	id           TEXT PRIMARY KEY,
	section_id   TEXT NOT NULL REFERENCES sections(id),
	notebook_id  TEXT NOT NULL REFERENCES notebooks(id),
	title        TEXT NOT NULL DEFAULT '',
	slug         TEXT NOT NULL DEFAULT '',
	created      TEXT NOT NULL DEFAULT '',
	modified     TEXT NOT NULL DEFAULT '',
	md_path      TEXT NOT NULL DEFAULT '',
	merged_path  TEXT NOT NULL DEFAULT '',
	jsonl_path   TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	word_count   INTEGER NOT NULL DEFAULT 0,
	page_order   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS assets (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	page_id    TEXT NOT NULL REFERENCES pages(id),
	rel_path   TEXT NOT NULL,
	mime_type  TEXT NOT NULL DEFAULT '',
	size_bytes INTEGER NOT NULL DEFAULT 0,
	sha256     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sections_notebook ON sections(notebook_id);
CREATE INDEX IF NOT EXISTS idx_pages_section ON pages(section_id);
CREATE INDEX IF NOT EXISTS idx_pages_notebook ON pages(notebook_id);
CREATE INDEX IF NOT EXISTS idx_assets_page ON assets(page_id);
`

// Store is the SQLite-backed Catalog.
//
// Writes are buffered in a single transaction that is opened lazily and only
// made durable by Commit. A process that dies before Commit loses the
// bookkeeping for that run; the artifacts it wrote stay on disk and are picked
// up again by the repair path or by reconciliation.
type Store struct {
	mu     sync.Mutex
	conn   *sql.DB
	tx     *sql.Tx
	closed bool
}

// Open opens (or creates) the catalog database and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("catalog: create dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	// One connection: reads issued while the run transaction is open must see
	// its uncommitted writes.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close discards any uncommitted writes and releases the connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.conn.Close()
}
