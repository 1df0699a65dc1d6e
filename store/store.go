// Package store persists pipeline output in SQLite and serves it back over
// full-text search, HTTP, and MCP.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Schema is the complete corpus schema, FTS5 index and sync triggers
// included. Loads replace table contents wholesale, so the triggers keep
// the index consistent through the delete+insert cycle.
const Schema = `
CREATE TABLE IF NOT EXISTS pages (
    file_path       TEXT NOT NULL,
    category        TEXT NOT NULL DEFAULT '',
    doc_type        TEXT NOT NULL DEFAULT '',
    sequence_id     TEXT NOT NULL DEFAULT '',
    sequence_order  TEXT NOT NULL DEFAULT '',
    notes           TEXT NOT NULL DEFAULT '',
    raw_text        TEXT NOT NULL DEFAULT '',
    clean_text      TEXT NOT NULL DEFAULT '',
    ocr_text        TEXT NOT NULL DEFAULT '',
    ocr_text_length INTEGER NOT NULL DEFAULT 0,
    confidence      REAL,
    error           TEXT NOT NULL DEFAULT '',
    model           TEXT NOT NULL DEFAULT '',
    engine          TEXT NOT NULL DEFAULT '',
    summary         TEXT NOT NULL DEFAULT '',
    entities_json   TEXT NOT NULL DEFAULT '[]',
    num_entities    INTEGER NOT NULL DEFAULT 0,
    search_text     TEXT NOT NULL DEFAULT '',
    extra_json      TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_pages_sequence ON pages(sequence_id);
CREATE INDEX IF NOT EXISTS idx_pages_category ON pages(category, doc_type);

CREATE TABLE IF NOT EXISTS sequences (
    sequence_id          TEXT PRIMARY KEY,
    num_pages            INTEGER NOT NULL DEFAULT 0,
    sequence_summary     TEXT NOT NULL DEFAULT '',
    summary              TEXT NOT NULL DEFAULT '',
    sequence_search_text TEXT NOT NULL DEFAULT ''
);

CREATE VIRTUAL TABLE IF NOT EXISTS pages_fts USING fts5(
    search_text, summary, notes, content='pages', content_rowid='rowid',
    tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS pages_ai AFTER INSERT ON pages BEGIN
    INSERT INTO pages_fts(rowid, search_text, summary, notes) VALUES (new.rowid, new.search_text, new.summary, new.notes);
END;
CREATE TRIGGER IF NOT EXISTS pages_ad AFTER DELETE ON pages BEGIN
    INSERT INTO pages_fts(pages_fts, rowid, search_text, summary, notes) VALUES('delete', old.rowid, old.search_text, old.summary, old.notes);
END;
CREATE TRIGGER IF NOT EXISTS pages_au AFTER UPDATE ON pages BEGIN
    INSERT INTO pages_fts(pages_fts, rowid, search_text, summary, notes) VALUES('delete', old.rowid, old.search_text, old.summary, old.notes);
    INSERT INTO pages_fts(rowid, search_text, summary, notes) VALUES (new.rowid, new.search_text, new.summary, new.notes);
END;
`

// Store wraps the corpus database.
type Store struct {
	DB     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the corpus database at path with WAL
// journaling and the schema applied.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a distinct database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{DB: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}
