// Package index keeps a SQLite history of every character sheet the
// pipeline has produced, one row per written artifact.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one produced artifact.
type Record struct {
	ID        int64
	Log       string // log file name, e.g. 2024-03-01_12-00-00_000.json
	Character string // sanitized character name
	Version   string // v1, v2, ...
	Path      string // absolute path of the written sheet
	Bytes     int64
	CreatedAt time.Time
}

// Index is a handle to the history database.
type Index struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Index, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating index dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	// SQLite allows a single writer, so one connection is enough and
	// avoids lock contention between the watcher and the CLI.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Index{db: db}, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS artifacts (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		log        TEXT NOT NULL,
		character  TEXT NOT NULL,
		version    TEXT NOT NULL,
		path       TEXT NOT NULL,
		bytes      INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_log ON artifacts(log);
`

// Close closes the database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Add records a newly written artifact.
func (ix *Index) Add(ctx context.Context, rec *Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := ix.db.ExecContext(ctx, `
		INSERT INTO artifacts (log, character, version, path, bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Log, rec.Character, rec.Version, rec.Path, rec.Bytes,
		rec.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording artifact: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// ByLog returns all artifacts produced from the named log, newest first.
func (ix *Index) ByLog(ctx context.Context, log string) ([]Record, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT id, log, character, version, path, bytes, created_at
		FROM artifacts
		WHERE log = ?
		ORDER BY id DESC
	`, log)
	if err != nil {
		return nil, fmt.Errorf("querying artifacts: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Recent returns the most recently recorded artifacts, up to limit.
func (ix *Index) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT id, log, character, version, path, bytes, created_at
		FROM artifacts
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying artifacts: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// DeleteLog removes every record for the named log. Used when the log
// itself is deleted or renamed.
func (ix *Index) DeleteLog(ctx context.Context, log string) error {
	if _, err := ix.db.ExecContext(ctx, `DELETE FROM artifacts WHERE log = ?`, log); err != nil {
		return fmt.Errorf("deleting artifacts for %s: %w", log, err)
	}
	return nil
}

// RenameLog repoints records from an old log name to a new one.
func (ix *Index) RenameLog(ctx context.Context, oldName, newName string) error {
	if _, err := ix.db.ExecContext(ctx, `UPDATE artifacts SET log = ? WHERE log = ?`, newName, oldName); err != nil {
		return fmt.Errorf("renaming artifacts for %s: %w", oldName, err)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var rec Record
		var created string
		if err := rows.Scan(&rec.ID, &rec.Log, &rec.Character, &rec.Version,
			&rec.Path, &rec.Bytes, &created); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		t, err := time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		rec.CreatedAt = t
		out = append(out, rec)
	}
	return out, rows.Err()
}
