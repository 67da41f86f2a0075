package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jgoulah/garminexport/pkg/models"
	_ "modernc.org/sqlite"
)

// DB wraps the export history database
type DB struct {
	conn *sql.DB
}

// New opens the history database and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		archive TEXT NOT NULL,
		label TEXT NOT NULL,
		window_start TEXT NOT NULL,
		window_end TEXT NOT NULL,
		files_written INTEGER NOT NULL,
		measurements INTEGER NOT NULL,
		bytes INTEGER DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exports_created_at ON exports(created_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertExport records a finished export run
func (db *DB) InsertExport(rec *models.ExportRecord) error {
	query := `
	INSERT INTO exports (run_id, archive, label, window_start, window_end, files_written, measurements, bytes, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := db.conn.Exec(query,
		rec.RunID,
		rec.Archive,
		rec.Label,
		rec.WindowStart.UTC().Format(time.RFC3339Nano),
		rec.WindowEnd.UTC().Format(time.RFC3339Nano),
		rec.FilesWritten,
		rec.Measurements,
		rec.Bytes,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting export record: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		rec.ID = int(id)
	}
	return nil
}

// ListExports returns the most recent export runs first. A limit of 0 returns all.
func (db *DB) ListExports(limit int) ([]models.ExportRecord, error) {
	query := `
	SELECT id, run_id, archive, label, window_start, window_end, files_written, measurements, bytes, created_at
	FROM exports
	ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying export history: %w", err)
	}
	defer rows.Close()

	var results []models.ExportRecord
	for rows.Next() {
		var rec models.ExportRecord
		var startStr, endStr, createdStr string

		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Archive, &rec.Label, &startStr, &endStr,
			&rec.FilesWritten, &rec.Measurements, &rec.Bytes, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if rec.WindowStart, err = time.Parse(time.RFC3339Nano, startStr); err != nil {
			return nil, fmt.Errorf("parsing window_start: %w", err)
		}
		if rec.WindowEnd, err = time.Parse(time.RFC3339Nano, endStr); err != nil {
			return nil, fmt.Errorf("parsing window_end: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		results = append(results, rec)
	}

	return results, rows.Err()
}
