package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Ning0612/devmanager/internal/domain"
)

// DBName is the history database file inside the data directory
const DBName = "devmanager.db"

// History persists staging runs
type History struct {
	db *sql.DB
}

// StageRecord represents a single staging run
type StageRecord struct {
	ID           int64
	Manifest     string
	StartTime    time.Time
	EndTime      time.Time
	Status       string // "success", "partial", "failed"
	FilesCopied  int
	FilesSkipped int
	FilesFailed  int
	BytesWritten int64
	Error        string
}

// Duration returns how long the run took
func (r StageRecord) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Open opens (creating if needed) the history database in dataDir
func Open(dataDir string) (*History, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DBName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection avoids "database is locked" between watch runs
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	h := &History{db: db}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

func (h *History) migrate() error {
	_, err := h.db.Exec(`
	CREATE TABLE IF NOT EXISTS stage_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		manifest TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		files_copied INTEGER DEFAULT 0,
		files_skipped INTEGER DEFAULT 0,
		files_failed INTEGER DEFAULT 0,
		bytes_written INTEGER DEFAULT 0,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_stage_runs_manifest_time ON stage_runs(manifest, start_time DESC);
	`)
	return err
}

// Save records a staging run
func (h *History) Save(ctx context.Context, record StageRecord) error {
	switch record.Status {
	case domain.StatusSuccess, domain.StatusPartial, domain.StatusFailed:
	default:
		return fmt.Errorf("invalid status: %s (must be 'success', 'partial', or 'failed')", record.Status)
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO stage_runs (manifest, start_time, end_time, status,
			files_copied, files_skipped, files_failed, bytes_written, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Manifest,
		record.StartTime,
		record.EndTime,
		record.Status,
		record.FilesCopied,
		record.FilesSkipped,
		record.FilesFailed,
		record.BytesWritten,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save stage record: %w", err)
	}

	return nil
}

const selectRuns = `
	SELECT id, manifest, start_time, end_time, status,
		files_copied, files_skipped, files_failed, bytes_written, error
	FROM stage_runs`

// List returns the most recent runs, newest first. An empty manifest
// matches every manifest.
func (h *History) List(ctx context.Context, manifest string, limit int) ([]StageRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	var (
		rows *sql.Rows
		err  error
	)
	if manifest == "" {
		rows, err = h.db.QueryContext(ctx, selectRuns+` ORDER BY start_time DESC, id DESC LIMIT ?`, limit)
	} else {
		rows, err = h.db.QueryContext(ctx, selectRuns+` WHERE manifest = ? ORDER BY start_time DESC, id DESC LIMIT ?`, manifest, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// LastSuccess returns the newest successful run of manifest, or nil
func (h *History) LastSuccess(ctx context.Context, manifest string) (*StageRecord, error) {
	row := h.db.QueryRowContext(ctx,
		selectRuns+` WHERE manifest = ? AND status = ? ORDER BY start_time DESC, id DESC LIMIT 1`,
		manifest, domain.StatusSuccess)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &record, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (StageRecord, error) {
	var (
		record StageRecord
		errMsg sql.NullString
	)
	err := s.Scan(
		&record.ID,
		&record.Manifest,
		&record.StartTime,
		&record.EndTime,
		&record.Status,
		&record.FilesCopied,
		&record.FilesSkipped,
		&record.FilesFailed,
		&record.BytesWritten,
		&errMsg,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return record, err
	}
	if err != nil {
		return record, fmt.Errorf("failed to scan record: %w", err)
	}
	record.Error = errMsg.String
	return record, nil
}

// Close closes the database connection
func (h *History) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}
