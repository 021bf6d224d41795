package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fstack/internal/services"
)

// Catalog records imported files in a SQLite database so repeated imports of
// the same card can skip what the library already holds, even after the
// destination files were reorganized by hand.
type Catalog struct {
	db   *sql.DB
	path string
}

// Run is one import invocation.
type Run struct {
	ID            string
	SourceDir     string
	StartedAt     time.Time
	CompletedAt   time.Time
	FilesImported int
	FilesSkipped  int
}

// ImportedFile is one catalogued source file and where it landed.
type ImportedFile struct {
	RunID       string
	SourcePath  string
	DestPath    string
	CaptureTime time.Time
	SizeBytes   int64
	ImportedAt  time.Time
}

// FileName is the database file created under the library directory.
const FileName = "catalog.db"

// Open connects to the catalog database under dir, creating it and its schema
// on first use.
func Open(dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "catalog", "open", "create catalog directory", err)
	}

	dbPath := filepath.Join(dir, FileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "catalog", "open", "open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	cat := &Catalog{db: db, path: dbPath}
	if err := cat.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cat, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the database file location.
func (c *Catalog) Path() string {
	return c.path
}

// BeginRun records the start of an import and returns its identifier.
func (c *Catalog) BeginRun(ctx context.Context, sourceDir string) (string, error) {
	id := uuid.NewString()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, source_dir, started_at) VALUES (?, ?, ?)`,
		id, sourceDir, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert import run: %w", err)
	}
	return id, nil
}

// FinishRun stamps a run with its completion time and counters.
func (c *Catalog) FinishRun(ctx context.Context, runID string, imported, skipped int) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE import_runs SET completed_at = ?, files_imported = ?, files_skipped = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), imported, skipped, runID)
	if err != nil {
		return fmt.Errorf("finish import run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish import run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish import run: unknown run %s", runID)
	}
	return nil
}

// RecordFile catalogues one imported file under a run.
func (c *Catalog) RecordFile(ctx context.Context, runID string, file ImportedFile) error {
	var capture any
	if !file.CaptureTime.IsZero() {
		capture = file.CaptureTime.UTC().Format(time.RFC3339Nano)
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO imported_files (run_id, source_path, dest_path, capture_time, size_bytes, imported_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(dest_path) DO UPDATE SET
             run_id = excluded.run_id,
             source_path = excluded.source_path,
             capture_time = excluded.capture_time,
             size_bytes = excluded.size_bytes,
             imported_at = excluded.imported_at`,
		runID, file.SourcePath, file.DestPath, capture, file.SizeBytes,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record imported file: %w", err)
	}
	return nil
}

// HasDestination reports whether a destination path was imported before.
func (c *Catalog) HasDestination(ctx context.Context, destPath string) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx,
		`SELECT 1 FROM imported_files WHERE dest_path = ? LIMIT 1`, destPath).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up destination: %w", err)
	}
	return true, nil
}

// RecentRuns returns the most recent import runs, newest first.
func (c *Catalog) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, source_dir, started_at, completed_at, files_imported, files_skipped
         FROM import_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			run          Run
			startedRaw   string
			completedRaw sql.NullString
			imported     sql.NullInt64
			skipped      sql.NullInt64
		)
		if err := rows.Scan(&run.ID, &run.SourceDir, &startedRaw, &completedRaw, &imported, &skipped); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedRaw)
		if completedRaw.Valid {
			run.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedRaw.String)
		}
		run.FilesImported = int(imported.Int64)
		run.FilesSkipped = int(skipped.Int64)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import runs: %w", err)
	}
	return runs, nil
}

// CountFiles returns how many files the catalog holds in total.
func (c *Catalog) CountFiles(ctx context.Context) (int64, error) {
	var n int64
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM imported_files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count imported files: %w", err)
	}
	return n, nil
}
