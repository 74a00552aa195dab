package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"pihla/internal/config"
)

// ErrAmbiguousRun is returned when a run ID prefix matches more than one run.
var ErrAmbiguousRun = errors.New("run id prefix is ambiguous")

// Store persists runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the journal database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	return OpenPath(cfg.JournalPath())
}

// OpenPath opens the journal database at dbPath, creating its directory.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

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

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts a new running run for command and returns it.
func (s *Store) StartRun(ctx context.Context, command string) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Command:   command,
		Status:    StatusRunning,
		StartedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Command, run.Status, run.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordFile appends one file outcome to a run.
func (s *Store) RecordFile(ctx context.Context, rec FileRecord) error {
	if strings.TrimSpace(rec.RunID) == "" {
		return errors.New("record file: run id is required")
	}
	recorded := rec.RecordedAt
	if recorded.IsZero() {
		recorded = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (
            run_id, category, path, output, outcome,
            bytes_before, bytes_after, error_kind, error_message, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.Category,
		rec.Path,
		nullableString(rec.Output),
		rec.Outcome,
		rec.BytesBefore,
		rec.BytesAfter,
		nullableString(rec.ErrorKind),
		nullableString(rec.ErrorMessage),
		recorded.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert file record: %w", err)
	}
	return nil
}

// FinishRun stores the final status and counters of a run.
func (s *Store) FinishRun(ctx context.Context, id string, status Status, totals Totals) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs
         SET status = ?, finished_at = ?, files_processed = ?, skipped = ?, failed = ?, bytes_saved = ?
         WHERE id = ?`,
		status,
		s.now().UTC().Format(timeLayout),
		totals.FilesProcessed,
		totals.Skipped,
		totals.Failed,
		totals.BytesSaved,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: run %s not found", id)
	}
	return nil
}

// MarkInterrupted flags runs still marked running, which belong to processes
// that died without finishing. It returns the number of runs updated.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ? WHERE status = ?`,
		StatusInterrupted, StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run by full ID or unique prefix. A missing run returns
// (nil, nil).
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, errors.New("run id is required")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY started_at DESC LIMIT 2`,
		idOrPrefix, escapeLike(idOrPrefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == idOrPrefix {
			return &run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, idOrPrefix)
	}
}

// ListFiles returns the file outcomes of a run in insertion order.
func (s *Store) ListFiles(ctx context.Context, runID string) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, category, path, output, outcome, bytes_before, bytes_after,
                error_kind, error_message, recorded_at
         FROM files WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var (
			rec         FileRecord
			output      sql.NullString
			errorKind   sql.NullString
			errorMsg    sql.NullString
			recordedRaw string
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Category, &rec.Path, &output, &rec.Outcome,
			&rec.BytesBefore, &rec.BytesAfter, &errorKind, &errorMsg, &recordedRaw); err != nil {
			return nil, err
		}
		rec.Output = output.String
		rec.ErrorKind = errorKind.String
		rec.ErrorMessage = errorMsg.String
		if ts, err := parseTimeString(recordedRaw); err == nil {
			rec.RecordedAt = ts
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PruneBefore deletes finished runs that started before cutoff, together
// with their file records.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	stamp := cutoff.UTC().Format(timeLayout)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM files WHERE run_id IN (SELECT id FROM runs WHERE started_at < ? AND status != ?)`,
		stamp, StatusRunning); err != nil {
		return 0, fmt.Errorf("prune file records: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM runs WHERE started_at < ? AND status != ?`, stamp, StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return removed, nil
}
