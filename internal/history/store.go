package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure state dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
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

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// BeginRun inserts a run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, rules_file, started_at, status, sources) VALUES (?, ?, ?, ?, ?)`,
		run.ID, nullableString(run.RulesFile), formatTime(run.StartedAt), run.Status, run.Sources,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordAsset appends one asset outcome to a run.
func (s *Store) RecordAsset(ctx context.Context, result AssetResult) error {
	if result.RecordedAt.IsZero() {
		result.RecordedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO asset_results (run_id, source, asset, status, reason, output_dir, duration_ms, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.Source,
		result.Asset,
		result.Status,
		nullableString(result.Reason),
		nullableString(result.OutputDir),
		result.Duration.Milliseconds(),
		formatTime(result.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert asset result: %w", err)
	}
	return nil
}

// FinishRun stores the final counters and status of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	finished := time.Now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, sources = ?, processed = ?, skipped = ?, failed = ?, error = ?
         WHERE id = ?`,
		formatTime(finished), run.Status, run.Sources, run.Processed, run.Skipped, run.Failed,
		nullableString(run.Error), run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: not found", run.ID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, rules_file, started_at, finished_at, status, sources, processed, skipped, failed, error
              FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                         Run
			rulesFile, finished, errMsg sql.NullString
			started                     string
		)
		if err := rows.Scan(&run.ID, &rulesFile, &started, &finished, &run.Status,
			&run.Sources, &run.Processed, &run.Skipped, &run.Failed, &errMsg); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.RulesFile = rulesFile.String
		run.Error = errMsg.String
		run.StartedAt = parseTime(started)
		if finished.Valid {
			t := parseTime(finished.String)
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// AssetResults returns the asset outcomes of a run in recording order.
func (s *Store) AssetResults(ctx context.Context, runID string) ([]AssetResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, source, asset, status, reason, output_dir, duration_ms, recorded_at
         FROM asset_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list asset results: %w", err)
	}
	defer rows.Close()

	var out []AssetResult
	for rows.Next() {
		var (
			r                 AssetResult
			reason, outputDir sql.NullString
			durationMS        int64
			recorded          string
		)
		if err := rows.Scan(&r.RunID, &r.Source, &r.Asset, &r.Status, &reason, &outputDir, &durationMS, &recorded); err != nil {
			return nil, fmt.Errorf("scan asset result: %w", err)
		}
		r.Reason = reason.String
		r.OutputDir = outputDir.String
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.RecordedAt = parseTime(recorded)
		out = append(out, r)
	}
	return out, rows.Err()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
