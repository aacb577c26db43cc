// Package history persists scan runs and their per-file results in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
	// fixed-width so timestamps sort as text
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// ErrNoRuns is returned by LatestRun on an empty store.
var ErrNoRuns = errors.New("no scan runs recorded")

// FileResult is the stored analysis of one file.
type FileResult struct {
	Path        string
	Fingerprint string
	Imports     []string
	References  []string
	// Variables holds the printed value of every resolved name; Unresolved
	// lists the names bound to the unresolved marker.
	Variables  map[string]string
	Unresolved []string
	Error      string
}

type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Roots      []string
	Files      []FileResult
}

// ErrorCount counts the files that failed to analyze.
func (r Run) ErrorCount() int {
	n := 0
	for _, f := range r.Files {
		if f.Error != "" {
			n++
		}
	}
	return n
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts while watch mode keeps writing.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveRun stores run and its file results in one transaction and returns the
// run ID, generating one when run.ID is empty.
func (s *Store) SaveRun(ctx context.Context, run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	roots, err := json.Marshal(nonNil(run.Roots))
	if err != nil {
		return "", fmt.Errorf("encode run roots: %w", err)
	}

	err = s.withRetry("save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (id, started_at_utc, finished_at_utc, roots_json, file_count, error_count)
VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.StartedAt.UTC().Format(timeLayout),
			run.FinishedAt.UTC().Format(timeLayout),
			string(roots),
			len(run.Files),
			run.ErrorCount(),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
		for _, f := range run.Files {
			if err := insertFile(ctx, tx, run.ID, f); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func insertFile(ctx context.Context, tx *sql.Tx, runID string, f FileResult) error {
	imports, err := json.Marshal(nonNil(f.Imports))
	if err != nil {
		return fmt.Errorf("encode imports of %s: %w", f.Path, err)
	}
	refs, err := json.Marshal(nonNil(f.References))
	if err != nil {
		return fmt.Errorf("encode references of %s: %w", f.Path, err)
	}
	vars := f.Variables
	if vars == nil {
		vars = map[string]string{}
	}
	variables, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("encode variables of %s: %w", f.Path, err)
	}
	unresolved, err := json.Marshal(nonNil(f.Unresolved))
	if err != nil {
		return fmt.Errorf("encode unresolved names of %s: %w", f.Path, err)
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO file_results (run_id, path, fingerprint, imports_json, references_json, variables_json, unresolved_json, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, f.Path, f.Fingerprint, string(imports), string(refs), string(variables), string(unresolved), f.Error,
	)
	return err
}

// LoadRun reads one run with its files ordered by path.
func (s *Store) LoadRun(ctx context.Context, id string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRunLocked(ctx, id)
}

// LatestRun returns the most recently started run, or ErrNoRuns.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	err := s.withRetry("find latest run", func() error {
		return s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY started_at_utc DESC, created_at_utc DESC LIMIT 1`).Scan(&id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoRuns
	}
	if err != nil {
		return Run{}, err
	}
	return s.loadRunLocked(ctx, id)
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	var removed int64
	err := s.withRetry("prune runs", func() error {
		res, err := s.db.ExecContext(ctx, `
DELETE FROM runs WHERE id NOT IN (
  SELECT id FROM runs ORDER BY started_at_utc DESC, created_at_utc DESC LIMIT ?
)`, keep)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return int(removed), err
}

func (s *Store) loadRunLocked(ctx context.Context, id string) (Run, error) {
	var (
		run                 Run
		startedRaw, doneRaw string
		rootsRaw            string
	)
	err := s.withRetry("load run", func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT id, started_at_utc, finished_at_utc, roots_json FROM runs WHERE id = ?`, id,
		).Scan(&run.ID, &startedRaw, &doneRaw, &rootsRaw)
	})
	if err != nil {
		return Run{}, err
	}
	if run.StartedAt, err = parseTime(startedRaw); err != nil {
		return Run{}, err
	}
	if run.FinishedAt, err = parseTime(doneRaw); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(rootsRaw), &run.Roots); err != nil {
		return Run{}, fmt.Errorf("decode run roots: %w", err)
	}

	var rows *sql.Rows
	err = s.withRetry("load file results", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT path, fingerprint, imports_json, references_json, variables_json, unresolved_json, error
FROM file_results WHERE run_id = ? ORDER BY path ASC`, id)
		return qErr
	})
	if err != nil {
		return Run{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			f                                   FileResult
			imports, refs, variables, unresolved string
		)
		if err := rows.Scan(&f.Path, &f.Fingerprint, &imports, &refs, &variables, &unresolved, &f.Error); err != nil {
			return Run{}, fmt.Errorf("scan file result row: %w", err)
		}
		for _, col := range []struct {
			raw  string
			into any
		}{
			{imports, &f.Imports},
			{refs, &f.References},
			{variables, &f.Variables},
			{unresolved, &f.Unresolved},
		} {
			if err := json.Unmarshal([]byte(col.raw), col.into); err != nil {
				return Run{}, fmt.Errorf("decode file result %s: %w", f.Path, err)
			}
		}
		run.Files = append(run.Files, f)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate file result rows: %w", err)
	}
	return run, nil
}

// Fingerprints maps path -> fingerprint for the files of run id.
func (s *Store) Fingerprints(ctx context.Context, id string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load fingerprints", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `SELECT path, fingerprint FROM file_results WHERE run_id = ?`, id)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, fp string
		if err := rows.Scan(&path, &fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint row: %w", err)
		}
		out[path] = fp
	}
	return out, rows.Err()
}

func parseTime(raw string) (time.Time, error) {
	ts, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return ts.UTC(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
