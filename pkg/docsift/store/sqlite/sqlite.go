package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/docsift/pkg/docsift/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	input_root TEXT NOT NULL,
	output_root TEXT NOT NULL,
	format TEXT,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	total INTEGER NOT NULL DEFAULT 0,
	succeeded INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	canceled INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_outcomes (
	run_id TEXT NOT NULL,
	path TEXT NOT NULL,
	format TEXT,
	ok INTEGER NOT NULL,
	kind TEXT,
	error TEXT,
	output TEXT,
	duration_ns INTEGER NOT NULL DEFAULT 0,
	UNIQUE(run_id, path),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_outcomes_kind ON run_outcomes(run_id, kind);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// RecordRun upserts the run row and replaces its outcomes
func (s *sqliteStore) RecordRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return errors.New("run id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO runs (id, input_root, output_root, format, started_at, finished_at, total, succeeded, failed, canceled)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	input_root=excluded.input_root,
	output_root=excluded.output_root,
	format=excluded.format,
	started_at=excluded.started_at,
	finished_at=excluded.finished_at,
	total=excluded.total,
	succeeded=excluded.succeeded,
	failed=excluded.failed,
	canceled=excluded.canceled;
`
	_, err = tx.ExecContext(ctx, stmt,
		r.ID,
		r.InputRoot,
		r.OutputRoot,
		r.Format,
		formatTime(r.StartedAt),
		formatTime(r.FinishedAt),
		r.Total,
		r.Succeeded,
		r.Failed,
		boolInt(r.Canceled),
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	if err := replaceOutcomes(ctx, tx, r.ID, r.Outcomes); err != nil {
		return err
	}

	return tx.Commit()
}

func replaceOutcomes(ctx context.Context, tx *sql.Tx, runID string, outcomes []store.Outcome) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_outcomes WHERE run_id=?`, runID); err != nil {
		return err
	}
	if len(outcomes) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO run_outcomes (run_id, path, format, ok, kind, error, output, duration_ns)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, o := range outcomes {
		if _, err := stmt.ExecContext(ctx, runID, o.Path, o.Format, boolInt(o.OK), o.Kind, o.Error, o.Output, int64(o.Duration)); err != nil {
			return fmt.Errorf("insert outcome %s: %w", o.Path, err)
		}
	}
	return nil
}

// GetRun retrieves a run and its outcomes in path order
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, input_root, output_root, format, started_at, finished_at, total, succeeded, failed, canceled
FROM runs
WHERE id = ?;
`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return store.Run{}, false, nil
	}
	if err != nil {
		return store.Run{}, false, err
	}

	r.Outcomes, err = s.loadOutcomes(ctx, id)
	if err != nil {
		return store.Run{}, false, err
	}
	return r, true, nil
}

// ListRuns returns runs newest first
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	query := `
SELECT id, input_root, output_root, format, started_at, finished_at, total, succeeded, failed, canceled
FROM runs
ORDER BY started_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// FailureCounts groups a run's failed outcomes by kind
func (s *sqliteStore) FailureCounts(ctx context.Context, id string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT kind, COUNT(*)
FROM run_outcomes
WHERE run_id = ? AND ok = 0
GROUP BY kind;
`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			kind sql.NullString
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind.String] += n
	}
	return counts, rows.Err()
}

func (s *sqliteStore) loadOutcomes(ctx context.Context, runID string) ([]store.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT path, format, ok, kind, error, output, duration_ns
FROM run_outcomes
WHERE run_id = ?
ORDER BY path;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []store.Outcome
	for rows.Next() {
		var (
			o                         store.Outcome
			format, kind, msg, output sql.NullString
			ok                        int
			dur                       int64
		)
		if err := rows.Scan(&o.Path, &format, &ok, &kind, &msg, &output, &dur); err != nil {
			return nil, err
		}
		o.Format, o.Kind, o.Error, o.Output = format.String, kind.String, msg.String, output.String
		o.OK = ok != 0
		o.Duration = time.Duration(dur)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (store.Run, error) {
	var (
		r                store.Run
		format, finished sql.NullString
		started          string
		canceled         int
	)
	if err := sc.Scan(&r.ID, &r.InputRoot, &r.OutputRoot, &format, &started, &finished,
		&r.Total, &r.Succeeded, &r.Failed, &canceled); err != nil {
		return store.Run{}, err
	}
	r.Format = format.String
	r.Canceled = canceled != 0
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished.String)
	return r, nil
}

// timeLayout is fixed-width so stored timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if parsed, err := time.Parse(timeLayout, s); err == nil {
		return parsed
	}
	return time.Time{}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
