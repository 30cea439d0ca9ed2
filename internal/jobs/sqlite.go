package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/property-analysis/internal/analysis"
)

// SQLiteStore persists jobs in a single SQLite table so records survive a
// restart. Results are stored as JSON text.
type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS analysis_jobs (
	job_id       TEXT PRIMARY KEY,
	address      TEXT NOT NULL,
	status       TEXT NOT NULL,
	progress     INTEGER NOT NULL DEFAULT 0,
	current_step TEXT NOT NULL DEFAULT '',
	result       TEXT,
	outcome      TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	error_status INTEGER NOT NULL DEFAULT 0,
	attempts     INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	completed_at TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS analysis_jobs_status ON analysis_jobs (status);
`

const upsertJob = `
INSERT INTO analysis_jobs (
	job_id, address, status, progress, current_step, result, outcome,
	error, error_status, attempts, created_at, updated_at, completed_at
) VALUES (
	:job_id, :address, :status, :progress, :current_step, :result, :outcome,
	:error, :error_status, :attempts, :created_at, :updated_at, :completed_at
)
ON CONFLICT(job_id) DO UPDATE SET
	status = excluded.status,
	progress = excluded.progress,
	current_step = excluded.current_step,
	result = excluded.result,
	outcome = excluded.outcome,
	error = excluded.error,
	error_status = excluded.error_status,
	attempts = excluded.attempts,
	updated_at = excluded.updated_at,
	completed_at = excluded.completed_at`

type jobRow struct {
	JobID       string         `db:"job_id"`
	Address     string         `db:"address"`
	Status      string         `db:"status"`
	Progress    int            `db:"progress"`
	CurrentStep string         `db:"current_step"`
	Result      sql.NullString `db:"result"`
	Outcome     string         `db:"outcome"`
	Error       string         `db:"error"`
	ErrorStatus int            `db:"error_status"`
	Attempts    int            `db:"attempts"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
	CompletedAt string         `db:"completed_at"`
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Put(ctx context.Context, job Job) error {
	row, err := toRow(job)
	if err != nil {
		return err
	}
	if _, err := s.db.NamedExecContext(ctx, upsertJob, row); err != nil {
		return fmt.Errorf("upsert job %s: %w", job.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Job, error) {
	var row jobRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM analysis_jobs WHERE job_id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return fromRow(row)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM analysis_jobs WHERE job_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Unfinished returns jobs left PENDING or RUNNING, typically by a previous
// process that stopped mid-analysis.
func (s *SQLiteStore) Unfinished(ctx context.Context) ([]Job, error) {
	var rows []jobRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM analysis_jobs WHERE status IN (?, ?) ORDER BY created_at",
		string(StatusPending), string(StatusRunning))
	if err != nil {
		return nil, fmt.Errorf("list unfinished jobs: %w", err)
	}
	out := make([]Job, 0, len(rows))
	for _, r := range rows {
		job, err := fromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

func toRow(job Job) (jobRow, error) {
	row := jobRow{
		JobID:       job.ID,
		Address:     job.Address,
		Status:      string(job.Status),
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Outcome:     string(job.Outcome),
		Error:       job.Error,
		ErrorStatus: job.ErrorStatus,
		Attempts:    job.Attempts,
		CreatedAt:   job.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   job.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if job.CompletedAt != nil {
		row.CompletedAt = job.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	if job.Result != nil {
		blob, err := json.Marshal(job.Result)
		if err != nil {
			return jobRow{}, fmt.Errorf("encode result for job %s: %w", job.ID, err)
		}
		row.Result = sql.NullString{String: string(blob), Valid: true}
	}
	return row, nil
}

func fromRow(row jobRow) (Job, error) {
	job := Job{
		ID:          row.JobID,
		Address:     row.Address,
		Status:      Status(row.Status),
		Progress:    row.Progress,
		CurrentStep: row.CurrentStep,
		Outcome:     analysis.Outcome(row.Outcome),
		Error:       row.Error,
		ErrorStatus: row.ErrorStatus,
		Attempts:    row.Attempts,
	}
	var err error
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, row.CreatedAt); err != nil {
		return Job{}, fmt.Errorf("job %s created_at: %w", row.JobID, err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, row.UpdatedAt); err != nil {
		return Job{}, fmt.Errorf("job %s updated_at: %w", row.JobID, err)
	}
	if row.CompletedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, row.CompletedAt)
		if err != nil {
			return Job{}, fmt.Errorf("job %s completed_at: %w", row.JobID, err)
		}
		job.CompletedAt = &t
	}
	if row.Result.Valid {
		var a analysis.PropertyAnalysis
		if err := json.Unmarshal([]byte(row.Result.String), &a); err != nil {
			return Job{}, fmt.Errorf("decode result for job %s: %w", row.JobID, err)
		}
		job.Result = &a
	}
	return job, nil
}
