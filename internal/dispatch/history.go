package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/util"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Run statuses stored in dispatch_runs.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

const maxErrorLength = 2000

// ErrRunNotFound is returned by History.Get for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

// Run is one row of dispatch_runs.
type Run struct {
	RunID          string     `json:"run_id"`
	Trigger        string     `json:"trigger"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	Status         string     `json:"status"`
	Error          string     `json:"error,omitempty"`
	ActiveSuspects int        `json:"active_suspects"`
	ClosedSuspects int        `json:"closed_suspects"`
	LinksUpdated   int        `json:"links_updated"`
}

const (
	insertRunSQL = `INSERT INTO dispatch_runs (run_id, trigger, started_at, status)
VALUES ($1, $2, $3, $4)`
	finishRunSQL = `UPDATE dispatch_runs
SET finished_at = $2, status = $3, error = $4,
    active_suspects = $5, closed_suspects = $6, links_updated = $7
WHERE run_id = $1`
	selectRunsSQL = `SELECT run_id, trigger, started_at, finished_at, status, error,
    active_suspects, closed_suspects, links_updated
FROM dispatch_runs
ORDER BY started_at DESC
LIMIT $1`
	selectRunSQL = `SELECT run_id, trigger, started_at, finished_at, status, error,
    active_suspects, closed_suspects, links_updated
FROM dispatch_runs
WHERE run_id = $1`
)

type historyConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// History records dispatch runs in Postgres.
type History struct {
	conn historyConn
}

func NewHistory(conn historyConn) *History {
	return &History{conn: conn}
}

func (h *History) Start(ctx context.Context, run Run) error {
	_, err := h.conn.Exec(ctx, insertRunSQL, run.RunID, run.Trigger, run.StartedAt, StatusRunning)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	return nil
}

func (h *History) Finish(ctx context.Context, run Run) error {
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	_, err := h.conn.Exec(ctx, finishRunSQL,
		run.RunID,
		finished,
		run.Status,
		util.Truncate(util.SanitizePostgresText(run.Error), maxErrorLength),
		run.ActiveSuspects,
		run.ClosedSuspects,
		run.LinksUpdated,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run.RunID, err)
	}
	return nil
}

// List returns the latest runs, newest first.
func (h *History) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.conn.Query(ctx, selectRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (h *History) Get(ctx context.Context, runID string) (*Run, error) {
	r, err := scanRun(h.conn.QueryRow(ctx, selectRunSQL, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRun(row pgx.Row) (Run, error) {
	var r Run
	var active, closed, links int32
	err := row.Scan(
		&r.RunID,
		&r.Trigger,
		&r.StartedAt,
		&r.FinishedAt,
		&r.Status,
		&r.Error,
		&active,
		&closed,
		&links,
	)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.ActiveSuspects = int(active)
	r.ClosedSuspects = int(closed)
	r.LinksUpdated = int(links)
	return r, nil
}
