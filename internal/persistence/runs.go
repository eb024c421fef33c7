// Run ledger: bookkeeping for simulation executions. No business logic —
// the engine decides transitions, this records them.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/halcyard/chronicle/internal/sim"
	"github.com/halcyard/chronicle/internal/temporal"
)

type runRow struct {
	ID          string  `db:"id"`
	EntityID    int64   `db:"entity_id"`
	Branch      string  `db:"branch"`
	ParentRunID *string `db:"parent_run_id"`
	StartDay    int64   `db:"start_day"`
	EndDay      int64   `db:"end_day"`
	ProgressDay int64   `db:"progress_day"`
	Seed        int64   `db:"seed"`
	Granularity string  `db:"granularity"`
	Status      string  `db:"status"`
	Error       string  `db:"error"`
	CreatedAt   string  `db:"created_at"`
	UpdatedAt   string  `db:"updated_at"`
}

func (r runRow) toRun() *sim.Run {
	createdAt, _ := time.Parse(time.RFC3339Nano, r.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, r.UpdatedAt)
	return &sim.Run{
		ID:          r.ID,
		EntityID:    r.EntityID,
		Branch:      r.Branch,
		ParentRunID: r.ParentRunID,
		StartDay:    r.StartDay,
		EndDay:      r.EndDay,
		ProgressDay: r.ProgressDay,
		Seed:        r.Seed,
		Granularity: temporal.Granularity(r.Granularity),
		Status:      sim.RunStatus(r.Status),
		Error:       r.Error,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// CreateRun inserts a new ledger record.
func (db *DB) CreateRun(run *sim.Run) error {
	ts := now()
	return retryWrite(func() error {
		_, err := db.conn.Exec(
			`INSERT INTO runs
			 (id, entity_id, branch, parent_run_id, start_day, end_day, progress_day,
			  seed, granularity, status, error, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?)`,
			run.ID, run.EntityID, run.Branch, run.ParentRunID,
			run.StartDay, run.EndDay, run.ProgressDay,
			run.Seed, string(run.Granularity), string(run.Status), ts, ts,
		)
		return err
	})
}

// UpdateProgress records the last fully committed chunk boundary.
func (db *DB) UpdateProgress(runID string, progressDay int64) error {
	return db.updateRun(runID,
		`UPDATE runs SET progress_day = ?, updated_at = ? WHERE id = ?`,
		progressDay, now(), runID)
}

// MarkRunning reopens a run for resumption and extends its end day.
func (db *DB) MarkRunning(runID string, endDay int64) error {
	return db.updateRun(runID,
		`UPDATE runs SET status = ?, end_day = ?, error = '', updated_at = ? WHERE id = ?`,
		string(sim.StatusRunning), endDay, now(), runID)
}

// MarkCompleted sets the terminal completed status.
func (db *DB) MarkCompleted(runID string) error {
	return db.updateRun(runID,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(sim.StatusCompleted), now(), runID)
}

// MarkPaused records a caller-driven or cancellation pause.
func (db *DB) MarkPaused(runID string) error {
	return db.updateRun(runID,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(sim.StatusPaused), now(), runID)
}

// MarkFailed records an unrecoverable failure with its reason. The
// progress day keeps pointing at the last good chunk so the operator can
// inspect and resume.
func (db *DB) MarkFailed(runID string, reason string) error {
	return db.updateRun(runID,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(sim.StatusFailed), reason, now(), runID)
}

func (db *DB) updateRun(runID, query string, args ...any) error {
	return retryWrite(func() error {
		res, err := db.conn.Exec(query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("run %s: %w", runID, sim.ErrRunNotFound)
		}
		return nil
	})
}

// GetRun returns one ledger record by id.
func (db *DB) GetRun(runID string) (*sim.Run, error) {
	var row runRow
	err := db.conn.Get(&row, `SELECT * FROM runs WHERE id = ?`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, sim.ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	return row.toRun(), nil
}

// ListRuns returns ledger records, optionally filtered by status, newest
// first.
func (db *DB) ListRuns(status sim.RunStatus) ([]*sim.Run, error) {
	var rows []runRow
	var err error
	if status == "" {
		err = db.conn.Select(&rows, `SELECT * FROM runs ORDER BY created_at DESC`)
	} else {
		err = db.conn.Select(&rows, `SELECT * FROM runs WHERE status = ? ORDER BY created_at DESC`, string(status))
	}
	if err != nil {
		return nil, err
	}
	runs := make([]*sim.Run, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, row.toRun())
	}
	return runs, nil
}
