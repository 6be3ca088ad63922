package db

import (
	"database/sql"
	"fmt"
)

// Run represents a row in the runs table.
type Run struct {
	ID         string
	StartedAt  string
	FinishedAt string
	Status     string
	Detail     string
}

// PipelineEvent represents a row in the pipeline_events table.
type PipelineEvent struct {
	ID        int
	RunID     string
	Feature   string
	Event     string
	Stage     string
	Cycle     int
	Detail    string
	Timestamp string
}

// Invocation represents a row in the invocations table.
type Invocation struct {
	ID         int
	RunID      string
	Feature    string
	Stage      string
	Signal     string
	ExitCode   int
	DurationMs int
	Timestamp  string
}

// BeginRun inserts a runs row in the 'running' state.
func (d *DB) BeginRun(runID string) error {
	_, err := d.conn.Exec(`INSERT INTO runs (id) VALUES (?)`, runID)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun records a run's terminal status.
func (d *DB) FinishRun(runID string, status string, detail string) error {
	_, err := d.conn.Exec(
		`UPDATE runs SET status = ?, detail = ?, finished_at = datetime('now') WHERE id = ?`,
		status, detail, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// ListRuns returns all runs, newest first.
func (d *DB) ListRuns(limit int) ([]Run, error) {
	rows, err := d.conn.Query(
		`SELECT id, started_at, finished_at, status, detail
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finishedAt, detail sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &finishedAt, &r.Status, &detail); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finishedAt.Valid {
			r.FinishedAt = finishedAt.String
		}
		if detail.Valid {
			r.Detail = detail.String
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LogPipelineEvent inserts a pipeline event.
func (d *DB) LogPipelineEvent(runID string, feature string, event string, stage string, cycle int, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO pipeline_events (run_id, feature, event, stage, cycle, detail) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, feature, event, stage, cycle, detail,
	)
	if err != nil {
		return fmt.Errorf("log pipeline event: %w", err)
	}
	return nil
}

// LogInvocation inserts a worker invocation record.
func (d *DB) LogInvocation(runID string, feature string, stage string, signal string, exitCode int, durationMs int) error {
	_, err := d.conn.Exec(
		`INSERT INTO invocations (run_id, feature, stage, signal, exit_code, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, feature, stage, signal, exitCode, durationMs,
	)
	if err != nil {
		return fmt.Errorf("log invocation: %w", err)
	}
	return nil
}

// GetFeatureHistory returns all pipeline events for a feature, oldest first.
func (d *DB) GetFeatureHistory(feature string) ([]PipelineEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, feature, event, stage, cycle, detail, timestamp
		 FROM pipeline_events WHERE feature = ? ORDER BY timestamp, id`,
		feature,
	)
	if err != nil {
		return nil, fmt.Errorf("get feature history: %w", err)
	}
	defer rows.Close()

	var events []PipelineEvent
	for rows.Next() {
		var e PipelineEvent
		var stage, detail sql.NullString
		var cycle sql.NullInt64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Feature, &e.Event, &stage, &cycle, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pipeline event: %w", err)
		}
		if stage.Valid {
			e.Stage = stage.String
		}
		if cycle.Valid {
			e.Cycle = int(cycle.Int64)
		}
		if detail.Valid {
			e.Detail = detail.String
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetFeatureInvocations returns all invocations for a feature, oldest first.
func (d *DB) GetFeatureInvocations(feature string) ([]Invocation, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, feature, stage, signal, exit_code, duration_ms, timestamp
		 FROM invocations WHERE feature = ? ORDER BY timestamp, id`,
		feature,
	)
	if err != nil {
		return nil, fmt.Errorf("get feature invocations: %w", err)
	}
	defer rows.Close()

	var invs []Invocation
	for rows.Next() {
		var inv Invocation
		var exitCode, durationMs sql.NullInt64
		if err := rows.Scan(&inv.ID, &inv.RunID, &inv.Feature, &inv.Stage, &inv.Signal, &exitCode, &durationMs, &inv.Timestamp); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		if exitCode.Valid {
			inv.ExitCode = int(exitCode.Int64)
		}
		if durationMs.Valid {
			inv.DurationMs = int(durationMs.Int64)
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

// RunJournal scopes journal writes to a single run so callers don't
// thread the run id through every call.
type RunJournal struct {
	db    *DB
	runID string
}

// NewRunJournal creates a RunJournal for runID.
func (d *DB) NewRunJournal(runID string) *RunJournal {
	return &RunJournal{db: d, runID: runID}
}

// LogEvent records a pipeline event under this journal's run.
func (j *RunJournal) LogEvent(feature string, event string, stage string, cycle int, detail string) error {
	return j.db.LogPipelineEvent(j.runID, feature, event, stage, cycle, detail)
}

// LogInvocation records a worker invocation under this journal's run.
func (j *RunJournal) LogInvocation(feature string, stage string, signal string, exitCode int, durationMs int) error {
	return j.db.LogInvocation(j.runID, feature, stage, signal, exitCode, durationMs)
}
