// Package analytics computes aggregate views over the event journal.
package analytics

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
)

// DB is the interface for database queries used by analytics.
type DB interface {
	Conn() *sql.DB
}

// StageStats holds invocation stats for one pipeline stage.
type StageStats struct {
	Stage    string  `json:"stage"`
	Count    int     `json:"count"`
	Failures int     `json:"failures"`
	AvgSec   float64 `json:"avg_seconds"`
	P50Sec   float64 `json:"p50_seconds"`
	P95Sec   float64 `json:"p95_seconds"`
}

// failureSignals are the worker outcomes that drive the retry loop.
const failureSignals = "('REVIEW_FAILED','QA_ISSUES_BACKEND','QA_ISSUES_FRONTEND')"

// QueryStageStats returns per-stage invocation counts, failure counts,
// and duration percentiles.
func QueryStageStats(database DB, since string) ([]StageStats, error) {
	query := `
		SELECT stage, signal, duration_ms
		FROM invocations
		WHERE stage != ''`

	args := []interface{}{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stage stats: %w", err)
	}
	defer rows.Close()

	durations := make(map[string][]float64)
	failures := make(map[string]int)
	for rows.Next() {
		var stage, sig string
		var durationMs sql.NullInt64
		if err := rows.Scan(&stage, &sig, &durationMs); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		seconds := 0.0
		if durationMs.Valid {
			seconds = float64(durationMs.Int64) / 1000
		}
		durations[stage] = append(durations[stage], seconds)
		switch sig {
		case "REVIEW_FAILED", "QA_ISSUES_BACKEND", "QA_ISSUES_FRONTEND":
			failures[stage]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []StageStats
	for stage, ds := range durations {
		sort.Float64s(ds)
		results = append(results, StageStats{
			Stage:    stage,
			Count:    len(ds),
			Failures: failures[stage],
			AvgSec:   avg(ds),
			P50Sec:   percentile(ds, 50),
			P95Sec:   percentile(ds, 95),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Stage < results[j].Stage
	})
	return results, nil
}

// FeatureChurn holds retry churn stats for one feature.
type FeatureChurn struct {
	Feature     string  `json:"feature"`
	Invocations int     `json:"invocations"`
	Failures    int     `json:"failures"`
	FailurePct  float64 `json:"failure_pct"`
}

// QueryFeatureChurn returns per-feature invocation and failure counts,
// most churned first.
func QueryFeatureChurn(database DB, since string) ([]FeatureChurn, error) {
	query := `
		SELECT feature,
			COUNT(*) as invocations,
			SUM(CASE WHEN signal IN ` + failureSignals + ` THEN 1 ELSE 0 END) as failures
		FROM invocations`

	args := []interface{}{}
	if since != "" {
		query += ` WHERE timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY feature ORDER BY failures DESC, invocations DESC`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feature churn: %w", err)
	}
	defer rows.Close()

	var results []FeatureChurn
	for rows.Next() {
		var fc FeatureChurn
		if err := rows.Scan(&fc.Feature, &fc.Invocations, &fc.Failures); err != nil {
			return nil, fmt.Errorf("scan feature churn: %w", err)
		}
		fc.FailurePct = pct(fc.Failures, fc.Invocations)
		results = append(results, fc)
	}
	return results, rows.Err()
}

// RunSummary holds a run's outcome with its invocation volume.
type RunSummary struct {
	RunID       string `json:"run_id"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at,omitempty"`
	Status      string `json:"status"`
	Invocations int    `json:"invocations"`
	Completed   int    `json:"features_completed"`
}

// QueryRunSummaries returns recent runs with invocation and completion
// counts, newest first.
func QueryRunSummaries(database DB, limit int) ([]RunSummary, error) {
	rows, err := database.Conn().Query(`
		SELECT r.id, r.started_at, r.finished_at, r.status,
			(SELECT COUNT(*) FROM invocations i WHERE i.run_id = r.id) as invocations,
			(SELECT COUNT(*) FROM pipeline_events pe WHERE pe.run_id = r.id AND pe.event = 'completed') as completed
		FROM runs r
		ORDER BY r.started_at DESC, r.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query run summaries: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var rs RunSummary
		var finishedAt sql.NullString
		if err := rows.Scan(&rs.RunID, &rs.StartedAt, &finishedAt, &rs.Status, &rs.Invocations, &rs.Completed); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		if finishedAt.Valid {
			rs.FinishedAt = finishedAt.String
		}
		results = append(results, rs)
	}
	return results, rows.Err()
}

// SignalBreakdown holds how often each signal was classified.
type SignalBreakdown struct {
	Signal string  `json:"signal"`
	Count  int     `json:"count"`
	Pct    float64 `json:"pct"`
}

// QuerySignalBreakdown returns the distribution of classified signals.
func QuerySignalBreakdown(database DB, since string) ([]SignalBreakdown, error) {
	query := `SELECT signal, COUNT(*) FROM invocations`
	args := []interface{}{}
	if since != "" {
		query += ` WHERE timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY signal ORDER BY COUNT(*) DESC`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signal breakdown: %w", err)
	}
	defer rows.Close()

	var results []SignalBreakdown
	total := 0
	for rows.Next() {
		var sb SignalBreakdown
		if err := rows.Scan(&sb.Signal, &sb.Count); err != nil {
			return nil, fmt.Errorf("scan signal breakdown: %w", err)
		}
		total += sb.Count
		results = append(results, sb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Pct = pct(results[i].Count, total)
	}
	return results, nil
}

// --- helpers ---

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper || upper >= len(sorted) {
		return math.Round(sorted[lower]*10) / 10
	}
	weight := rank - float64(lower)
	return math.Round((sorted[lower]*(1-weight)+sorted[upper]*weight)*10) / 10
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
