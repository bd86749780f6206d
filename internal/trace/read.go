package trace

import (
	"context"
	"fmt"

	"github.com/grovelang/grove/internal/perm"
)

// StepRecord is one step as read back from the log. Snapshot columns
// hold canonical JSON; the hashes are their content ids.
type StepRecord struct {
	RunToken  string
	Seq       int64
	Op        string
	Perm      perm.ID
	Result    perm.ID
	Span      perm.Span
	Violation string
	Message   string

	BeforeHash  string
	AfterHash   string
	BeforeState string
	AfterState  string
}

// RunInfo summarizes one recorded run.
type RunInfo struct {
	Token      string
	CreatedAt  string
	Steps      int64
	Violations int64
}

// ReadRun returns every step of a run in seq order.
func (s *Store) ReadRun(ctx context.Context, runToken string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_token, seq, op, perm, result,
		       span_file, span_line, span_column,
		       violation_code, message,
		       before_hash, after_hash, before_state, after_state
		FROM steps
		WHERE run_token = ?
		ORDER BY seq
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("read run: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var rec StepRecord
		var p, result int64
		err := rows.Scan(
			&rec.RunToken, &rec.Seq, &rec.Op, &p, &result,
			&rec.Span.File, &rec.Span.Line, &rec.Span.Column,
			&rec.Violation, &rec.Message,
			&rec.BeforeHash, &rec.AfterHash, &rec.BeforeState, &rec.AfterState,
		)
		if err != nil {
			return nil, fmt.Errorf("read run: %w", err)
		}
		rec.Perm = perm.ID(p)
		rec.Result = perm.ID(result)
		steps = append(steps, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read run: %w", err)
	}
	return steps, nil
}

// ListRuns returns every recorded run, newest first, with step and
// violation counts.
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.token, r.created_at,
		       COUNT(s.seq),
		       COUNT(CASE WHEN s.violation_code != '' THEN 1 END)
		FROM runs r
		LEFT JOIN steps s ON s.run_token = r.token
		GROUP BY r.token, r.created_at
		ORDER BY r.created_at DESC, r.token DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		if err := rows.Scan(&info.Token, &info.CreatedAt, &info.Steps, &info.Violations); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
