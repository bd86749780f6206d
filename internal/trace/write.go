package trace

import (
	"context"
	"fmt"

	"github.com/grovelang/grove/internal/engine"
	"github.com/grovelang/grove/internal/forest"
)

// WriteStep inserts one engine step into the log. Uses ON CONFLICT DO
// NOTHING on (run_token, seq) for idempotency - replaying the same run
// into the same database is a no-op.
//
// Forest snapshots are serialized to canonical JSON and stored with
// their content hashes, so two runs over the same program produce
// byte-identical state columns.
func (s *Store) WriteStep(ctx context.Context, step engine.Step) error {
	beforeJSON, beforeHash, err := marshalSnapshot(step.Before)
	if err != nil {
		return fmt.Errorf("write step: %w", err)
	}
	afterJSON, afterHash, err := marshalSnapshot(step.After)
	if err != nil {
		return fmt.Errorf("write step: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (token) VALUES (?)
		ON CONFLICT(token) DO NOTHING
	`, step.RunToken)
	if err != nil {
		return fmt.Errorf("write step: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO steps
		(run_token, seq, op, perm, result, span_file, span_line, span_column,
		 violation_code, message, before_hash, after_hash, before_state, after_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_token, seq) DO NOTHING
	`,
		step.RunToken,
		step.Seq,
		step.Op,
		int64(step.Perm),
		int64(step.Result),
		step.Span.File,
		step.Span.Line,
		step.Span.Column,
		step.Violation,
		step.Message,
		beforeHash,
		afterHash,
		beforeJSON,
		afterJSON,
	)
	if err != nil {
		return fmt.Errorf("write step: %w", err)
	}

	return nil
}

// marshalSnapshot renders a snapshot as canonical JSON plus its hash.
// A nil snapshot stores as empty columns.
func marshalSnapshot(snap *forest.Snapshot) (string, string, error) {
	if snap == nil {
		return "", "", nil
	}
	body := snap.CanonicalMap()
	data, err := marshalCanonicalBody(body)
	if err != nil {
		return "", "", err
	}
	hash, err := snap.Hash()
	if err != nil {
		return "", "", err
	}
	return data, hash, nil
}
