package trace

import (
	"context"

	"github.com/grovelang/grove/internal/engine"
	"github.com/grovelang/grove/internal/perm"
)

// Recorder adapts a Store to the engine's Recorder interface. The
// context is fixed at construction because the engine records steps
// synchronously inside transitions, where no request context exists.
type Recorder struct {
	ctx   context.Context
	store *Store
}

// NewRecorder returns a Recorder writing into store.
func NewRecorder(ctx context.Context, store *Store) *Recorder {
	return &Recorder{ctx: ctx, store: store}
}

// Record implements engine.Recorder.
func (r *Recorder) Record(step engine.Step) error {
	return r.store.WriteStep(r.ctx, step)
}

// marshalCanonicalBody is the single serialization point for snapshot
// state columns.
func marshalCanonicalBody(body map[string]any) (string, error) {
	data, err := perm.MarshalCanonical(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
