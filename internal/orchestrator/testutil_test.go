package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"chunkgen/internal/simulator"
	"chunkgen/pkg/types"
)

var _ Backend = (*simulator.Engine)(nil)

func newSim(t *testing.T, cfg simulator.Config) *simulator.Engine {
	t.Helper()
	e, err := simulator.New(cfg)
	if err != nil {
		t.Fatalf("simulator: %v", err)
	}
	return e
}

var errInjected = errors.New("injected transport failure")

// recorder wraps a backend, counts calls per operation and fails the
// failOn-th call of failOp exactly once.
type recorder struct {
	Backend

	mu     sync.Mutex
	counts map[types.Op]int
	failOp types.Op
	failOn int
}

func record(b Backend) *recorder {
	return &recorder{Backend: b, counts: map[types.Op]int{}}
}

func (r *recorder) failNth(op types.Op, n int) *recorder {
	r.failOp, r.failOn = op, n
	return r
}

func (r *recorder) count(op types.Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[op]
}

func (r *recorder) enter(op types.Op) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[op]++
	if op == r.failOp && r.counts[op] == r.failOn {
		return errInjected
	}
	return nil
}

func (r *recorder) StartPrompt(ctx context.Context, text, id string) (types.Session, error) {
	if err := r.enter(types.OpStartPrompt); err != nil {
		return types.Session{}, err
	}
	return r.Backend.StartPrompt(ctx, text, id)
}

func (r *recorder) BeginPrompt(ctx context.Context, s types.Session, iterative bool) (*types.Run, types.Session, error) {
	if err := r.enter(types.OpBeginPrompt); err != nil {
		return nil, types.Session{}, err
	}
	return r.Backend.BeginPrompt(ctx, s, iterative)
}

func (r *recorder) BeginDecode(ctx context.Context, s types.Session) (types.Run, error) {
	if err := r.enter(types.OpBeginDecode); err != nil {
		return types.Run{}, err
	}
	return r.Backend.BeginDecode(ctx, s)
}

func (r *recorder) Advance(ctx context.Context, n int, run types.Run, s types.Session) (types.ChunkResult, error) {
	if err := r.enter(types.OpAdvance); err != nil {
		return types.ChunkResult{}, err
	}
	return r.Backend.Advance(ctx, n, run, s)
}

func (r *recorder) EndPrompt(ctx context.Context, run types.Run, s types.Session) (types.PhaseResult, error) {
	if err := r.enter(types.OpEndPrompt); err != nil {
		return types.PhaseResult{}, err
	}
	return r.Backend.EndPrompt(ctx, run, s)
}

func (r *recorder) EndDecode(ctx context.Context, run types.Run, s types.Session) (types.PhaseResult, error) {
	if err := r.enter(types.OpEndDecode); err != nil {
		return types.PhaseResult{}, err
	}
	return r.Backend.EndDecode(ctx, run, s)
}

// freshRun starts a session on b and begins its first prompt step.
func freshRun(t *testing.T, b Backend, prompt string) (types.Run, types.Session) {
	t.Helper()
	ctx := context.Background()
	s, err := b.StartPrompt(ctx, prompt, "t")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	run, s, err := b.BeginPrompt(ctx, s, true)
	if err != nil || run == nil {
		t.Fatalf("begin prompt: %v %v", run, err)
	}
	return *run, s
}

func collect(out *[]string) func(string) error {
	return func(frag string) error {
		*out = append(*out, frag)
		return nil
	}
}
