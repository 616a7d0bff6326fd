package orchestrator

import (
	"context"

	"chunkgen/internal/ledger"
	"chunkgen/pkg/types"
)

// ChunkDriver advances a run to completion in layer-bounded sub-calls,
// sending only the cache window each call needs.
type ChunkDriver struct {
	calls *caller
}

// Driven is the state after a Drive call. On error it is the last
// consistent (run, session) pair, from which driving can be resumed.
type Driven struct {
	Run     types.Run
	Session types.Session
	// Advance calls that succeeded.
	SubCalls int
}

// Drive repeatedly advances run by at most n layers until it completes.
// A fresh run on an L-layer model takes exactly ceil(L/n) sub-calls.
// Failures are not retried.
func (d *ChunkDriver) Drive(ctx context.Context, run types.Run, s types.Session, n int) (Driven, error) {
	out := Driven{Run: run, Session: s}
	if n <= 0 {
		return out, violation(types.OpAdvance, "chunk size must be positive, got %d", n)
	}
	for !ledger.IsComplete(out.Run) {
		floor, _ := ledger.NextWindowFloor(out.Run)
		window := ledger.Window(out.Session.Cache, out.Run, n)
		observeWindow(out.Run.Phase, len(window))

		var res types.ChunkResult
		err := d.calls.do(ctx, types.OpAdvance, s.ID, func(ctx context.Context) error {
			var err error
			res, err = d.calls.backend.Advance(ctx, n, out.Run, out.Session.WithCache(window))
			return err
		})
		if err != nil {
			return out, err
		}
		if err := checkAdvance(out.Run, res, floor, n); err != nil {
			return out, err
		}
		out.Session = out.Session.WithCache(ledger.Merge(out.Session.Cache, res.Session.Cache))
		out.Run = res.Run
		out.SubCalls++
	}
	return out, nil
}

// checkAdvance rejects a chunk result the request could not have produced.
func checkAdvance(prev types.Run, res types.ChunkResult, floor, n int) error {
	if err := ledger.CheckWindow(res.Session.Cache, floor, n); err != nil {
		return &ProtocolViolationError{Op: types.OpAdvance, Reason: "returned cache outside window", Err: err}
	}
	if res.Completed != ledger.IsComplete(res.Run) {
		return violation(types.OpAdvance, "completed=%t contradicts progress %v", res.Completed, res.Run.Progress)
	}
	if res.Completed {
		return nil
	}
	if !ledger.Advanced(prev.Progress, res.Run.Progress) {
		return violation(types.OpAdvance, "progress did not advance past %v (got %v)", prev.Progress, res.Run.Progress)
	}
	if k, ok := res.Run.Progress.Layer(); ok && k > floor+n {
		return violation(types.OpAdvance, "advanced to layer %d, beyond chunk [%d, %d)", k, floor, floor+n)
	}
	return nil
}
