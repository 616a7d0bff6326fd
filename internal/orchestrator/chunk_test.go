package orchestrator

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chunkgen/internal/ledger"
	"chunkgen/internal/simulator"
	"chunkgen/pkg/types"
)

var progressCmp = cmp.AllowUnexported(types.Progress{})

func TestDriveTerminatesInCeilLOverNSubCalls(t *testing.T) {
	for layers := 1; layers <= 9; layers++ {
		sim := newSim(t, simulator.Config{Layers: layers, PromptSlice: 8, MaxReplyBytes: 8})
		d := New(sim).Driver()
		for n := 1; n <= layers; n++ {
			run, s := freshRun(t, sim, "abc")
			got, err := d.Drive(context.Background(), run, s, n)
			if err != nil {
				t.Fatalf("L=%d n=%d: %v", layers, n, err)
			}
			want := (layers + n - 1) / n
			if got.SubCalls != want {
				t.Fatalf("L=%d n=%d: sub-calls got %d want %d", layers, n, got.SubCalls, want)
			}
			if !ledger.IsComplete(got.Run) || len(got.Session.Cache) != layers {
				t.Fatalf("L=%d n=%d: run %v cache layers %v", layers, n, got.Run.Progress, got.Session.Cache.Layers())
			}
		}
	}
}

// Interrupting after any sub-call and resuming from the returned pair must
// land on the same final run and cache as a single uninterrupted pass.
func TestDriveResumableAfterAnySubCall(t *testing.T) {
	const layers, n = 7, 2
	sim := newSim(t, simulator.Config{Layers: layers, PromptSlice: 8, MaxReplyBytes: 8})
	ctx := context.Background()

	run, s := freshRun(t, sim, "resume me")
	want, err := New(sim).Driver().Drive(ctx, run, s, n)
	if err != nil {
		t.Fatalf("uninterrupted: %v", err)
	}

	for k := 1; k <= want.SubCalls; k++ {
		flaky := record(sim).failNth(types.OpAdvance, k)
		partial, err := New(flaky).Driver().Drive(ctx, run, s, n)
		if !IsRemoteCallFailure(err) {
			t.Fatalf("k=%d: expected remote failure, got %v", k, err)
		}
		if partial.SubCalls != k-1 {
			t.Fatalf("k=%d: consistent state after %d sub-calls, want %d", k, partial.SubCalls, k-1)
		}
		got, err := New(sim).Driver().Drive(ctx, partial.Run, partial.Session, n)
		if err != nil {
			t.Fatalf("k=%d resume: %v", k, err)
		}
		if diff := cmp.Diff(want.Run, got.Run, progressCmp); diff != "" {
			t.Fatalf("k=%d run mismatch (-want +got):\n%s", k, diff)
		}
		if diff := cmp.Diff(want.Session.Cache, got.Session.Cache); diff != "" {
			t.Fatalf("k=%d cache mismatch (-want +got):\n%s", k, diff)
		}
		if partial.SubCalls+got.SubCalls != want.SubCalls {
			t.Fatalf("k=%d: total sub-calls %d want %d", k, partial.SubCalls+got.SubCalls, want.SubCalls)
		}
	}
}

func TestDriveDoesNotTouchCallerCache(t *testing.T) {
	sim := newSim(t, simulator.Config{Layers: 4, PromptSlice: 2, MaxReplyBytes: 8})
	ctx := context.Background()
	run, s := freshRun(t, sim, "abcd")
	first, err := New(sim).Driver().Drive(ctx, run, s, 3)
	if err != nil {
		t.Fatalf("drive: %v", err)
	}
	before := first.Session.Cache.Clone()
	res, err := sim.EndPrompt(ctx, first.Run, first.Session.WithCache(types.Cache{}))
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	s2 := res.Session.WithCache(first.Session.Cache)
	next, s2b, err := sim.BeginPrompt(ctx, s2.WithCache(types.Cache{}), true)
	if err != nil || next == nil {
		t.Fatalf("begin second slice: %v", err)
	}
	if _, err := New(sim).Driver().Drive(ctx, *next, s2b.WithCache(first.Session.Cache), 3); err != nil {
		t.Fatalf("drive second slice: %v", err)
	}
	if diff := cmp.Diff(before, first.Session.Cache); diff != "" {
		t.Fatalf("canonical cache mutated (-before +after):\n%s", diff)
	}
}

func TestDriveCompletedRunIsNoop(t *testing.T) {
	r := record(newSim(t, simulator.DefaultConfig()))
	got, err := New(r).Driver().Drive(context.Background(), types.Run{Progress: types.Done()}, types.Session{}, 3)
	if err != nil || got.SubCalls != 0 || r.count(types.OpAdvance) != 0 {
		t.Fatalf("completed run should not be advanced: %+v %v", got, err)
	}
}

// misbehaving returns a chunk result crafted by fn from the honest one.
type misbehaving struct {
	Backend
	fn func(req types.Run, res types.ChunkResult) types.ChunkResult
}

func (m misbehaving) Advance(ctx context.Context, n int, run types.Run, s types.Session) (types.ChunkResult, error) {
	res, err := m.Backend.Advance(ctx, n, run, s)
	if err != nil {
		return res, err
	}
	return m.fn(run, res), nil
}

func TestDriveRejectsProtocolViolations(t *testing.T) {
	cases := []struct {
		name      string
		fn        func(types.Run, types.ChunkResult) types.ChunkResult
		malformed bool
	}{
		{
			name: "cache outside window",
			fn: func(_ types.Run, res types.ChunkResult) types.ChunkResult {
				c := res.Session.Cache.Clone()
				c[7] = types.KVPair{Key: types.F32Tensor([]float32{1})}
				res.Session.Cache = c
				return res
			},
			malformed: true,
		},
		{
			name: "completed flag contradicts progress",
			fn: func(_ types.Run, res types.ChunkResult) types.ChunkResult {
				res.Completed = !res.Completed
				return res
			},
		},
		{
			name: "progress did not move",
			fn: func(req types.Run, res types.ChunkResult) types.ChunkResult {
				if !res.Completed {
					res.Run.Progress = req.Progress
				}
				return res
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sim := newSim(t, simulator.Config{Layers: 8, PromptSlice: 8, MaxReplyBytes: 8})
			run, s := freshRun(t, sim, "xyz")
			got, err := New(misbehaving{Backend: sim, fn: tc.fn}).Driver().Drive(context.Background(), run, s, 2)
			if !IsProtocolViolation(err) {
				t.Fatalf("expected protocol violation, got %v", err)
			}
			if IsMalformedCache(err) != tc.malformed {
				t.Fatalf("malformed=%t for %v", IsMalformedCache(err), err)
			}
			if got.SubCalls != 0 || got.Run.Progress != run.Progress {
				t.Fatalf("violating result must not be merged: %+v", got)
			}
		})
	}
}

func TestDriveStopsWhenContextDone(t *testing.T) {
	sim := newSim(t, simulator.Config{Layers: 6, PromptSlice: 8, MaxReplyBytes: 8})
	ctx, cancel := context.WithCancel(context.Background())
	cancelling := misbehaving{Backend: sim, fn: func(_ types.Run, res types.ChunkResult) types.ChunkResult {
		cancel()
		return res
	}}
	run, s := freshRun(t, sim, "abc")
	got, err := New(cancelling).Driver().Drive(ctx, run, s, 2)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// the in-flight call completed and its result was kept
	if got.SubCalls != 1 || got.Run.Progress != types.AtLayer(2) || len(got.Session.Cache) != 2 {
		t.Fatalf("state after cancel: calls=%d progress=%v layers=%v", got.SubCalls, got.Run.Progress, got.Session.Cache.Layers())
	}
}
