// Package simulator implements a deterministic stand-in for the remote
// compute service. It runs a toy layered model over a byte vocabulary and
// enforces the same contract a real service does: a per-call layer budget,
// exact cache windows, and no state kept between calls.
package simulator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"chunkgen/internal/ledger"
	"chunkgen/pkg/types"
)

// Config describes the simulated model.
type Config struct {
	// Layers is the model depth L.
	Layers int
	// MaxLayersPerCall is the budget of one advance call. Zero means Layers.
	MaxLayersPerCall int
	// PromptSlice is how many prompt tokens one iterative prompt step ingests.
	PromptSlice int
	// MaxReplyBytes caps the scripted completion.
	MaxReplyBytes int
	// Latency is added to every call. Useful to exercise cancellation.
	Latency time.Duration
}

// DefaultConfig returns the model served by chunksim unless configured
// otherwise.
func DefaultConfig() Config {
	return Config{Layers: 32, MaxLayersPerCall: 12, PromptSlice: 12, MaxReplyBytes: 64}
}

// Engine serves the six remote operations. Methods are safe for concurrent
// use; the only shared state is the call counters.
type Engine struct {
	cfg     Config
	started time.Time

	calls            map[types.Op]*atomic.Uint64
	budgetRejections atomic.Uint64
}

// New validates cfg and returns an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Layers <= 0 {
		return nil, fmt.Errorf("simulator: layers must be positive, got %d", cfg.Layers)
	}
	if cfg.MaxLayersPerCall == 0 {
		cfg.MaxLayersPerCall = cfg.Layers
	}
	if cfg.MaxLayersPerCall < 0 {
		return nil, fmt.Errorf("simulator: max layers per call must be positive, got %d", cfg.MaxLayersPerCall)
	}
	if cfg.PromptSlice <= 0 {
		return nil, fmt.Errorf("simulator: prompt slice must be positive, got %d", cfg.PromptSlice)
	}
	if cfg.MaxReplyBytes <= 0 {
		return nil, fmt.Errorf("simulator: max reply bytes must be positive, got %d", cfg.MaxReplyBytes)
	}
	e := &Engine{cfg: cfg, started: time.Now(), calls: make(map[types.Op]*atomic.Uint64, len(types.Ops))}
	for _, op := range types.Ops {
		e.calls[op] = new(atomic.Uint64)
	}
	return e, nil
}

// Ready always reports true; the engine has nothing to load.
func (e *Engine) Ready() bool { return true }

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) enter(ctx context.Context, op types.Op) error {
	e.calls[op].Add(1)
	if e.cfg.Latency > 0 {
		t := time.NewTimer(e.cfg.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return ctx.Err()
}

// StartPrompt tokenizes text into a fresh session.
func (e *Engine) StartPrompt(ctx context.Context, text, sessionID string) (types.Session, error) {
	if err := e.enter(ctx, types.OpStartPrompt); err != nil {
		return types.Session{}, err
	}
	if text == "" {
		return types.Session{}, errorf(types.KindBadRequest, "prompt text is empty")
	}
	return types.Session{ID: sessionID, Prompt: tokenize(text), Cache: types.Cache{}}, nil
}

// BeginPrompt starts the next prompt-ingestion step. A nil run means the
// prompt is already exhausted.
func (e *Engine) BeginPrompt(ctx context.Context, s types.Session, iterative bool) (*types.Run, types.Session, error) {
	if err := e.enter(ctx, types.OpBeginPrompt); err != nil {
		return nil, types.Session{}, err
	}
	if err := checkSession(s); err != nil {
		return nil, types.Session{}, err
	}
	if len(s.Cache) != 0 {
		return nil, types.Session{}, errorf(types.KindCacheMismatch, "begin prompt expects a stripped cache, got layers %v", s.Cache.Layers())
	}
	if s.PromptExhausted() {
		return nil, s, nil
	}
	start := s.PromptCursor
	end := len(s.Prompt)
	if iterative && end-start > e.cfg.PromptSlice {
		end = start + e.cfg.PromptSlice
	}
	progress := types.AtLayer(0)
	if start == 0 {
		progress = types.NotStarted()
	}
	tokens := append([]uint32(nil), s.Prompt[start:end]...)
	run := &types.Run{
		Phase:    types.PhasePrompt,
		Progress: progress,
		IndexPos: start,
		Tokens:   tokens,
		Hidden:   initialHidden(tokens),
	}
	s.PromptCursor = end
	return run, s, nil
}

// BeginDecode starts a decode step for the last generated token.
func (e *Engine) BeginDecode(ctx context.Context, s types.Session) (types.Run, error) {
	if err := e.enter(ctx, types.OpBeginDecode); err != nil {
		return types.Run{}, err
	}
	if err := checkSession(s); err != nil {
		return types.Run{}, err
	}
	if len(s.Cache) != 0 {
		return types.Run{}, errorf(types.KindCacheMismatch, "begin decode expects a stripped cache, got layers %v", s.Cache.Layers())
	}
	if !s.PromptExhausted() {
		return types.Run{}, errorf(types.KindInvalidState, "prompt not fully ingested (%d/%d)", s.PromptCursor, len(s.Prompt))
	}
	if len(s.Output) == 0 {
		return types.Run{}, errorf(types.KindInvalidState, "no generated token to decode from")
	}
	last := s.Output[len(s.Output)-1]
	if last == tokenEOS {
		return types.Run{}, errorf(types.KindInvalidState, "session already reached end of sequence")
	}
	tokens := []uint32{last}
	return types.Run{
		Phase:    types.PhaseDecode,
		Progress: types.AtLayer(0),
		IndexPos: len(s.Prompt) + len(s.Output) - 1,
		Tokens:   tokens,
		Hidden:   initialHidden(tokens),
	}, nil
}

// Advance computes at most n layers of run. The session must carry exactly
// the cache window of the layers being computed; the returned session carries
// only the layers this call updated.
func (e *Engine) Advance(ctx context.Context, n int, run types.Run, s types.Session) (types.ChunkResult, error) {
	if err := e.enter(ctx, types.OpAdvance); err != nil {
		return types.ChunkResult{}, err
	}
	if n <= 0 {
		return types.ChunkResult{}, errorf(types.KindBadRequest, "chunk size must be positive, got %d", n)
	}
	if n > e.cfg.MaxLayersPerCall {
		e.budgetRejections.Add(1)
		return types.ChunkResult{}, errorf(types.KindBudgetExceeded, "chunk size %d exceeds budget of %d layers", n, e.cfg.MaxLayersPerCall)
	}
	if err := checkSession(s); err != nil {
		return types.ChunkResult{}, err
	}
	if err := e.checkRun(run, s); err != nil {
		return types.ChunkResult{}, err
	}

	var from int
	switch run.Progress.State() {
	case types.StateNotStarted:
		from = 0
	case types.StateAtLayer:
		from, _ = run.Progress.Layer()
		if from >= e.cfg.Layers {
			return types.ChunkResult{}, errorf(types.KindInvalidState, "run at layer %d of a %d-layer model", from, e.cfg.Layers)
		}
	case types.StateDone:
		return types.ChunkResult{}, errorf(types.KindInvalidState, "run already completed")
	}
	to := min(from+n, e.cfg.Layers)

	if err := ledger.CheckWindow(s.Cache, from, to-from); err != nil {
		return types.ChunkResult{}, errorf(types.KindCacheMismatch, "%v", err)
	}

	hidden := run.Hidden.Clone()
	updated := make(types.Cache, to-from)
	for l := from; l < to; l++ {
		kv, err := e.extend(l, run, s)
		if err != nil {
			return types.ChunkResult{}, err
		}
		updated[l] = kv
		for i := range hidden.F32 {
			hidden.F32[i] += layerGain(l)
		}
	}

	next := run
	next.Tokens = append([]uint32(nil), run.Tokens...)
	next.Hidden = hidden
	completed := to == e.cfg.Layers
	if completed {
		next.Progress = types.Done()
	} else {
		next.Progress = types.AtLayer(to)
	}
	return types.ChunkResult{Completed: completed, Run: next, Session: s.WithCache(updated)}, nil
}

// extend verifies the prior entries of one layer and appends the positions
// covered by run.
func (e *Engine) extend(layer int, run types.Run, s types.Session) (types.KVPair, error) {
	prior := run.IndexPos
	kv, ok := s.Cache[layer]
	if prior > 0 {
		if !ok {
			return types.KVPair{}, errorf(types.KindCacheMismatch, "layer %d missing from cache window", layer)
		}
		if kv.Key.DType != types.DTypeF32 || kv.Key.Len() != prior || kv.Value.Len() != prior {
			return types.KVPair{}, errorf(types.KindCacheMismatch, "layer %d holds %d positions, want %d", layer, kv.Key.Len(), prior)
		}
	} else if ok && (kv.Key.Len() != 0 || kv.Value.Len() != 0) {
		return types.KVPair{}, errorf(types.KindCacheMismatch, "layer %d holds positions before the first token", layer)
	}

	keys := make([]float32, 0, prior+len(run.Tokens))
	values := make([]float32, 0, prior+len(run.Tokens))
	for pos := 0; pos < prior; pos++ {
		tok, _ := tokenAt(s, pos)
		if kv.Key.F32[pos] != keyAt(layer, tok, pos) || kv.Value.F32[pos] != valueAt(layer, tok, pos) {
			return types.KVPair{}, errorf(types.KindCacheMismatch, "layer %d stale at position %d", layer, pos)
		}
		keys = append(keys, kv.Key.F32[pos])
		values = append(values, kv.Value.F32[pos])
	}
	for i, tok := range run.Tokens {
		keys = append(keys, keyAt(layer, tok, prior+i))
		values = append(values, valueAt(layer, tok, prior+i))
	}
	return types.KVPair{Key: types.F32Tensor(keys), Value: types.F32Tensor(values)}, nil
}

// EndPrompt finishes a prompt-ingestion step. Text is present only once the
// whole prompt was ingested, and then carries the first generated token.
func (e *Engine) EndPrompt(ctx context.Context, run types.Run, s types.Session) (types.PhaseResult, error) {
	if err := e.enter(ctx, types.OpEndPrompt); err != nil {
		return types.PhaseResult{}, err
	}
	if err := e.checkEnd(types.PhasePrompt, run, s); err != nil {
		return types.PhaseResult{}, err
	}
	if !s.PromptExhausted() {
		return types.PhaseResult{Session: s}, nil
	}
	if len(s.Output) != 0 {
		return types.PhaseResult{}, errorf(types.KindInvalidState, "prompt already answered")
	}
	return e.produce(s), nil
}

// EndDecode finishes a decode step and samples the next token.
func (e *Engine) EndDecode(ctx context.Context, run types.Run, s types.Session) (types.PhaseResult, error) {
	if err := e.enter(ctx, types.OpEndDecode); err != nil {
		return types.PhaseResult{}, err
	}
	if err := e.checkEnd(types.PhaseDecode, run, s); err != nil {
		return types.PhaseResult{}, err
	}
	if want := len(s.Prompt) + len(s.Output) - 1; run.IndexPos != want {
		return types.PhaseResult{}, errorf(types.KindInvalidState, "decode run at position %d, session expects %d", run.IndexPos, want)
	}
	return e.produce(s), nil
}

func (e *Engine) produce(s types.Session) types.PhaseResult {
	script := reply(s.Prompt, e.cfg.MaxReplyBytes)
	out := append([]uint32(nil), s.Output...)
	if len(out) >= len(script) {
		s.Output = append(out, tokenEOS)
		return types.PhaseResult{EndOfSequence: true, Session: s}
	}
	s.Output = append(out, script[len(out)])
	text, cursor := emit(s)
	s.OutputCursor = cursor
	return types.PhaseResult{Text: types.TextPtr(text), Session: s}
}

func (e *Engine) checkEnd(phase types.Phase, run types.Run, s types.Session) error {
	if err := checkSession(s); err != nil {
		return err
	}
	if len(s.Cache) != 0 {
		return errorf(types.KindCacheMismatch, "end of %s expects a stripped cache, got layers %v", phase, s.Cache.Layers())
	}
	if run.Phase != phase {
		return errorf(types.KindInvalidState, "run belongs to %s phase, not %s", run.Phase, phase)
	}
	if !ledger.IsComplete(run) {
		return errorf(types.KindInvalidState, "run not completed (%v)", run.Progress)
	}
	if err := e.checkRun(run, s); err != nil {
		return err
	}
	for i, tok := range run.Tokens {
		if run.Hidden.F32[i] != expectedHidden(tok, e.cfg.Layers) {
			return errorf(types.KindInvalidState, "forward pass incomplete for token %d", i)
		}
	}
	return nil
}

func (e *Engine) checkRun(run types.Run, s types.Session) error {
	if run.Phase != types.PhasePrompt && run.Phase != types.PhaseDecode {
		return errorf(types.KindBadRequest, "unknown run phase %q", run.Phase)
	}
	if len(run.Tokens) == 0 {
		return errorf(types.KindBadRequest, "run carries no tokens")
	}
	if run.Hidden.DType != types.DTypeF32 || run.Hidden.Len() != len(run.Tokens) {
		return errorf(types.KindBadRequest, "hidden state does not match %d tokens", len(run.Tokens))
	}
	if run.IndexPos < 0 {
		return errorf(types.KindBadRequest, "negative index position %d", run.IndexPos)
	}
	for i, tok := range run.Tokens {
		got, ok := tokenAt(s, run.IndexPos+i)
		if !ok || got != tok {
			return errorf(types.KindInvalidState, "run token %d does not belong to the session", i)
		}
	}
	return nil
}

func checkSession(s types.Session) error {
	if len(s.Prompt) == 0 {
		return errorf(types.KindBadRequest, "session has no prompt")
	}
	if s.PromptCursor < 0 || s.PromptCursor > len(s.Prompt) {
		return errorf(types.KindBadRequest, "prompt cursor %d out of range", s.PromptCursor)
	}
	if s.OutputCursor < 0 || s.OutputCursor > len(s.Output) {
		return errorf(types.KindBadRequest, "output cursor %d out of range", s.OutputCursor)
	}
	return nil
}

// Status reports the model shape and call counters.
func (e *Engine) Status() types.StatusResponse {
	calls := make(map[string]uint64, len(e.calls))
	for op, c := range e.calls {
		calls[string(op)] = c.Load()
	}
	now := time.Now()
	return types.StatusResponse{
		Layers:           e.cfg.Layers,
		MaxLayersPerCall: e.cfg.MaxLayersPerCall,
		PromptSlice:      e.cfg.PromptSlice,
		Calls:            calls,
		BudgetRejections: e.budgetRejections.Load(),
		UptimeSeconds:    int64(now.Sub(e.started).Seconds()),
		ServerTimeUnix:   now.Unix(),
	}
}
