package orchestrator

import (
	"context"

	"github.com/rs/zerolog"

	"chunkgen/internal/ledger"
	"chunkgen/pkg/types"
)

// PhaseController runs single phase steps: one slice of prompt ingestion,
// or one decode step producing at most one token.
type PhaseController struct {
	calls       *caller
	driver      *ChunkDriver
	promptChunk int
	decodeChunk int
	iterative   bool
	log         zerolog.Logger
	events      EventPublisher
}

// StepResult is the outcome of a phase step. When the step failed, Session
// and Inflight are the last consistent state.
type StepResult struct {
	Session types.Session
	// Inflight is the run being driven. Nil before begin and after end.
	Inflight      *types.Run
	Text          *string
	EndOfSequence bool
	SubCalls      int
}

// adopt takes a session returned by a non-advance call as the new base and
// folds the locally tracked cache on top where the service's view lacks it.
func adopt(returned types.Session, local types.Cache) types.Session {
	return returned.WithCache(ledger.Merge(returned.Cache, local))
}

// PromptStep ingests one slice of the prompt. A present Text means ingestion
// is complete and carries the first generated token. A non-nil inflight run
// resumes a step whose begin call already succeeded.
func (p *PhaseController) PromptStep(ctx context.Context, s types.Session, inflight *types.Run) (StepResult, error) {
	out := StepResult{Session: s, Inflight: inflight}
	if inflight == nil {
		var (
			run  *types.Run
			next types.Session
		)
		err := p.calls.do(ctx, types.OpBeginPrompt, s.ID, func(ctx context.Context) error {
			var err error
			run, next, err = p.calls.backend.BeginPrompt(ctx, s.WithCache(ledger.Strip(s.Cache)), p.iterative)
			return err
		})
		if err != nil {
			return out, err
		}
		if run == nil {
			if !next.PromptExhausted() {
				return out, violation(types.OpBeginPrompt, "no run returned with prompt cursor at %d of %d", next.PromptCursor, len(next.Prompt))
			}
			// The prompt was consumed by an earlier step; nothing left to
			// ingest and no text to report.
			out.Session = adopt(next, s.Cache)
			out.Text = types.TextPtr("")
			return out, nil
		}
		if run.Phase != types.PhasePrompt {
			return out, violation(types.OpBeginPrompt, "begin returned a %s run", run.Phase)
		}
		out.Session = adopt(next, s.Cache)
		out.Inflight = run
	}

	d, err := p.driver.Drive(ctx, *out.Inflight, out.Session, p.promptChunk)
	out.SubCalls = d.SubCalls
	out.Session = d.Session
	out.Inflight = &d.Run
	if err != nil {
		return out, err
	}

	var res types.PhaseResult
	err = p.calls.do(ctx, types.OpEndPrompt, s.ID, func(ctx context.Context) error {
		var err error
		res, err = p.calls.backend.EndPrompt(ctx, d.Run, d.Session.WithCache(ledger.Strip(d.Session.Cache)))
		return err
	})
	if err != nil {
		return out, err
	}
	out.Session = adopt(res.Session, d.Session.Cache)
	out.Inflight = nil
	out.Text = res.Text

	p.log.Info().
		Str("session", s.ID).
		Int("cursor", out.Session.PromptCursor).
		Int("total", len(out.Session.Prompt)).
		Int("sub_calls", d.SubCalls).
		Msg("prompt ingested")
	p.events.Publish(Event{Name: EventPromptStep, SessionID: s.ID, Fields: map[string]any{
		"cursor":    out.Session.PromptCursor,
		"total":     len(out.Session.Prompt),
		"sub_calls": d.SubCalls,
		"done":      res.Text != nil,
	}})
	return out, nil
}

// DecodeStep produces at most one token. Begin and end are sent without a
// cache: a decode run starts at layer 0 and the full cache is rebuilt from
// merges and sent windowed while the run advances.
func (p *PhaseController) DecodeStep(ctx context.Context, s types.Session, inflight *types.Run) (StepResult, error) {
	out := StepResult{Session: s, Inflight: inflight}
	if inflight == nil {
		var run types.Run
		err := p.calls.do(ctx, types.OpBeginDecode, s.ID, func(ctx context.Context) error {
			var err error
			run, err = p.calls.backend.BeginDecode(ctx, s.WithCache(ledger.Strip(s.Cache)))
			return err
		})
		if err != nil {
			return out, err
		}
		if run.Phase != types.PhaseDecode {
			return out, violation(types.OpBeginDecode, "begin returned a %s run", run.Phase)
		}
		out.Inflight = &run
	}

	d, err := p.driver.Drive(ctx, *out.Inflight, out.Session, p.decodeChunk)
	out.SubCalls = d.SubCalls
	out.Session = d.Session
	out.Inflight = &d.Run
	if err != nil {
		return out, err
	}

	var res types.PhaseResult
	err = p.calls.do(ctx, types.OpEndDecode, s.ID, func(ctx context.Context) error {
		var err error
		res, err = p.calls.backend.EndDecode(ctx, d.Run, d.Session.WithCache(ledger.Strip(d.Session.Cache)))
		return err
	})
	if err != nil {
		return out, err
	}
	out.Session = adopt(res.Session, d.Session.Cache)
	out.Inflight = nil
	out.Text = res.Text
	out.EndOfSequence = res.EndOfSequence

	p.log.Debug().
		Str("session", s.ID).
		Int("sub_calls", d.SubCalls).
		Bool("eos", res.EndOfSequence).
		Msg("decode step")
	p.events.Publish(Event{Name: EventDecodeStep, SessionID: s.ID, Fields: map[string]any{
		"sub_calls": d.SubCalls,
		"eos":       res.EndOfSequence,
	}})
	return out, nil
}
