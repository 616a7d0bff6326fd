package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"chunkgen/pkg/types"
)

// Result is the outcome of a generation.
type Result struct {
	Text string
	// Decode steps performed, including the one that reported end of sequence.
	Steps int
	// Advance calls issued across all phase steps.
	SubCalls int
	// False when the decode cap stopped generation.
	EndOfSequence bool
	Session       types.Session
}

// Generate runs prompt ingestion until the first token is produced, then
// decode steps until end of sequence or the decode cap. onToken, when not
// nil, receives each fragment once its phase step completed; an error from
// it stops generation.
//
// Failures of remote calls come back as *RemoteCallError and cancellation
// as *InterruptedError; both carry a Checkpoint for Resume.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, onToken func(string) error) (Result, error) {
	id := uuid.NewString()
	var s types.Session
	err := o.calls.do(ctx, types.OpStartPrompt, id, func(ctx context.Context) error {
		var err error
		s, err = o.calls.backend.StartPrompt(ctx, prompt, id)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	if s.ID == "" {
		s.ID = id
	}
	o.log.Debug().Str("session", s.ID).Int("prompt_tokens", len(s.Prompt)).Msg("session started")
	return o.run(ctx, Checkpoint{Stage: StagePrompt, Session: s}, onToken)
}

// Resume continues a generation from cp. Text already in cp is part of the
// result but is not passed to onToken again.
func (o *Orchestrator) Resume(ctx context.Context, cp Checkpoint, onToken func(string) error) (Result, error) {
	if err := cp.Validate(); err != nil {
		return Result{}, err
	}
	o.log.Info().
		Str("session", cp.Session.ID).
		Str("stage", string(cp.Stage)).
		Bool("inflight", cp.Run != nil).
		Msg("resuming generation")
	return o.run(ctx, cp, onToken)
}

func (o *Orchestrator) run(ctx context.Context, cp Checkpoint, onToken func(string) error) (Result, error) {
	var text strings.Builder
	text.WriteString(cp.Text)
	result := func(eos bool) Result {
		return Result{Text: text.String(), Steps: cp.Steps, SubCalls: cp.SubCalls, EndOfSequence: eos, Session: cp.Session}
	}
	emit := func(frag string) error {
		text.WriteString(frag)
		cp.Text = text.String()
		fragmentsTotal.Inc()
		if onToken != nil {
			if err := onToken(frag); err != nil {
				return fmt.Errorf("token callback: %w", err)
			}
		}
		return nil
	}
	fail := func(err error) (Result, error) {
		o.events.Publish(Event{Name: EventInterrupted, SessionID: cp.Session.ID, Fields: map[string]any{
			"stage": string(cp.Stage),
			"error": err.Error(),
		}})
		return result(false), attach(err, cp)
	}

	for cp.Stage == StagePrompt {
		// A fresh step must finish the prompt or move its cursor, either on
		// begin or on end.
		cursor, fresh := cp.Session.PromptCursor, cp.Run == nil
		step, err := o.phases.PromptStep(ctx, cp.Session, cp.Run)
		cp.Session, cp.Run = step.Session, step.Inflight
		cp.SubCalls += step.SubCalls
		if err != nil {
			return fail(err)
		}
		frag, ok := emitted(step.Text)
		if !ok {
			if fresh && cp.Session.PromptCursor <= cursor {
				return fail(violation(types.OpEndPrompt, "prompt cursor stalled at %d", cursor))
			}
			continue
		}
		cp.Stage = StageDecode
		if err := emit(frag); err != nil {
			return result(false), err
		}
	}

	for cp.Steps < o.maxDecodeSteps {
		step, err := o.phases.DecodeStep(ctx, cp.Session, cp.Run)
		cp.Session, cp.Run = step.Session, step.Inflight
		cp.SubCalls += step.SubCalls
		if err != nil {
			return fail(err)
		}
		cp.Steps++
		if frag, ok := emitted(step.Text); ok {
			if err := emit(frag); err != nil {
				return result(false), err
			}
		}
		if step.EndOfSequence {
			o.finished(cp, true)
			return result(true), nil
		}
	}
	o.log.Warn().Str("session", cp.Session.ID).Int("steps", cp.Steps).Msg("decode cap reached")
	o.finished(cp, false)
	return result(false), nil
}

func (o *Orchestrator) finished(cp Checkpoint, eos bool) {
	o.events.Publish(Event{Name: EventGenerated, SessionID: cp.Session.ID, Fields: map[string]any{
		"steps":     cp.Steps,
		"sub_calls": cp.SubCalls,
		"eos":       eos,
	}})
}

func emitted(text *string) (string, bool) {
	if text == nil {
		return "", false
	}
	return *text, true
}

// GenerateAll runs independent generations concurrently, at most parallelism
// at a time (unbounded when parallelism <= 0). Results are in prompt order.
// The first failure cancels the generations still running; they stop at
// their next call boundary.
func (o *Orchestrator) GenerateAll(ctx context.Context, prompts []string, parallelism int) ([]Result, error) {
	results := make([]Result, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, prompt := range prompts {
		i, prompt := i, prompt
		g.Go(func() error {
			res, err := o.Generate(gctx, prompt, nil)
			results[i] = res
			if err != nil {
				return fmt.Errorf("prompt %d: %w", i, err)
			}
			return nil
		})
	}
	return results, g.Wait()
}
