package orchestrator

import (
	"fmt"

	"chunkgen/pkg/types"
)

// Stage names the phase a checkpointed generation was in.
type Stage string

const (
	StagePrompt Stage = "prompt"
	StageDecode Stage = "decode"
)

// Checkpoint is a consistent snapshot of a generation between two remote
// calls. Both the run's progress and the session's cache describe the
// resumption point, so reissuing the next call from here is safe.
type Checkpoint struct {
	Stage   Stage         `json:"stage" cbor:"stage"`
	Session types.Session `json:"session" cbor:"session"`
	// Run is the in-flight run of the current phase step. Nil when the
	// step has not begun yet.
	Run *types.Run `json:"run,omitempty" cbor:"run,omitempty"`
	// Text emitted by completed phase steps.
	Text     string `json:"text" cbor:"text"`
	Steps    int    `json:"steps" cbor:"steps"`
	SubCalls int    `json:"sub_calls" cbor:"sub_calls"`
}

// Validate checks that cp can be resumed.
func (cp Checkpoint) Validate() error {
	switch cp.Stage {
	case StagePrompt, StageDecode:
	default:
		return fmt.Errorf("checkpoint: unknown stage %q", cp.Stage)
	}
	if len(cp.Session.Prompt) == 0 {
		return fmt.Errorf("checkpoint: session has no prompt")
	}
	if cp.Run != nil {
		want := types.PhasePrompt
		if cp.Stage == StageDecode {
			want = types.PhaseDecode
		}
		if cp.Run.Phase != want {
			return fmt.Errorf("checkpoint: %s run in %s stage", cp.Run.Phase, cp.Stage)
		}
	}
	if cp.Steps < 0 || cp.SubCalls < 0 {
		return fmt.Errorf("checkpoint: negative counters")
	}
	return nil
}
