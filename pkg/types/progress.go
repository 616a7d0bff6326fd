package types

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	json "github.com/goccy/go-json"
)

// ProgressState is the tag of a Progress value.
type ProgressState string

const (
	StateNotStarted ProgressState = "not_started"
	StateAtLayer    ProgressState = "at_layer"
	StateDone       ProgressState = "done"
)

// Progress is the marker the remote service attaches to a Run. It is a closed
// variant: NotStarted, AtLayer(k) where k is the next layer to compute, or Done.
// The zero value is NotStarted.
type Progress struct {
	state ProgressState
	layer int
}

func NotStarted() Progress { return Progress{state: StateNotStarted} }

// AtLayer panics on a negative layer; decoded values are validated instead.
func AtLayer(k int) Progress {
	if k < 0 {
		panic(fmt.Sprintf("types: negative layer %d", k))
	}
	return Progress{state: StateAtLayer, layer: k}
}

func Done() Progress { return Progress{state: StateDone} }

// State returns the variant tag.
func (p Progress) State() ProgressState {
	if p.state == "" {
		return StateNotStarted
	}
	return p.state
}

// Layer returns k for AtLayer(k). ok is false for the other variants.
func (p Progress) Layer() (k int, ok bool) {
	if p.State() != StateAtLayer {
		return 0, false
	}
	return p.layer, true
}

func (p Progress) String() string {
	if k, ok := p.Layer(); ok {
		return fmt.Sprintf("at_layer(%d)", k)
	}
	return string(p.State())
}

type progressWire struct {
	State ProgressState `json:"state" cbor:"state"`
	Layer *int          `json:"layer,omitempty" cbor:"layer,omitempty"`
}

func (p Progress) wire() progressWire {
	w := progressWire{State: p.State()}
	if k, ok := p.Layer(); ok {
		w.Layer = &k
	}
	return w
}

func (p *Progress) fromWire(w progressWire) error {
	switch w.State {
	case StateNotStarted:
		*p = NotStarted()
	case StateDone:
		*p = Done()
	case StateAtLayer:
		if w.Layer == nil {
			return fmt.Errorf("progress %q without layer", w.State)
		}
		if *w.Layer < 0 {
			return fmt.Errorf("progress %q with negative layer %d", w.State, *w.Layer)
		}
		*p = AtLayer(*w.Layer)
	default:
		return fmt.Errorf("unknown progress state %q", w.State)
	}
	return nil
}

func (p Progress) MarshalJSON() ([]byte, error) { return json.Marshal(p.wire()) }

func (p *Progress) UnmarshalJSON(b []byte) error {
	var w progressWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	return p.fromWire(w)
}

func (p Progress) MarshalCBOR() ([]byte, error) { return cbor.Marshal(p.wire()) }

func (p *Progress) UnmarshalCBOR(b []byte) error {
	var w progressWire
	if err := cbor.Unmarshal(b, &w); err != nil {
		return err
	}
	return p.fromWire(w)
}
