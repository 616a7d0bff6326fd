package types

import (
	"slices"
	"sort"
)

// DType names the element type of a Tensor payload.
type DType string

const (
	DTypeF32 DType = "f32"
	DTypeU8  DType = "u8"
)

// Tensor is an opaque blob produced by the remote service. The client never
// interprets the numbers; it only stores, windows and forwards them.
type Tensor struct {
	DType DType     `json:"dtype" cbor:"dtype"`
	Shape []int     `json:"shape" cbor:"shape"`
	F32   []float32 `json:"f32,omitempty" cbor:"f32,omitempty"`
	U8    []byte    `json:"u8,omitempty" cbor:"u8,omitempty"`
}

// F32Tensor builds a float tensor. A missing shape defaults to a flat vector.
func F32Tensor(data []float32, shape ...int) Tensor {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	return Tensor{DType: DTypeF32, Shape: shape, F32: data}
}

// Len returns the number of elements stored in the tensor.
func (t Tensor) Len() int {
	if t.DType == DTypeU8 {
		return len(t.U8)
	}
	return len(t.F32)
}

// Clone returns a tensor that shares no storage with t.
func (t Tensor) Clone() Tensor {
	return Tensor{
		DType: t.DType,
		Shape: slices.Clone(t.Shape),
		F32:   slices.Clone(t.F32),
		U8:    slices.Clone(t.U8),
	}
}

// Equal reports whether both tensors hold the same type, shape and data.
func (t Tensor) Equal(o Tensor) bool {
	return t.DType == o.DType &&
		slices.Equal(t.Shape, o.Shape) &&
		slices.Equal(t.F32, o.F32) &&
		slices.Equal(t.U8, o.U8)
}

// KVPair is the attention key/value pair computed for one layer.
type KVPair struct {
	Key   Tensor `json:"key" cbor:"key"`
	Value Tensor `json:"value" cbor:"value"`
}

func (kv KVPair) Clone() KVPair {
	return KVPair{Key: kv.Key.Clone(), Value: kv.Value.Clone()}
}

// Cache maps a layer index to its attention cache. It may be sparse while a
// phase step is in flight and covers every layer once a step has finished.
type Cache map[int]KVPair

// Layers returns the layer indices present in c in ascending order.
func (c Cache) Layers() []int {
	out := make([]int, 0, len(c))
	for layer := range c {
		out = append(out, layer)
	}
	sort.Ints(out)
	return out
}

// Clone deep-copies c. A nil cache clones to an empty, non-nil one.
func (c Cache) Clone() Cache {
	out := make(Cache, len(c))
	for layer, kv := range c {
		out[layer] = kv.Clone()
	}
	return out
}

// Session is the durable generation state. It is owned by the client between
// calls; the remote service never keeps a copy.
type Session struct {
	// Client-assigned identifier, echoed by the service. Used for logs only.
	ID string `json:"id,omitempty" cbor:"id,omitempty"`
	// Prompt token ids, fixed once the session was started.
	Prompt []uint32 `json:"prompt" cbor:"prompt"`
	// Number of prompt tokens already folded into the cache.
	PromptCursor int `json:"prompt_cursor" cbor:"prompt_cursor"`
	// Generated token ids.
	Output []uint32 `json:"output,omitempty" cbor:"output,omitempty"`
	// Number of output tokens whose text has already been emitted.
	OutputCursor int   `json:"output_cursor" cbor:"output_cursor"`
	Cache        Cache `json:"cache,omitempty" cbor:"cache,omitempty"`
}

// PromptExhausted reports whether every prompt token has been ingested.
func (s Session) PromptExhausted() bool { return s.PromptCursor >= len(s.Prompt) }

// WithCache returns a copy of s carrying c as its cache.
func (s Session) WithCache(c Cache) Session {
	s.Cache = c
	return s
}

// Phase names the kind of work a Run performs.
type Phase string

const (
	PhasePrompt Phase = "prompt"
	PhaseDecode Phase = "decode"
)

// Run is a handle to one in-progress forward pass. Everything but Progress is
// opaque to the client.
type Run struct {
	Phase    Phase    `json:"phase" cbor:"phase"`
	Progress Progress `json:"progress" cbor:"progress"`
	// Position of the first token processed by this run.
	IndexPos int      `json:"index_pos" cbor:"index_pos"`
	Tokens   []uint32 `json:"tokens" cbor:"tokens"`
	Hidden   Tensor   `json:"hidden" cbor:"hidden"`
}

// ChunkResult is returned by one bounded advance call.
type ChunkResult struct {
	Completed bool    `json:"completed" cbor:"completed"`
	Run       Run     `json:"run" cbor:"run"`
	Session   Session `json:"session" cbor:"session"`
}

// PhaseResult is returned by the call that ends a phase step.
type PhaseResult struct {
	// Nil when the step produced no text.
	Text          *string `json:"text,omitempty" cbor:"text,omitempty"`
	EndOfSequence bool    `json:"end_of_sequence" cbor:"end_of_sequence"`
	Session       Session `json:"session" cbor:"session"`
}

// Emitted returns the emitted text and whether any was present.
func (r PhaseResult) Emitted() (string, bool) {
	if r.Text == nil {
		return "", false
	}
	return *r.Text, true
}

// TextPtr is a convenience for building PhaseResult literals.
func TextPtr(s string) *string { return &s }
