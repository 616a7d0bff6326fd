package wire

import (
	"testing"

	"chunkgen/pkg/types"
)

func TestByName(t *testing.T) {
	if c, err := ByName(""); err != nil || c.Name() != "json" {
		t.Fatalf("default codec: %v %v", c, err)
	}
	if c, err := ByName(" CBOR "); err != nil || c.Name() != "cbor" {
		t.Fatalf("cbor codec: %v %v", c, err)
	}
	if _, err := ByName("msgpack"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}

func TestForContentType(t *testing.T) {
	if c, ok := ForContentType("application/json; charset=utf-8"); !ok || c != JSON {
		t.Fatalf("json with params not recognized")
	}
	if c, ok := ForContentType("application/cbor"); !ok || c != CBOR {
		t.Fatalf("cbor not recognized")
	}
	if _, ok := ForContentType("text/plain"); ok {
		t.Fatalf("text/plain must not resolve")
	}
	if _, ok := ForContentType(""); ok {
		t.Fatalf("empty content type must not resolve")
	}
}

// Sessions must survive both encodings with cache keys and progress intact.
func TestSessionSurvivesBothCodecs(t *testing.T) {
	in := types.ChunkResult{
		Completed: false,
		Run:       types.Run{Phase: types.PhaseDecode, Progress: types.AtLayer(5), IndexPos: 9, Tokens: []uint32{72}},
		Session: types.Session{
			ID:           "s1",
			Prompt:       []uint32{72, 105},
			PromptCursor: 2,
			Cache: types.Cache{
				5: {Key: types.F32Tensor([]float32{1.5, -2}), Value: types.F32Tensor([]float32{0.25, 8})},
				6: {Key: types.Tensor{DType: types.DTypeU8, Shape: []int{2}, U8: []byte{1, 2}}},
			},
		},
	}
	for _, c := range []Codec{JSON, CBOR} {
		b, err := c.Marshal(in)
		if err != nil {
			t.Fatalf("%s marshal: %v", c.Name(), err)
		}
		var out types.ChunkResult
		if err := c.Unmarshal(b, &out); err != nil {
			t.Fatalf("%s unmarshal: %v", c.Name(), err)
		}
		if out.Run.Progress != in.Run.Progress {
			t.Fatalf("%s progress: got %v", c.Name(), out.Run.Progress)
		}
		if len(out.Session.Cache) != 2 {
			t.Fatalf("%s cache layers: %v", c.Name(), out.Session.Cache.Layers())
		}
		for layer, want := range in.Session.Cache {
			got := out.Session.Cache[layer]
			if !got.Key.Equal(want.Key) || !got.Value.Equal(want.Value) {
				t.Fatalf("%s layer %d: got %+v want %+v", c.Name(), layer, got, want)
			}
		}
	}
}
