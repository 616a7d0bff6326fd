package ledger

import (
	"errors"
	"math/rand"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chunkgen/pkg/types"
)

func kv(v float32) types.KVPair {
	return types.KVPair{
		Key:   types.F32Tensor([]float32{v}),
		Value: types.F32Tensor([]float32{-v}),
	}
}

// randomCache builds a sparse cache over layers [0, maxLayer).
func randomCache(r *rand.Rand, maxLayer int) types.Cache {
	c := types.Cache{}
	for layer := 0; layer < maxLayer; layer++ {
		if r.Intn(3) > 0 {
			c[layer] = kv(float32(r.Intn(1000)))
		}
	}
	return c
}

func TestMergeIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		c := randomCache(r, 16)
		if diff := cmp.Diff(c, Merge(c, c)); diff != "" {
			t.Fatalf("merge(c, c) != c (-want +got):\n%s", diff)
		}
	}
}

func TestMergeOverrideLaw(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		base := randomCache(r, 16)
		update := randomCache(r, 16)
		merged := Merge(base, update)
		for layer, want := range update {
			if diff := cmp.Diff(want, merged[layer]); diff != "" {
				t.Fatalf("layer %d: update must win (-want +got):\n%s", layer, diff)
			}
		}
		for layer, want := range base {
			if _, inUpdate := update[layer]; inUpdate {
				continue
			}
			if diff := cmp.Diff(want, merged[layer]); diff != "" {
				t.Fatalf("layer %d: base-only entry changed (-want +got):\n%s", layer, diff)
			}
		}
		if len(merged) < len(base) {
			t.Fatalf("merge dropped entries: base=%d merged=%d", len(base), len(merged))
		}
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	base := types.Cache{0: kv(1)}
	update := types.Cache{1: kv(2)}
	merged := Merge(base, update)
	merged[0].Key.F32[0] = 100
	merged[1].Key.F32[0] = 200
	if base[0].Key.F32[0] != 1 || update[1].Key.F32[0] != 2 {
		t.Fatalf("merge result shares storage with its inputs")
	}
	if merged := Merge(nil, nil); merged == nil || len(merged) != 0 {
		t.Fatalf("merge of nil caches = %v", merged)
	}
}

func TestWindowContainment(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		c := randomCache(r, 24)
		k := r.Intn(24)
		n := 1 + r.Intn(8)
		w := Window(c, types.Run{Progress: types.AtLayer(k)}, n)
		for layer := range w {
			if layer < k || layer >= k+n {
				t.Fatalf("window(AtLayer(%d), %d) contains layer %d", k, n, layer)
			}
		}
		for layer := k; layer < k+n; layer++ {
			if _, ok := c[layer]; ok {
				if _, ok := w[layer]; !ok {
					t.Fatalf("window(AtLayer(%d), %d) dropped layer %d", k, n, layer)
				}
			}
		}
		if err := CheckWindow(w, k, n); err != nil {
			t.Fatalf("check window: %v", err)
		}
	}
}

func TestWindowWithoutLayerCursorIsEmpty(t *testing.T) {
	c := types.Cache{0: kv(1), 1: kv(2)}
	for _, p := range []types.Progress{types.NotStarted(), types.Done()} {
		if w := Window(c, types.Run{Progress: p}, 4); len(w) != 0 {
			t.Fatalf("window for %v = %v", p, w.Layers())
		}
	}
}

func TestWindowCopiesEntries(t *testing.T) {
	c := types.Cache{2: kv(5)}
	w := Window(c, types.Run{Progress: types.AtLayer(2)}, 1)
	w[2].Value.F32[0] = 42
	if c[2].Value.F32[0] != -5 {
		t.Fatalf("window aliases canonical cache")
	}
}

// A wide chunk over a sparse cache allocates for the entries kept, not for n.
func TestWindowSizedByEntries(t *testing.T) {
	c := types.Cache{3: kv(1), 4: kv(2)}
	run := types.Run{Progress: types.AtLayer(3)}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	w := Window(c, run, 1<<20)
	runtime.ReadMemStats(&after)

	if len(w) != 2 {
		t.Fatalf("window layers %v", w.Layers())
	}
	if grew := after.TotalAlloc - before.TotalAlloc; grew > 1<<20 {
		t.Fatalf("window allocated %d bytes for 2 entries", grew)
	}
}

func TestStrip(t *testing.T) {
	if got := Strip(types.Cache{0: kv(1)}); got == nil || len(got) != 0 {
		t.Fatalf("strip = %v", got)
	}
}

func TestCheckWindowReportsLowestOffender(t *testing.T) {
	err := CheckWindow(types.Cache{9: kv(1), 3: kv(2), 5: kv(3)}, 4, 2)
	var mce *MalformedCacheError
	if !errors.As(err, &mce) {
		t.Fatalf("expected MalformedCacheError, got %v", err)
	}
	if mce.Layer != 3 || mce.Floor != 4 || mce.Size != 2 {
		t.Fatalf("unexpected error: %+v", mce)
	}
}
