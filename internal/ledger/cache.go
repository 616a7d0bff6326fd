// Package ledger holds the pure data operations the client performs on the
// attention cache between remote calls, and the interpretation of the run
// progress marker that drives them.
package ledger

import (
	"fmt"

	"chunkgen/pkg/types"
)

// Window returns the slice of cache needed by the next advance call of run
// when it computes at most n layers. For AtLayer(k) that is every entry with a
// layer in [k, k+n); for any other progress there is nothing to reuse.
// The result never shares storage with cache.
func Window(cache types.Cache, run types.Run, n int) types.Cache {
	floor, fromStart := NextWindowFloor(run)
	if fromStart || n <= 0 {
		return types.Cache{}
	}
	out := make(types.Cache, min(n, len(cache)))
	for layer, kv := range cache {
		if layer >= floor && layer < floor+n {
			out[layer] = kv.Clone()
		}
	}
	return out
}

// Strip returns an empty cache regardless of the input.
func Strip(types.Cache) types.Cache { return types.Cache{} }

// Merge folds update into base and returns the result as a new cache. Entries
// in update win; entries only in base are kept. Neither input is modified.
func Merge(base, update types.Cache) types.Cache {
	out := make(types.Cache, len(base)+len(update))
	for layer, kv := range base {
		out[layer] = kv.Clone()
	}
	for layer, kv := range update {
		out[layer] = kv.Clone()
	}
	return out
}

// MalformedCacheError reports a cache entry outside the window a call was
// allowed to touch.
type MalformedCacheError struct {
	Layer int
	Floor int
	Size  int
}

func (e *MalformedCacheError) Error() string {
	return fmt.Sprintf("cache layer %d outside window [%d, %d)", e.Layer, e.Floor, e.Floor+e.Size)
}

// CheckWindow verifies every layer of cache lies in [floor, floor+n).
// The lowest offending layer is reported.
func CheckWindow(cache types.Cache, floor, n int) error {
	for _, layer := range cache.Layers() {
		if layer < floor || layer >= floor+n {
			return &MalformedCacheError{Layer: layer, Floor: floor, Size: n}
		}
	}
	return nil
}
