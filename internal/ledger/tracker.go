package ledger

import (
	"fmt"

	"chunkgen/pkg/types"
)

// IsComplete reports whether the run's forward pass has finished.
func IsComplete(run types.Run) bool {
	return run.Progress.State() == types.StateDone
}

// NextWindowFloor returns the first layer the next advance call will compute.
// fromStart is true when the run has no layer cursor yet (or none any more),
// in which case there is no cache window to reuse.
func NextWindowFloor(run types.Run) (layer int, fromStart bool) {
	switch run.Progress.State() {
	case types.StateAtLayer:
		k, _ := run.Progress.Layer()
		return k, false
	case types.StateNotStarted, types.StateDone:
		return 0, true
	default:
		panic(fmt.Sprintf("ledger: unhandled progress %v", run.Progress))
	}
}

// Advanced reports whether next is strictly further along than prev.
func Advanced(prev, next types.Progress) bool {
	return rank(next) > rank(prev)
}

func rank(p types.Progress) int {
	switch p.State() {
	case types.StateNotStarted:
		return 0
	case types.StateAtLayer:
		k, _ := p.Layer()
		return k + 1
	case types.StateDone:
		return int(^uint(0) >> 1)
	default:
		panic(fmt.Sprintf("ledger: unhandled progress %v", p))
	}
}
