package orchestrator

import (
	"context"

	"chunkgen/pkg/types"
)

// Backend is the remote compute service. Every session value passed in or
// returned is a full serialization of the generation state; the service keeps
// nothing between calls.
//
// Both the HTTP client in internal/remote and the in-process simulator
// satisfy it.
type Backend interface {
	StartPrompt(ctx context.Context, text, sessionID string) (types.Session, error)
	// BeginPrompt returns a nil run when nothing remains to ingest.
	BeginPrompt(ctx context.Context, s types.Session, iterative bool) (*types.Run, types.Session, error)
	BeginDecode(ctx context.Context, s types.Session) (types.Run, error)
	// Advance computes at most n layers. Its cost is proportional to n, not
	// to the model depth.
	Advance(ctx context.Context, n int, run types.Run, s types.Session) (types.ChunkResult, error)
	EndPrompt(ctx context.Context, run types.Run, s types.Session) (types.PhaseResult, error)
	EndDecode(ctx context.Context, run types.Run, s types.Session) (types.PhaseResult, error)
}
