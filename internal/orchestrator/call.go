package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"chunkgen/pkg/types"
)

// caller issues remote calls. The context is consulted before the call and
// detached for its duration: a call that started always runs to completion,
// so the state it returns is never lost.
type caller struct {
	backend Backend
	log     zerolog.Logger
}

func (c *caller) do(ctx context.Context, op types.Op, sessionID string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn(context.WithoutCancel(ctx))
	observeCall(op, time.Since(start), err)
	if err != nil {
		c.log.Debug().Str("op", string(op)).Str("session", sessionID).Err(err).Msg("remote call failed")
		return &RemoteCallError{Op: op, Err: err}
	}
	c.log.Trace().Str("op", string(op)).Str("session", sessionID).Dur("took", time.Since(start)).Msg("remote call")
	return nil
}
