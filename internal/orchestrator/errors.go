package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"chunkgen/internal/ledger"
	"chunkgen/pkg/types"
)

// ProtocolViolationError signals a response that contradicts the protocol.
// The client and the service have desynchronized, so it is never retried.
type ProtocolViolationError struct {
	Op     types.Op
	Reason string
	Err    error
}

func (e *ProtocolViolationError) Error() string {
	msg := "protocol violation in " + string(e.Op) + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolViolationError) Unwrap() error { return e.Err }

func violation(op types.Op, format string, a ...any) error {
	return &ProtocolViolationError{Op: op, Reason: fmt.Sprintf(format, a...)}
}

// IsProtocolViolation reports whether err indicates a desynchronized service.
func IsProtocolViolation(err error) bool {
	var pv *ProtocolViolationError
	return errors.As(err, &pv)
}

// IsMalformedCache reports whether err was caused by a returned cache entry
// outside the window of the call.
func IsMalformedCache(err error) bool {
	var mc *ledger.MalformedCacheError
	return errors.As(err, &mc)
}

// RemoteCallError wraps a transport, budget or service failure of one remote
// call. Checkpoint, when set, is the last consistent state and can be handed
// to Resume to reissue the failed call.
type RemoteCallError struct {
	Op         types.Op
	Checkpoint *Checkpoint
	Err        error
}

func (e *RemoteCallError) Error() string { return "remote " + string(e.Op) + ": " + e.Err.Error() }

func (e *RemoteCallError) Unwrap() error { return e.Err }

// IsRemoteCallFailure reports whether err is a failed remote call.
func IsRemoteCallFailure(err error) bool {
	var rc *RemoteCallError
	return errors.As(err, &rc)
}

// InterruptedError is returned when the context ended between two remote
// calls. The generation stopped in a resumable state.
type InterruptedError struct {
	Checkpoint *Checkpoint
	Err        error
}

func (e *InterruptedError) Error() string { return "generation interrupted: " + e.Err.Error() }

func (e *InterruptedError) Unwrap() error { return e.Err }

// CheckpointOf extracts the resumable state carried by err, if any.
func CheckpointOf(err error) (*Checkpoint, bool) {
	var rc *RemoteCallError
	if errors.As(err, &rc) && rc.Checkpoint != nil {
		return rc.Checkpoint, true
	}
	var ie *InterruptedError
	if errors.As(err, &ie) && ie.Checkpoint != nil {
		return ie.Checkpoint, true
	}
	return nil, false
}

// attach decorates err with cp when the failure is resumable.
func attach(err error, cp Checkpoint) error {
	var rc *RemoteCallError
	if errors.As(err, &rc) {
		rc.Checkpoint = &cp
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &InterruptedError{Checkpoint: &cp, Err: err}
	}
	return err
}
