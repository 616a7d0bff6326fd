package simulator

import (
	"errors"
	"fmt"
	"net/http"

	"chunkgen/pkg/types"
)

// Error is returned by every Engine operation that rejects its input. It
// carries the HTTP status the API layer should answer with.
type Error struct {
	Kind types.ErrorKind
	Msg  string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Msg }

// StatusCode maps the error class onto an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case types.KindBudgetExceeded:
		return http.StatusUnprocessableEntity
	case types.KindCacheMismatch, types.KindInvalidState:
		return http.StatusConflict
	case types.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKind returns the error class.
func (e *Error) ErrorKind() types.ErrorKind { return e.Kind }

func errorf(kind types.ErrorKind, format string, a ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

// KindOf returns the class of err, or KindInternal for foreign errors.
func KindOf(err error) types.ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return types.KindInternal
}

// IsBudgetExceeded reports whether err rejected a call for asking more than
// the per-call layer budget.
func IsBudgetExceeded(err error) bool { return KindOf(err) == types.KindBudgetExceeded }

// IsCacheMismatch reports whether err rejected a call whose cache window was
// missing, stale or wider than the computed layers.
func IsCacheMismatch(err error) bool { return KindOf(err) == types.KindCacheMismatch }
