package httpapi

import (
	"context"
	"errors"
	"net/http"

	"chunkgen/internal/wire"
	"chunkgen/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// KindedError additionally classifies the error for machine consumption.
type KindedError interface {
	HTTPError
	ErrorKind() types.ErrorKind
}

// classify maps a service error onto a status and error kind.
func classify(err error) (int, types.ErrorKind) {
	var ke KindedError
	if errors.As(err, &ke) {
		return ke.StatusCode(), ke.ErrorKind()
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode(), types.KindInternal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, types.KindInternal
	}
	return http.StatusInternalServerError, types.KindInternal
}

// writeError writes a consistent error payload in the request's encoding.
func writeError(w http.ResponseWriter, codec wire.Codec, status int, kind types.ErrorKind, msg string) {
	b, err := codec.Marshal(types.ErrorResponse{Error: msg, Code: status, Kind: kind})
	if err != nil {
		http.Error(w, msg, status)
		return
	}
	w.Header().Set("Content-Type", codec.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
