// Package httpapi exposes a compute service over HTTP. Every operation is a
// POST whose body is encoded as JSON or CBOR, chosen by Content-Type; the
// response uses the same encoding.
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chunkgen/internal/wire"
	"chunkgen/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	StartPrompt(ctx context.Context, text, sessionID string) (types.Session, error)
	BeginPrompt(ctx context.Context, s types.Session, iterative bool) (*types.Run, types.Session, error)
	BeginDecode(ctx context.Context, s types.Session) (types.Run, error)
	Advance(ctx context.Context, n int, run types.Run, s types.Session) (types.ChunkResult, error)
	EndPrompt(ctx context.Context, run types.Run, s types.Session) (types.PhaseResult, error)
	EndDecode(ctx context.Context, run types.Run, s types.Session) (types.PhaseResult, error)
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Compress(5, wire.ContentTypeJSON, wire.ContentTypeCBOR, "text/plain"))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				w.Header().Set(middleware.RequestIDHeader, rid)
			}
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}))
	}

	a := api{svc: svc}
	r.Route("/v1", func(r chi.Router) {
		r.Use(requireAPIKey)
		r.Post("/prompt/start", a.startPrompt())
		r.Post("/prompt/begin", a.beginPrompt())
		r.Post("/decode/begin", a.beginDecode())
		r.Post("/advance", a.advance())
		r.Post("/prompt/end", a.endPrompt())
		r.Post("/decode/end", a.endDecode())
		r.Get("/status", a.status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

// api binds the operations of a Service to handlers.
type api struct{ svc Service }

// @Summary      Start a session
// @Description  Tokenizes free text into a fresh session.
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        request  body      types.StartPromptRequest  true  "Prompt"
// @Success      200      {object}  types.Session
// @Failure      400      {object}  types.ErrorResponse
// @Router       /v1/prompt/start [post]
func (a api) startPrompt() http.HandlerFunc {
	return endpoint(types.OpStartPrompt, func(ctx context.Context, req types.StartPromptRequest) (types.Session, error) {
		return a.svc.StartPrompt(ctx, req.Text, req.SessionID)
	})
}

// @Summary      Begin a prompt-ingestion step
// @Description  Starts ingesting the next prompt slice. The run is absent once the prompt is exhausted.
// @Tags         prompt
// @Accept       json
// @Produce      json
// @Param        request  body      types.BeginPromptRequest  true  "Session with stripped cache"
// @Success      200      {object}  types.BeginPromptResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      409      {object}  types.ErrorResponse
// @Router       /v1/prompt/begin [post]
func (a api) beginPrompt() http.HandlerFunc {
	return endpoint(types.OpBeginPrompt, func(ctx context.Context, req types.BeginPromptRequest) (types.BeginPromptResponse, error) {
		run, s, err := a.svc.BeginPrompt(ctx, req.Session, req.Iterative)
		return types.BeginPromptResponse{Run: run, Session: s}, err
	})
}

// @Summary      Begin a decode step
// @Tags         decode
// @Accept       json
// @Produce      json
// @Param        request  body      types.BeginDecodeRequest  true  "Session with stripped cache"
// @Success      200      {object}  types.BeginDecodeResponse
// @Failure      409      {object}  types.ErrorResponse
// @Router       /v1/decode/begin [post]
func (a api) beginDecode() http.HandlerFunc {
	return endpoint(types.OpBeginDecode, func(ctx context.Context, req types.BeginDecodeRequest) (types.BeginDecodeResponse, error) {
		run, err := a.svc.BeginDecode(ctx, req.Session)
		return types.BeginDecodeResponse{Run: run}, err
	})
}

// @Summary      Advance a run
// @Description  Computes at most chunk_size layers. The session must carry exactly the cache window of those layers.
// @Tags         run
// @Accept       json
// @Produce      json
// @Param        request  body      types.AdvanceRequest  true  "Run and windowed session"
// @Success      200      {object}  types.ChunkResult
// @Failure      400      {object}  types.ErrorResponse
// @Failure      409      {object}  types.ErrorResponse
// @Failure      422      {object}  types.ErrorResponse
// @Router       /v1/advance [post]
func (a api) advance() http.HandlerFunc {
	return endpoint(types.OpAdvance, func(ctx context.Context, req types.AdvanceRequest) (types.ChunkResult, error) {
		return a.svc.Advance(ctx, req.ChunkSize, req.Run, req.Session)
	})
}

// @Summary      End a prompt-ingestion step
// @Description  Text is present once ingestion is complete and carries the first generated token.
// @Tags         prompt
// @Accept       json
// @Produce      json
// @Param        request  body      types.EndRequest  true  "Completed run"
// @Success      200      {object}  types.PhaseResult
// @Failure      409      {object}  types.ErrorResponse
// @Router       /v1/prompt/end [post]
func (a api) endPrompt() http.HandlerFunc {
	return endpoint(types.OpEndPrompt, func(ctx context.Context, req types.EndRequest) (types.PhaseResult, error) {
		return a.svc.EndPrompt(ctx, req.Run, req.Session)
	})
}

// @Summary      End a decode step
// @Tags         decode
// @Accept       json
// @Produce      json
// @Param        request  body      types.EndRequest  true  "Completed run"
// @Success      200      {object}  types.PhaseResult
// @Failure      409      {object}  types.ErrorResponse
// @Router       /v1/decode/end [post]
func (a api) endDecode() http.HandlerFunc {
	return endpoint(types.OpEndDecode, func(ctx context.Context, req types.EndRequest) (types.PhaseResult, error) {
		return a.svc.EndDecode(ctx, req.Run, req.Session)
	})
}

// @Summary      Service status
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /v1/status [get]
func (a api) status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := json.Marshal(a.svc.Status())
		if err != nil {
			writeError(w, wire.JSON, http.StatusInternalServerError, types.KindInternal, "failed to encode response")
			return
		}
		w.Header().Set("Content-Type", wire.ContentTypeJSON)
		_, _ = w.Write(b)
	}
}

// endpoint decodes Req in the request's encoding, runs call and encodes its
// result the same way.
func endpoint[Req, Resp any](op types.Op, call func(context.Context, Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		codec, ok := wire.ForContentType(r.Header.Get("Content-Type"))
		if !ok {
			writeError(w, wire.JSON, http.StatusUnsupportedMediaType, types.KindBadRequest, "Content-Type must be application/json or application/cbor")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeError(w, codec, http.StatusRequestEntityTooLarge, types.KindBadRequest, "request body too large")
				return
			}
			writeError(w, codec, http.StatusBadRequest, types.KindBadRequest, "failed to read body")
			return
		}
		var req Req
		if err := codec.Unmarshal(body, &req); err != nil {
			writeError(w, codec, http.StatusBadRequest, types.KindBadRequest, "invalid "+codec.Name()+" body")
			return
		}

		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if callTimeout > 0 {
			var cancelT context.CancelFunc
			ctx, cancelT = context.WithTimeout(ctx, callTimeout)
			defer cancelT()
		}
		resp, err := call(ctx, req)
		if err != nil {
			// Client went away; nobody reads the answer.
			if r.Context().Err() != nil {
				return
			}
			status, kind := classify(err)
			if kind == types.KindBudgetExceeded {
				budgetRejectionsTotal.WithLabelValues(string(op)).Inc()
			}
			writeError(w, codec, status, kind, err.Error())
			logCall(r, string(op), status, start, len(body), 0, err)
			return
		}
		out, err := codec.Marshal(resp)
		if err != nil {
			writeError(w, codec, http.StatusInternalServerError, types.KindInternal, "failed to encode response")
			logCall(r, string(op), http.StatusInternalServerError, start, len(body), 0, err)
			return
		}
		w.Header().Set("Content-Type", codec.ContentType())
		_, _ = w.Write(out)
		logCall(r, string(op), http.StatusOK, start, len(body), len(out), nil)
	}
}

// requireAPIKey enforces the bearer token configured with SetAPIKey.
func requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			codec, known := wire.ForContentType(r.Header.Get("Content-Type"))
			if !known {
				codec = wire.JSON
			}
			writeError(w, codec, http.StatusUnauthorized, types.KindUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
