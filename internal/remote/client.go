// Package remote implements the six remote operations over HTTP against a
// compute service such as chunksim.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chunkgen/internal/wire"
	"chunkgen/pkg/types"
)

const (
	defaultMaxResponseBytes = 256 << 20
	errorBodyLimit          = 4096
)

// Options configures a Client.
type Options struct {
	BaseURL string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Codec for request bodies. Nil selects JSON.
	Codec wire.Codec
	// RequestTimeout bounds each call, including reading the response.
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	// MaxResponseBytes caps a decoded response body. Zero selects 256 MiB.
	MaxResponseBytes int64
	Logger           *zerolog.Logger
	// HTTPClient overrides the tuned default client.
	HTTPClient *http.Client
}

// Client talks to the compute service. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	codec      wire.Codec
	reqTimeout time.Duration
	maxResp    int64
	httpClient *http.Client
	log        zerolog.Logger
}

// New constructs a Client.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote: invalid base url %q", opts.BaseURL)
	}
	codec := opts.Codec
	if codec == nil {
		codec = wire.JSON
	}
	maxResp := opts.MaxResponseBytes
	if maxResp <= 0 {
		maxResp = defaultMaxResponseBytes
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	cli := opts.HTTPClient
	if cli == nil {
		connect := opts.ConnectTimeout
		if connect <= 0 {
			connect = 5 * time.Second
		}
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   connect,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   16,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		// Timeout stays 0: every call carries a context deadline instead.
		cli = &http.Client{Transport: tr, Timeout: 0}
	}
	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		apiKey:     opts.APIKey,
		codec:      codec,
		reqTimeout: opts.RequestTimeout,
		maxResp:    maxResp,
		httpClient: cli,
		log:        log,
	}, nil
}

func (c *Client) StartPrompt(ctx context.Context, text, sessionID string) (types.Session, error) {
	var out types.Session
	err := c.post(ctx, types.OpStartPrompt, "/v1/prompt/start", types.StartPromptRequest{Text: text, SessionID: sessionID}, &out)
	return out, err
}

func (c *Client) BeginPrompt(ctx context.Context, s types.Session, iterative bool) (*types.Run, types.Session, error) {
	var out types.BeginPromptResponse
	err := c.post(ctx, types.OpBeginPrompt, "/v1/prompt/begin", types.BeginPromptRequest{Session: s, Iterative: iterative}, &out)
	return out.Run, out.Session, err
}

func (c *Client) BeginDecode(ctx context.Context, s types.Session) (types.Run, error) {
	var out types.BeginDecodeResponse
	err := c.post(ctx, types.OpBeginDecode, "/v1/decode/begin", types.BeginDecodeRequest{Session: s}, &out)
	return out.Run, err
}

func (c *Client) Advance(ctx context.Context, n int, run types.Run, s types.Session) (types.ChunkResult, error) {
	var out types.ChunkResult
	err := c.post(ctx, types.OpAdvance, "/v1/advance", types.AdvanceRequest{ChunkSize: n, Run: run, Session: s}, &out)
	return out, err
}

func (c *Client) EndPrompt(ctx context.Context, run types.Run, s types.Session) (types.PhaseResult, error) {
	var out types.PhaseResult
	err := c.post(ctx, types.OpEndPrompt, "/v1/prompt/end", types.EndRequest{Run: run, Session: s}, &out)
	return out, err
}

func (c *Client) EndDecode(ctx context.Context, run types.Run, s types.Session) (types.PhaseResult, error) {
	var out types.PhaseResult
	err := c.post(ctx, types.OpEndDecode, "/v1/decode/end", types.EndRequest{Run: run, Session: s}, &out)
	return out, err
}

// Status fetches the service's model shape and counters.
func (c *Client) Status(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.do(ctx, "status", http.MethodGet, "/v1/status", nil, &out)
	return out, err
}

func (c *Client) post(ctx context.Context, op types.Op, path string, in, out any) error {
	body, err := c.codec.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	return c.do(ctx, string(op), http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out any) error {
	if c.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.reqTimeout)
		defer cancel()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", c.codec.ContentType())
	}
	req.Header.Set("Accept", c.codec.ContentType())
	rid := uuid.NewString()
	req.Header.Set("X-Request-Id", rid)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	codec, ok := wire.ForContentType(resp.Header.Get("Content-Type"))
	if !ok {
		codec = wire.JSON
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		se := &StatusError{Op: op, Code: resp.StatusCode, RequestID: rid}
		var er types.ErrorResponse
		if err := codec.Unmarshal(b, &er); err == nil && er.Error != "" {
			se.Kind, se.Message = er.Kind, er.Error
		} else {
			se.Message = strings.TrimSpace(string(b))
		}
		c.log.Debug().Str("op", op).Str("request_id", rid).Int("status", resp.StatusCode).Str("kind", string(se.Kind)).Msg("remote error")
		return se
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResp+1))
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	if int64(len(b)) > c.maxResp {
		return fmt.Errorf("%s: response exceeds %d bytes", op, c.maxResp)
	}
	if err := codec.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%s: decode %s response: %w", op, codec.Name(), err)
	}
	c.log.Debug().
		Str("op", op).
		Str("request_id", rid).
		Int("sent", len(body)).
		Int("received", len(b)).
		Dur("took", time.Since(start)).
		Msg("remote call")
	return nil
}

// StatusError is a non-2xx answer from the service.
type StatusError struct {
	Op        string
	Code      int
	Kind      types.ErrorKind
	Message   string
	RequestID string
}

func (e *StatusError) Error() string {
	kind := string(e.Kind)
	if kind == "" {
		kind = http.StatusText(e.Code)
	}
	return fmt.Sprintf("%s: http %d (%s): %s", e.Op, e.Code, kind, e.Message)
}

// StatusCode returns the HTTP status of the failed call.
func (e *StatusError) StatusCode() int { return e.Code }

// KindOf returns the error class reported by the service, or "" when err
// did not come from a service answer.
func KindOf(err error) types.ErrorKind {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsBudgetExceeded reports whether the service rejected a call for asking
// more layers than its per-call budget.
func IsBudgetExceeded(err error) bool { return KindOf(err) == types.KindBudgetExceeded }

// IsCacheMismatch reports whether the service rejected the cache window.
func IsCacheMismatch(err error) bool { return KindOf(err) == types.KindCacheMismatch }
