package types

// StartPromptRequest is the body of POST /v1/prompt/start.
type StartPromptRequest struct {
	// Free text to tokenize.
	// example: Where is Poland placed?
	Text string `json:"text" cbor:"text" example:"Where is Poland placed?"`
	// Optional client-assigned session id echoed back in the session.
	// example: 0199f0a2-6c1e-7d3a-9a41-3f0b5f3c2e11
	SessionID string `json:"session_id,omitempty" cbor:"session_id,omitempty" example:"0199f0a2-6c1e-7d3a-9a41-3f0b5f3c2e11"`
}

// BeginPromptRequest is the body of POST /v1/prompt/begin.
type BeginPromptRequest struct {
	Session Session `json:"session" cbor:"session"`
	// When true the service ingests at most one slice of the prompt and
	// returns no run once the prompt is exhausted.
	// example: true
	Iterative bool `json:"iterative" cbor:"iterative" example:"true"`
}

// BeginPromptResponse carries no run when nothing remains to ingest.
type BeginPromptResponse struct {
	Run     *Run    `json:"run,omitempty" cbor:"run,omitempty"`
	Session Session `json:"session" cbor:"session"`
}

// BeginDecodeRequest is the body of POST /v1/decode/begin.
type BeginDecodeRequest struct {
	Session Session `json:"session" cbor:"session"`
}

// BeginDecodeResponse is returned by POST /v1/decode/begin.
type BeginDecodeResponse struct {
	Run Run `json:"run" cbor:"run"`
}

// AdvanceRequest is the body of POST /v1/advance.
type AdvanceRequest struct {
	// Maximum number of layers to compute in this call.
	// example: 5
	ChunkSize int     `json:"chunk_size" cbor:"chunk_size" example:"5"`
	Run       Run     `json:"run" cbor:"run"`
	Session   Session `json:"session" cbor:"session"`
}

// EndRequest is the body of POST /v1/prompt/end and POST /v1/decode/end.
type EndRequest struct {
	Run     Run     `json:"run" cbor:"run"`
	Session Session `json:"session" cbor:"session"`
}

// ErrorResponse is a consistent error payload.
type ErrorResponse struct {
	// Error message.
	// example: chunk size 16 exceeds budget of 12 layers
	Error string `json:"error" cbor:"error" example:"chunk size 16 exceeds budget of 12 layers"`
	// HTTP status code.
	// example: 422
	Code int `json:"code" cbor:"code" example:"422"`
	// Machine-readable error class (bad_request, budget_exceeded, cache_mismatch, invalid_state).
	// example: budget_exceeded
	Kind ErrorKind `json:"kind,omitempty" cbor:"kind,omitempty" example:"budget_exceeded"`
}

// StatusResponse is returned by GET /v1/status.
type StatusResponse struct {
	// Number of model layers.
	// example: 32
	Layers int `json:"layers" example:"32"`
	// Maximum layers a single advance call may compute.
	// example: 12
	MaxLayersPerCall int `json:"max_layers_per_call" example:"12"`
	// Prompt tokens ingested per iterative prompt step.
	// example: 12
	PromptSlice int `json:"prompt_slice" example:"12"`
	// Calls served per operation.
	Calls map[string]uint64 `json:"calls"`
	// Calls rejected because they exceeded the per-call budget.
	// example: 0
	BudgetRejections uint64 `json:"budget_rejections" example:"0"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// Op names one remote operation. It doubles as a metric and log label.
type Op string

const (
	OpStartPrompt Op = "start_prompt"
	OpBeginPrompt Op = "begin_prompt"
	OpBeginDecode Op = "begin_decode"
	OpAdvance     Op = "advance"
	OpEndPrompt   Op = "end_prompt"
	OpEndDecode   Op = "end_decode"
)

// Ops lists every remote operation in protocol order.
var Ops = []Op{OpStartPrompt, OpBeginPrompt, OpBeginDecode, OpAdvance, OpEndPrompt, OpEndDecode}

// ErrorKind classifies ErrorResponse values.
type ErrorKind string

const (
	KindBadRequest     ErrorKind = "bad_request"
	KindBudgetExceeded ErrorKind = "budget_exceeded"
	KindCacheMismatch  ErrorKind = "cache_mismatch"
	KindInvalidState   ErrorKind = "invalid_state"
	KindUnauthorized   ErrorKind = "unauthorized"
	KindInternal       ErrorKind = "internal"
)
