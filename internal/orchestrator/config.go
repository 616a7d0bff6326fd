package orchestrator

import (
	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultPromptChunk    = 10
	defaultDecodeChunk    = 5
	defaultMaxDecodeSteps = 100
)

// Config encapsulates all tunables for Orchestrator construction.
type Config struct {
	Backend Backend
	// Layers per advance call while ingesting the prompt.
	PromptChunk int
	// Layers per advance call while decoding. Decode steps are latency
	// sensitive, so this is usually smaller than PromptChunk.
	DecodeChunk int
	// Upper bound on decode steps per generation.
	MaxDecodeSteps int
	// NonIterative asks the service to ingest the whole prompt in a single
	// phase step instead of slice by slice.
	NonIterative bool
	Logger       *zerolog.Logger
	Events       EventPublisher
}

// Orchestrator runs generations. It holds no per-session state and is safe
// for concurrent use by independent sessions.
type Orchestrator struct {
	calls          *caller
	driver         *ChunkDriver
	phases         *PhaseController
	maxDecodeSteps int
	log            zerolog.Logger
	events         EventPublisher
}

// New constructs an Orchestrator over backend with default tunables.
func New(backend Backend) *Orchestrator {
	return NewWithConfig(Config{Backend: backend})
}

// NewWithConfig constructs an Orchestrator from Config.
func NewWithConfig(cfg Config) *Orchestrator {
	if cfg.PromptChunk <= 0 {
		cfg.PromptChunk = defaultPromptChunk
	}
	if cfg.DecodeChunk <= 0 {
		cfg.DecodeChunk = defaultDecodeChunk
	}
	if cfg.MaxDecodeSteps <= 0 {
		cfg.MaxDecodeSteps = defaultMaxDecodeSteps
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	events := cfg.Events
	if events == nil {
		events = noopPublisher{}
	}
	c := &caller{backend: cfg.Backend, log: log}
	d := &ChunkDriver{calls: c}
	return &Orchestrator{
		calls:  c,
		driver: d,
		phases: &PhaseController{
			calls:       c,
			driver:      d,
			promptChunk: cfg.PromptChunk,
			decodeChunk: cfg.DecodeChunk,
			iterative:   !cfg.NonIterative,
			log:         log,
			events:      events,
		},
		maxDecodeSteps: cfg.MaxDecodeSteps,
		log:            log,
		events:         events,
	}
}

// Driver exposes the chunk loop for callers that manage runs themselves.
func (o *Orchestrator) Driver() *ChunkDriver { return o.driver }

// Phases exposes the phase-step controller.
func (o *Orchestrator) Phases() *PhaseController { return o.phases }
