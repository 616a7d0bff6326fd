// Package config loads chunkgen and chunksim settings from yaml, json or toml
// files and CHUNKGEN_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"chunkgen/internal/simulator"
)

// Config holds runtime parameters for both binaries.
type Config struct {
	Client    Client    `json:"client" yaml:"client" toml:"client"`
	Server    Server    `json:"server" yaml:"server" toml:"server"`
	Simulator Simulator `json:"simulator" yaml:"simulator" toml:"simulator"`
	Logging   Logging   `json:"logging" yaml:"logging" toml:"logging"`
}

// Client configures chunkgen.
type Client struct {
	URL    string `json:"url" yaml:"url" toml:"url"`
	APIKey string `json:"api_key" yaml:"api_key" toml:"api_key"`
	// Codec is json or cbor.
	Codec            string `json:"codec" yaml:"codec" toml:"codec"`
	RequestTimeoutMS int    `json:"request_timeout_ms" yaml:"request_timeout_ms" toml:"request_timeout_ms"`
	ConnectTimeoutMS int    `json:"connect_timeout_ms" yaml:"connect_timeout_ms" toml:"connect_timeout_ms"`
	MaxResponseMB    int    `json:"max_response_mb" yaml:"max_response_mb" toml:"max_response_mb"`
	PromptChunk      int    `json:"prompt_chunk" yaml:"prompt_chunk" toml:"prompt_chunk"`
	DecodeChunk      int    `json:"decode_chunk" yaml:"decode_chunk" toml:"decode_chunk"`
	MaxDecodeSteps   int    `json:"max_decode_steps" yaml:"max_decode_steps" toml:"max_decode_steps"`
	NonIterative     bool   `json:"non_iterative" yaml:"non_iterative" toml:"non_iterative"`
	Parallel         int    `json:"parallel" yaml:"parallel" toml:"parallel"`
	SystemPrompt     string `json:"system_prompt" yaml:"system_prompt" toml:"system_prompt"`
}

// Server configures chunksim's HTTP layer.
type Server struct {
	Addr          string `json:"addr" yaml:"addr" toml:"addr"`
	APIKey        string `json:"api_key" yaml:"api_key" toml:"api_key"`
	MaxBodyMB     int    `json:"max_body_mb" yaml:"max_body_mb" toml:"max_body_mb"`
	CallTimeoutMS int    `json:"call_timeout_ms" yaml:"call_timeout_ms" toml:"call_timeout_ms"`
	// RequestLog is off, error, info or debug.
	RequestLog  string   `json:"request_log" yaml:"request_log" toml:"request_log"`
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	CORSMethods []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods"`
	CORSHeaders []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers"`
}

// Simulator configures the model chunksim serves.
type Simulator struct {
	Layers           int `json:"layers" yaml:"layers" toml:"layers"`
	MaxLayersPerCall int `json:"max_layers_per_call" yaml:"max_layers_per_call" toml:"max_layers_per_call"`
	PromptSlice      int `json:"prompt_slice" yaml:"prompt_slice" toml:"prompt_slice"`
	MaxReplyBytes    int `json:"max_reply_bytes" yaml:"max_reply_bytes" toml:"max_reply_bytes"`
	LatencyMS        int `json:"latency_ms" yaml:"latency_ms" toml:"latency_ms"`
}

// Engine converts s into the simulator's configuration.
func (s Simulator) Engine() simulator.Config {
	return simulator.Config{
		Layers:           s.Layers,
		MaxLayersPerCall: s.MaxLayersPerCall,
		PromptSlice:      s.PromptSlice,
		MaxReplyBytes:    s.MaxReplyBytes,
		Latency:          time.Duration(s.LatencyMS) * time.Millisecond,
	}
}

// Logging selects the process logger.
type Logging struct {
	Level string `json:"level" yaml:"level" toml:"level"`
	// Format is console or json.
	Format string `json:"format" yaml:"format" toml:"format"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	sim := simulator.DefaultConfig()
	return Config{
		Client: Client{
			URL:              "http://127.0.0.1:8080",
			Codec:            "json",
			RequestTimeoutMS: 30_000,
			ConnectTimeoutMS: 5_000,
			PromptChunk:      10,
			DecodeChunk:      5,
			MaxDecodeSteps:   100,
			Parallel:         4,
		},
		Server: Server{
			Addr:       ":8080",
			MaxBodyMB:  64,
			RequestLog: "off",
		},
		Simulator: Simulator{
			Layers:           sim.Layers,
			MaxLayersPerCall: sim.MaxLayersPerCall,
			PromptSlice:      sim.PromptSlice,
			MaxReplyBytes:    sim.MaxReplyBytes,
		},
		Logging: Logging{Level: "info", Format: "console"},
	}
}

// Load reads a configuration file based on its extension on top of
// Default(). Keys missing from the file keep their default.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when set and returns Default() otherwise.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// ApplyEnv overrides cfg with CHUNKGEN_* environment variables. Malformed
// numbers are reported rather than ignored.
func ApplyEnv(cfg *Config) error {
	strs := map[string]*string{
		"CHUNKGEN_URL":           &cfg.Client.URL,
		"CHUNKGEN_API_KEY":       &cfg.Client.APIKey,
		"CHUNKGEN_CODEC":         &cfg.Client.Codec,
		"CHUNKGEN_SYSTEM_PROMPT": &cfg.Client.SystemPrompt,
		"CHUNKGEN_ADDR":          &cfg.Server.Addr,
		"CHUNKGEN_SERVER_KEY":    &cfg.Server.APIKey,
		"CHUNKGEN_REQUEST_LOG":   &cfg.Server.RequestLog,
		"CHUNKGEN_LOG_LEVEL":     &cfg.Logging.Level,
		"CHUNKGEN_LOG_FORMAT":    &cfg.Logging.Format,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	ints := map[string]*int{
		"CHUNKGEN_PROMPT_CHUNK":        &cfg.Client.PromptChunk,
		"CHUNKGEN_DECODE_CHUNK":        &cfg.Client.DecodeChunk,
		"CHUNKGEN_MAX_DECODE_STEPS":    &cfg.Client.MaxDecodeSteps,
		"CHUNKGEN_PARALLEL":            &cfg.Client.Parallel,
		"CHUNKGEN_REQUEST_TIMEOUT_MS":  &cfg.Client.RequestTimeoutMS,
		"CHUNKGEN_LAYERS":              &cfg.Simulator.Layers,
		"CHUNKGEN_MAX_LAYERS_PER_CALL": &cfg.Simulator.MaxLayersPerCall,
		"CHUNKGEN_PROMPT_SLICE":        &cfg.Simulator.PromptSlice,
		"CHUNKGEN_LATENCY_MS":          &cfg.Simulator.LatencyMS,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	if v := os.Getenv("CHUNKGEN_NON_ITERATIVE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CHUNKGEN_NON_ITERATIVE: %w", err)
		}
		cfg.Client.NonIterative = b
	}
	return nil
}
