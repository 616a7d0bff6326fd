package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "client:\n  url: http://sim:9000\n  codec: cbor\n  prompt_chunk: 15\nsimulator:\n  layers: 16\n  latency_ms: 3\nserver:\n  cors_origins: [\"https://a\", \"https://b\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Client.URL != "http://sim:9000" || cfg.Client.Codec != "cbor" || cfg.Client.PromptChunk != 15 {
		t.Fatalf("unexpected client cfg: %+v", cfg.Client)
	}
	if cfg.Simulator.Layers != 16 || len(cfg.Server.CORSOrigins) != 2 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	// untouched keys keep defaults
	if cfg.Client.DecodeChunk != 5 || cfg.Simulator.MaxLayersPerCall != 12 || cfg.Server.Addr != ":8080" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if got := cfg.Simulator.Engine().Latency; got != 3*time.Millisecond {
		t.Fatalf("latency %v", got)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"server":{"addr":":7070","api_key":"k"},"client":{"max_decode_steps":50,"non_iterative":true}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":7070" || cfg.Server.APIKey != "k" || cfg.Client.MaxDecodeSteps != 50 || !cfg.Client.NonIterative {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "[logging]\nlevel=\"debug\"\nformat=\"json\"\n[simulator]\nmax_layers_per_call=6\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" || cfg.Simulator.MaxLayersPerCall != 6 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if cfg.Client.URL != Default().Client.URL {
		t.Fatalf("expected defaults, got %+v", cfg.Client)
	}
}

func TestDefaultSimulatorIsValid(t *testing.T) {
	e := Default().Simulator.Engine()
	if e.Layers <= 0 || e.MaxLayersPerCall <= 0 || e.PromptSlice <= 0 || e.MaxReplyBytes <= 0 {
		t.Fatalf("invalid default simulator: %+v", e)
	}
	if d := Default().Client; d.PromptChunk > e.MaxLayersPerCall || d.DecodeChunk > e.MaxLayersPerCall {
		t.Fatalf("default chunk sizes exceed the default budget: %+v", d)
	}
}
