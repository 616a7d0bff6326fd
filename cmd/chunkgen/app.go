package main

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chunkgen/internal/config"
	"chunkgen/internal/logging"
	"chunkgen/internal/orchestrator"
	"chunkgen/internal/remote"
	"chunkgen/internal/wire"
)

// app is what every subcommand needs once flags are parsed.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	client *remote.Client
}

// newApp resolves configuration in order defaults, file, env, flags.
func newApp(cmd *cobra.Command, configPath string) (*app, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := applyClientFlags(cmd, &cfg); err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	codec, err := wire.ByName(cfg.Client.Codec)
	if err != nil {
		return nil, err
	}
	client, err := remote.New(remote.Options{
		BaseURL:          cfg.Client.URL,
		APIKey:           cfg.Client.APIKey,
		Codec:            codec,
		RequestTimeout:   time.Duration(cfg.Client.RequestTimeoutMS) * time.Millisecond,
		ConnectTimeout:   time.Duration(cfg.Client.ConnectTimeoutMS) * time.Millisecond,
		MaxResponseBytes: int64(cfg.Client.MaxResponseMB) << 20,
		Logger:           &log,
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, client: client}, nil
}

func (a *app) newOrchestrator() *orchestrator.Orchestrator {
	return orchestrator.NewWithConfig(orchestrator.Config{
		Backend:        a.client,
		PromptChunk:    a.cfg.Client.PromptChunk,
		DecodeChunk:    a.cfg.Client.DecodeChunk,
		MaxDecodeSteps: a.cfg.Client.MaxDecodeSteps,
		NonIterative:   a.cfg.Client.NonIterative,
		Logger:         &a.log,
		Events:         orchestrator.LogPublisher{Logger: a.log},
	})
}

// applyClientFlags copies explicitly set flags over file and env values.
// Persistent flags of the root are merged into cmd.Flags() by cobra.
func applyClientFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	var err error
	str := func(name string, dst *string) {
		if err == nil && f.Lookup(name) != nil && f.Changed(name) {
			*dst, err = f.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if err == nil && f.Lookup(name) != nil && f.Changed(name) {
			*dst, err = f.GetInt(name)
		}
	}
	str("url", &cfg.Client.URL)
	str("api-key", &cfg.Client.APIKey)
	str("codec", &cfg.Client.Codec)
	str("log-level", &cfg.Logging.Level)
	str("log-format", &cfg.Logging.Format)
	str("system", &cfg.Client.SystemPrompt)
	num("prompt-chunk", &cfg.Client.PromptChunk)
	num("decode-chunk", &cfg.Client.DecodeChunk)
	num("max-steps", &cfg.Client.MaxDecodeSteps)
	num("parallel", &cfg.Client.Parallel)
	if err == nil && f.Lookup("request-timeout") != nil && f.Changed("request-timeout") {
		var d time.Duration
		d, err = f.GetDuration("request-timeout")
		cfg.Client.RequestTimeoutMS = int(d / time.Millisecond)
	}
	if err == nil && f.Lookup("non-iterative") != nil && f.Changed("non-iterative") {
		cfg.Client.NonIterative, err = f.GetBool("non-iterative")
	}
	return err
}
