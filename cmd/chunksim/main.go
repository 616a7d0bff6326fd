// Command chunksim serves a deterministic simulated model over the chunked
// compute API. Every advance call is bounded by a per-call layer budget.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chunkgen/internal/config"
	"chunkgen/internal/httpapi"
	"chunkgen/internal/logging"
	"chunkgen/internal/simulator"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chunksim:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chunksim",
		Short:         "Simulated layer-budgeted compute service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string
	def := config.Default()
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the simulated model over HTTP",
		Example: "  chunksim serve --addr :8080 --layers 32 --max-layers-per-call 12",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			if err := config.ApplyEnv(&cfg); err != nil {
				return err
			}
			if err := applyServeFlags(cmd, &cfg); err != nil {
				return err
			}
			log, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, nil)
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "Config file (.yaml, .json or .toml)")
	f.String("addr", def.Server.Addr, "HTTP listen address, e.g. :8080 (env CHUNKGEN_ADDR)")
	f.String("api-key", "", "Require this bearer token on /v1 routes (env CHUNKGEN_SERVER_KEY)")
	f.Int("layers", def.Simulator.Layers, "Model depth")
	f.Int("max-layers-per-call", def.Simulator.MaxLayersPerCall, "Layer budget of one advance call")
	f.Int("prompt-slice", def.Simulator.PromptSlice, "Prompt tokens ingested per iterative prompt step")
	f.Int("max-reply-bytes", def.Simulator.MaxReplyBytes, "Cap on the scripted reply")
	f.Duration("latency", 0, "Artificial latency added to every call")
	f.Duration("call-timeout", 0, "Per-call timeout (0 disables)")
	f.Int("max-body-mb", def.Server.MaxBodyMB, "Maximum request body size in MiB")
	f.String("request-log", def.Server.RequestLog, "Per-request log level: off|error|info|debug")
	f.String("cors-origins", "", "Comma-separated allowed CORS origins; enables CORS when set")
	f.String("log-level", def.Logging.Level, "Log level: trace|debug|info|warn|error")
	f.String("log-format", def.Logging.Format, "Log format: console|json")
	return cmd
}

// applyServeFlags copies explicitly set flags over file and env values.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	var err error
	str := func(name string, dst *string) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetInt(name)
		}
	}
	millis := func(name string, dst *int) {
		if err == nil && f.Changed(name) {
			var d time.Duration
			d, err = f.GetDuration(name)
			*dst = int(d / time.Millisecond)
		}
	}
	str("addr", &cfg.Server.Addr)
	str("api-key", &cfg.Server.APIKey)
	str("request-log", &cfg.Server.RequestLog)
	str("log-level", &cfg.Logging.Level)
	str("log-format", &cfg.Logging.Format)
	num("layers", &cfg.Simulator.Layers)
	num("max-layers-per-call", &cfg.Simulator.MaxLayersPerCall)
	num("prompt-slice", &cfg.Simulator.PromptSlice)
	num("max-reply-bytes", &cfg.Simulator.MaxReplyBytes)
	num("max-body-mb", &cfg.Server.MaxBodyMB)
	millis("latency", &cfg.Simulator.LatencyMS)
	millis("call-timeout", &cfg.Server.CallTimeoutMS)
	if err == nil && f.Changed("cors-origins") {
		var v string
		v, err = f.GetString("cors-origins")
		cfg.Server.CORSOrigins = splitCSV(v)
		cfg.Server.CORSEnabled = len(cfg.Server.CORSOrigins) > 0
	}
	return err
}

// splitCSV splits a comma-separated list, trimming blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// serve runs the HTTP server until ctx is done, then shuts down gracefully.
// ready, when not nil, receives the bound address.
func serve(ctx context.Context, cfg config.Config, log zerolog.Logger, ready chan<- string) error {
	engine, err := simulator.New(cfg.Simulator.Engine())
	if err != nil {
		return err
	}

	httpapi.SetLogger(log)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(int64(cfg.Server.MaxBodyMB) << 20)
	httpapi.SetCallTimeout(time.Duration(cfg.Server.CallTimeoutMS) * time.Millisecond)
	httpapi.SetAPIKey(cfg.Server.APIKey)
	if cfg.Server.RequestLog != "" {
		httpapi.SetRequestLogLevel(cfg.Server.RequestLog)
	}
	methods := cfg.Server.CORSMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := cfg.Server.CORSHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type", "Authorization", "X-Request-Id"}
	}
	httpapi.SetCORSOptions(cfg.Server.CORSEnabled, cfg.Server.CORSOrigins, methods, headers)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	srv := &http.Server{
		Handler:           httpapi.NewMux(engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		st := engine.Status()
		log.Info().
			Str("addr", ln.Addr().String()).
			Int("layers", st.Layers).
			Int("max_layers_per_call", st.MaxLayersPerCall).
			Int("prompt_slice", st.PromptSlice).
			Msg("chunksim listening")
		errCh <- srv.Serve(ln)
	}()
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown (Ctrl+C / SIGTERM)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
		return err
	}
	log.Info().Msg("chunksim stopped")
	return nil
}
