// Command chunkgen generates text against a layer-budgeted compute service,
// splitting every forward pass into sub-calls the service accepts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chunkgen/internal/config"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chunkgen:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	def := config.Default()
	root := &cobra.Command{
		Use:           "chunkgen",
		Short:         "Chunked text generation against a layer-budgeted service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (.yaml, .json or .toml)")
	pf.String("url", def.Client.URL, "Service base URL (env CHUNKGEN_URL)")
	pf.String("api-key", "", "Bearer token for the service (env CHUNKGEN_API_KEY)")
	pf.String("codec", def.Client.Codec, "Payload encoding: json|cbor")
	pf.Duration("request-timeout", 0, "Timeout of a single remote call (default from config)")
	pf.String("log-level", def.Logging.Level, "Log level: trace|debug|info|warn|error|off")
	pf.String("log-format", def.Logging.Format, "Log format: console|json")

	root.AddCommand(
		newGenerateCmd(&configPath),
		newResumeCmd(&configPath),
		newStatusCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}
