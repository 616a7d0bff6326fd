package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"chunkgen/internal/checkpoint"
)

func newResumeCmd(configPath *string) *cobra.Command {
	var checkpointPath string
	cmd := &cobra.Command{
		Use:     "resume",
		Short:   "Continue a generation from a saved checkpoint",
		Example: "  chunkgen resume --checkpoint run.cbor",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, *configPath)
			if err != nil {
				return err
			}
			f, err := checkpoint.Load(checkpointPath)
			if err != nil {
				return err
			}
			if f.BaseURL != "" && f.BaseURL != a.cfg.Client.URL {
				a.log.Warn().Str("saved", f.BaseURL).Str("url", a.cfg.Client.URL).Msg("checkpoint was taken against another service")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			out := cmd.OutOrStdout()
			// Text of completed steps is not passed to the callback again.
			if _, err := io.WriteString(out, f.Checkpoint.Text); err != nil {
				return err
			}
			res, err := a.newOrchestrator().Resume(ctx, f.Checkpoint, func(s string) error {
				_, err := io.WriteString(out, s)
				return err
			})
			fmt.Fprintln(out)
			if err != nil {
				return a.keep(err, checkpointPath)
			}
			a.log.Debug().Int("steps", res.Steps).Int("sub_calls", res.SubCalls).Bool("eos", res.EndOfSequence).Msg("done")
			return nil
		},
	}
	cmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "Checkpoint file written by generate --checkpoint")
	_ = cmd.MarkFlagRequired("checkpoint")
	cmd.Flags().Int("decode-chunk", 0, "Layers per sub-call while decoding (default from config)")
	cmd.Flags().Int("prompt-chunk", 0, "Layers per sub-call while ingesting the prompt (default from config)")
	cmd.Flags().Int("max-steps", 0, "Maximum decode steps (default from config)")
	return cmd
}
