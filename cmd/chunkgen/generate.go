package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"chunkgen/internal/chat"
	"chunkgen/internal/checkpoint"
	"chunkgen/internal/config"
	"chunkgen/internal/orchestrator"
)

// generated is the --json form of one result.
type generated struct {
	Prompt        string `json:"prompt"`
	Text          string `json:"text"`
	Steps         int    `json:"steps"`
	SubCalls      int    `json:"sub_calls"`
	EndOfSequence bool   `json:"end_of_sequence"`
}

func newGenerateCmd(configPath *string) *cobra.Command {
	var (
		raw            bool
		asJSON         bool
		checkpointPath string
	)
	def := config.Default().Client
	cmd := &cobra.Command{
		Use:   "generate PROMPT [PROMPT...]",
		Short: "Generate a completion for each prompt",
		Long: "Generate a completion for each prompt. A single prompt streams its text as\n" +
			"phase steps complete; several prompts run concurrently. Use - to read one\n" +
			"prompt from stdin.",
		Example: "  chunkgen generate \"Where is Poland placed?\"\n" +
			"  chunkgen generate --checkpoint run.cbor --prompt-chunk 12 \"Tell me a story\"\n" +
			"  chunkgen generate --json --parallel 8 \"first\" \"second\" \"third\"",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, *configPath)
			if err != nil {
				return err
			}
			prompts, err := readPrompts(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			framed := make([]string, len(prompts))
			for i, p := range prompts {
				framed[i] = p
				if !raw {
					framed[i] = chat.Prompt(p, a.cfg.Client.SystemPrompt)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			orch := a.newOrchestrator()
			out := cmd.OutOrStdout()

			if len(framed) == 1 && !asJSON {
				res, err := orch.Generate(ctx, framed[0], func(s string) error {
					_, err := io.WriteString(out, s)
					return err
				})
				fmt.Fprintln(out)
				if err != nil {
					return a.keep(err, checkpointPath)
				}
				a.log.Debug().Int("steps", res.Steps).Int("sub_calls", res.SubCalls).Bool("eos", res.EndOfSequence).Msg("done")
				return nil
			}

			results, err := orch.GenerateAll(ctx, framed, a.cfg.Client.Parallel)
			if err != nil {
				return a.keep(err, checkpointPath)
			}
			if asJSON {
				view := make([]generated, len(results))
				for i, r := range results {
					view[i] = generated{Prompt: prompts[i], Text: r.Text, Steps: r.Steps, SubCalls: r.SubCalls, EndOfSequence: r.EndOfSequence}
				}
				b, err := json.MarshalIndent(view, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(b))
				return err
			}
			for i, r := range results {
				fmt.Fprintf(out, "[%d] %s\n", i, r.Text)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.String("system", "", "System instruction (default: "+chat.DefaultSystemPrompt+")")
	f.BoolVar(&raw, "raw", false, "Send prompts verbatim instead of framing them as chat")
	f.BoolVar(&asJSON, "json", false, "Print results as JSON")
	f.StringVar(&checkpointPath, "checkpoint", "", "Save a resumable checkpoint here when generation fails")
	f.Int("prompt-chunk", def.PromptChunk, "Layers per sub-call while ingesting the prompt")
	f.Int("decode-chunk", def.DecodeChunk, "Layers per sub-call while decoding")
	f.Int("max-steps", def.MaxDecodeSteps, "Maximum decode steps per prompt")
	f.Int("parallel", def.Parallel, "Prompts generated concurrently")
	f.Bool("non-iterative", false, "Ingest the whole prompt in one phase step")
	return cmd
}

// readPrompts returns args, replacing a lone "-" with stdin.
func readPrompts(stdin io.Reader, args []string) ([]string, error) {
	if len(args) != 1 || args[0] != "-" {
		return args, nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	p := strings.TrimSpace(string(b))
	if p == "" {
		return nil, errors.New("empty prompt on stdin")
	}
	return []string{p}, nil
}

// keep saves the checkpoint carried by err, if any, to path.
func (a *app) keep(err error, path string) error {
	cp, ok := orchestrator.CheckpointOf(err)
	if !ok || path == "" {
		return err
	}
	if serr := checkpoint.Save(path, a.cfg.Client.URL, *cp); serr != nil {
		a.log.Error().Err(serr).Str("path", path).Msg("saving checkpoint failed")
		return err
	}
	a.log.Warn().
		Str("path", path).
		Str("stage", string(cp.Stage)).
		Int("steps", cp.Steps).
		Msgf("checkpoint saved; continue with: chunkgen resume --checkpoint %s", path)
	return err
}
