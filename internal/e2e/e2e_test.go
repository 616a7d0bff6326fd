package e2e

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"chunkgen/internal/chat"
	"chunkgen/internal/checkpoint"
	"chunkgen/internal/httpapi"
	"chunkgen/internal/orchestrator"
	"chunkgen/internal/remote"
	"chunkgen/internal/simulator"
	"chunkgen/internal/wire"
	"chunkgen/pkg/types"
)

// TestE2E_GenerateOverHTTP drives a full generation through the HTTP client
// and server with both payload encodings.
func TestE2E_GenerateOverHTTP(t *testing.T) {
	for _, codec := range []wire.Codec{wire.JSON, wire.CBOR} {
		t.Run(codec.Name(), func(t *testing.T) {
			srv, engine := newService(t, simulator.DefaultConfig(), nil)
			orch := orchestrator.NewWithConfig(orchestrator.Config{
				Backend:     newClient(t, srv.URL, codec, ""),
				PromptChunk: 12,
				DecodeChunk: 6,
			})

			var streamed strings.Builder
			res, err := orch.Generate(context.Background(), chat.Prompt("Where is Poland placed?", ""), func(s string) error {
				streamed.WriteString(s)
				return nil
			})
			require.NoError(t, err)
			require.Equal(t, "Echo: Where is Poland placed?", res.Text)
			require.Equal(t, res.Text, streamed.String())
			require.True(t, res.EndOfSequence)

			// Every advance the orchestrator counted reached the service, none was rejected.
			st := engine.Status()
			require.Equal(t, uint64(res.SubCalls), st.Calls[string(types.OpAdvance)])
			require.Zero(t, st.BudgetRejections)
			require.Equal(t, uint64(1), st.Calls[string(types.OpStartPrompt)])
		})
	}
}

// TestE2E_BudgetExceededIsRemoteFailure verifies an over-budget chunk size is
// reported by the service and surfaces with a checkpoint.
func TestE2E_BudgetExceededIsRemoteFailure(t *testing.T) {
	srv, engine := newService(t, simulator.DefaultConfig(), nil)
	orch := orchestrator.NewWithConfig(orchestrator.Config{
		Backend:     newClient(t, srv.URL, wire.CBOR, ""),
		PromptChunk: 13,
	})
	_, err := orch.Generate(context.Background(), "hi", nil)
	require.Error(t, err)
	require.True(t, orchestrator.IsRemoteCallFailure(err))
	require.True(t, remote.IsBudgetExceeded(err))
	require.False(t, orchestrator.IsProtocolViolation(err))

	cp, ok := orchestrator.CheckpointOf(err)
	require.True(t, ok)
	require.Equal(t, orchestrator.StagePrompt, cp.Stage)
	require.NotNil(t, cp.Run)
	require.Equal(t, types.NotStarted(), cp.Run.Progress)
	require.Equal(t, uint64(1), engine.Status().BudgetRejections)
}

// TestE2E_ResumeFromCheckpointFile interrupts a generation with a transient
// server failure, persists the checkpoint and finishes on another instance.
func TestE2E_ResumeFromCheckpointFile(t *testing.T) {
	cfg := simulator.Config{Layers: 9, MaxLayersPerCall: 4, PromptSlice: 5, MaxReplyBytes: 32}
	prompt := "a prompt longer than one slice"

	clean, _ := newService(t, cfg, nil)
	want, err := orchestrator.NewWithConfig(orchestrator.Config{
		Backend: newClient(t, clean.URL, wire.JSON, ""), PromptChunk: 4, DecodeChunk: 3,
	}).Generate(context.Background(), prompt, nil)
	require.NoError(t, err)

	var advances atomic.Int64
	flaky, _ := newService(t, cfg, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/advance" && advances.Add(1) == 40 {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	var before strings.Builder
	_, err = orchestrator.NewWithConfig(orchestrator.Config{
		Backend: newClient(t, flaky.URL, wire.JSON, ""), PromptChunk: 4, DecodeChunk: 3,
	}).Generate(context.Background(), prompt, func(s string) error {
		before.WriteString(s)
		return nil
	})
	require.Error(t, err)
	cp, ok := orchestrator.CheckpointOf(err)
	require.True(t, ok)
	require.Equal(t, before.String(), cp.Text)

	path := filepath.Join(t.TempDir(), "cp.cbor")
	require.NoError(t, checkpoint.Save(path, flaky.URL, *cp))
	f, err := checkpoint.Load(path)
	require.NoError(t, err)
	require.Equal(t, flaky.URL, f.BaseURL)

	fresh, _ := newService(t, cfg, nil)
	var after strings.Builder
	got, err := orchestrator.NewWithConfig(orchestrator.Config{
		Backend: newClient(t, fresh.URL, wire.CBOR, ""), PromptChunk: 4, DecodeChunk: 3,
	}).Resume(context.Background(), f.Checkpoint, func(s string) error {
		after.WriteString(s)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, want.Text, got.Text)
	require.Equal(t, want.Text, before.String()+after.String())
	require.Equal(t, want.SubCalls, got.SubCalls)
	require.Equal(t, want.Steps, got.Steps)
}

func TestE2E_APIKey(t *testing.T) {
	httpapi.SetAPIKey("s3cret")
	t.Cleanup(func() { httpapi.SetAPIKey("") })
	srv, _ := newService(t, simulator.DefaultConfig(), nil)

	_, err := orchestrator.New(newClient(t, srv.URL, wire.JSON, "")).Generate(context.Background(), "hi", nil)
	require.Error(t, err)
	require.Equal(t, types.KindUnauthorized, remote.KindOf(err))

	res, err := orchestrator.New(newClient(t, srv.URL, wire.JSON, "s3cret")).Generate(context.Background(), "hi", nil)
	require.NoError(t, err)
	require.Equal(t, "Echo: hi", res.Text)
}
