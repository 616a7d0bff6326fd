package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/goleak"

	"chunkgen/internal/simulator"
	"chunkgen/pkg/types"
)

func TestGenerateAllKeepsSessionsIndependent(t *testing.T) {
	defer goleak.VerifyNone(t)

	o := New(newSim(t, simulator.DefaultConfig()))
	prompts := make([]string, 12)
	for i := range prompts {
		prompts[i] = fmt.Sprintf("prompt number %d", i)
	}
	results, err := o.GenerateAll(context.Background(), prompts, 4)
	if err != nil {
		t.Fatalf("generate all: %v", err)
	}
	seen := map[string]bool{}
	for i, res := range results {
		if want := "Echo: " + prompts[i]; res.Text != want {
			t.Fatalf("result %d: got %q want %q", i, res.Text, want)
		}
		if seen[res.Session.ID] {
			t.Fatalf("session id %q reused", res.Session.ID)
		}
		seen[res.Session.ID] = true
	}
}

func TestGenerateAllStopsOnFirstFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	o := New(newSim(t, simulator.Config{Layers: 8, PromptSlice: 2, MaxReplyBytes: 64}))
	// the simulator rejects an empty prompt
	prompts := []string{"fine", "", "also fine but long enough to still be running"}
	_, err := o.GenerateAll(context.Background(), prompts, 0)
	if !IsRemoteCallFailure(err) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	if simulator.KindOf(err) != types.KindBadRequest {
		t.Fatalf("expected bad_request cause, got %v", err)
	}
}
