package chat

import (
	"strings"
	"testing"
)

func TestPromptUsesDefaultSystem(t *testing.T) {
	got := Prompt("Where is Poland placed?", "")
	want := "<|begin_of_text|>" +
		"<|start_header_id|>system<|end_header_id|>You are a helpful assistant. Respond using one sentence<|eot_id|>" +
		"<|start_header_id|>user<|end_header_id|>Where is Poland placed?<|eot_id|>" +
		"<|start_header_id|>assistant<|end_header_id|>"
	if got != want {
		t.Fatalf("prompt mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestPromptCustomSystem(t *testing.T) {
	got := Prompt("hi", "Be terse")
	if !strings.Contains(got, "system<|end_header_id|>Be terse<|eot_id|>") {
		t.Fatalf("custom system missing: %q", got)
	}
	if strings.Contains(got, DefaultSystemPrompt) {
		t.Fatalf("default system leaked: %q", got)
	}
}

func TestRender(t *testing.T) {
	got, err := Render([]Message{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
		{Role: RoleUser, Content: "c"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Count(got, "<|eot_id|>") != 3 || !strings.HasSuffix(got, "assistant<|end_header_id|>") {
		t.Fatalf("unexpected framing: %q", got)
	}
	if _, err := Render([]Message{{Role: "tool", Content: "x"}}); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
