// Package chat frames conversations as Llama-3 instruct prompts.
package chat

import (
	"fmt"
	"strings"
)

// Role of a message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultSystemPrompt is used by Prompt when no system message is given.
const DefaultSystemPrompt = "You are a helpful assistant. Respond using one sentence"

const (
	beginOfText = "<|begin_of_text|>"
	startHeader = "<|start_header_id|>"
	endHeader   = "<|end_header_id|>"
	endOfTurn   = "<|eot_id|>"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

func (m Message) String() string {
	return startHeader + string(m.Role) + endHeader + m.Content + endOfTurn
}

// Render frames messages and opens the assistant turn the model completes.
func Render(messages []Message) (string, error) {
	var b strings.Builder
	b.WriteString(beginOfText)
	for i, m := range messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return "", fmt.Errorf("chat: message %d has unknown role %q", i, m.Role)
		}
		b.WriteString(m.String())
	}
	b.WriteString(startHeader + string(RoleAssistant) + endHeader)
	return b.String(), nil
}

// Prompt frames a single user question under a system instruction. An empty
// system selects DefaultSystemPrompt.
func Prompt(user, system string) string {
	if system == "" {
		system = DefaultSystemPrompt
	}
	// Both roles are known, Render cannot fail.
	out, _ := Render([]Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	})
	return out
}
