// Package llm defines the language-model port (interface) and helpers
// for cleaning up model output.
package llm

import (
	"context"
	"strings"
)

// Role of a chat message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single chat-completion call. JSONOnly asks the provider for
// a structured JSON response; callers still parse defensively.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	JSONOnly    bool
}

// Client is the port interface for chat completions.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// StripFences removes a markdown code fence wrapping s, if present.
// Models asked for JSON sometimes wrap it in ```json fences anyway;
// anything else is returned unchanged.
func StripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return s
	}
	t = strings.TrimSuffix(t, "```")
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		// Drop a bare language tag such as "json" on the opening fence line.
		if tag := strings.TrimSpace(t[:i]); !strings.ContainsAny(tag, "{[\"") {
			t = t[i+1:]
		}
	}
	return strings.TrimSpace(t)
}
