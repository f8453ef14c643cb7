package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a minimal chat message passed to the generation backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries one generation call: an optional system instruction plus
// the user-visible messages.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Response is the normalized generation result.
type Response struct {
	Text         string
	FinishReason string
}

// Client is implemented by generation backends. Complete blocks until the
// model answers, the context is cancelled, or the configured timeout fires.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
