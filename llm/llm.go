package llm

import (
	"context"
	"time"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text     string
	Usage    Usage
	Duration time.Duration
}

type Request struct {
	Model       string
	Messages    []Message
	ForceJSON   bool
	MaxTokens   int
	Temperature float64
}

// Client is the single capability a model backend exposes. Both backend
// variants (OpenAI-style and Anthropic-style) are invoked identically
// through it: one outbound network call per Chat, no retries at this layer.
type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
