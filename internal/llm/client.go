package llm

import "context"

type Message struct {
	Role    string `json:"role"` // user, assistant
	Content string `json:"content"`
}

type Response struct {
	Content string
}

// Client is a single-shot chat completion. Implementations are deterministic
// where the provider allows it (temperature 0).
type Client interface {
	Chat(ctx context.Context, systemPrompt string, messages []Message) (*Response, error)
}
