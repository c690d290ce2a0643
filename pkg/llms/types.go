// Package llms provides chat completion providers behind a common interface.
package llms

import "context"

// Message roles follow the chat completion convention.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-agnostic generation request.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Response carries the generated text and token accounting.
type Response struct {
	Content    string
	TokensUsed int
}

// Provider generates chat completions.
type Provider interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
	ModelName() string
}
