// Package llm talks to generative-model providers on behalf of the tutor.
package llm

import (
	"context"
	"encoding/json"
)

// Provider is the core abstraction for model interaction.
type Provider interface {
	// Generate sends a prompt and returns the model's output. When the
	// request carries a Schema, Content is validated JSON conforming to it;
	// otherwise Content is the raw reply text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	// System sets the model's role and constraints.
	System string

	// Messages is the conversation so far, oldest first. Few-shot examples
	// are expressed as alternating user/assistant turns.
	Messages []Message

	// Schema, when set, asks the provider for structured JSON output.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

// Message is a single conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies the schema, kebab-case, e.g. "translation-verdict".
	// Compiled schemas are cached by name.
	Name string

	Description string

	// Definition is a JSON Schema document as a map.
	Definition map[string]any
}

// Response holds the model's output.
type Response struct {
	Content json.RawMessage
	Usage   Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Text returns Content as a trimmed string.
func (r *Response) Text() string {
	return string(trimSpace(r.Content))
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Normalized stop reasons.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

// checkTruncated rejects a structured reply that hit the token limit. Chat
// replies carry no schema and are returned cut short rather than dropped.
func checkTruncated(req Request, stop string, content json.RawMessage) error {
	if req.Schema != nil && stop == StopMaxTokens {
		return &ErrMaxTokensExceeded{Content: content}
	}
	return nil
}
