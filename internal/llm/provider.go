package llm

import "context"

// Provider is the boundary to an external generative content service.
type Provider interface {
	// Generate sends a prompt and returns the generated text. When the
	// request carries a Schema the provider asks for structured output and
	// Text is JSON validated against that schema.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the service.
type Request struct {
	// System is the system prompt.
	System string

	// Messages is the conversation. Personalization always sends a single
	// user message.
	Messages []Message

	// Schema, when set, requests structured JSON output.
	Schema *Schema

	// MaxTokens bounds the response length.
	MaxTokens int

	// Temperature controls randomness. Zero leaves the provider default.
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

// Schema defines the JSON structure expected in structured mode.
type Schema struct {
	// Name identifies the schema and keys the compiled-schema cache.
	Name string

	Description string

	// Definition is the JSON Schema document.
	Definition map[string]any
}

// Response holds the service output.
type Response struct {
	// Text is the generated output, unmodified.
	Text string

	Usage Usage

	// Model is the model that served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage tracks token consumption for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// UserPrompt is a convenience for single-turn requests.
func UserPrompt(prompt string) []Message {
	return []Message{{Role: RoleUser, Content: prompt}}
}
