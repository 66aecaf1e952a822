// Package llm defines the provider-agnostic client abstraction used by the
// LLM intent analyzer (C4) and the optional response enhancer (C10d).
// Trimmed from the teacher's runtime/agent/model package: this spec has no
// tool-calling or multimodal agent loop, so only the plain text-completion
// surface survives (no ToolDefinition/ToolCall/ImagePart/DocumentPart).
package llm

import "context"

// ConversationRole is the role for a message in a conversation.
type ConversationRole string

const (
	RoleSystem    ConversationRole = "system"
	RoleUser      ConversationRole = "user"
	RoleAssistant ConversationRole = "assistant"
)

// Message is a single chat message with plain-text content. Analyzers and
// the enhancer only ever exchange text, so unlike the teacher's model.Message
// this has no typed Parts union.
type Message struct {
	Role ConversationRole
	Text string
}

// Request captures inputs for a model invocation.
type Request struct {
	// Model is the provider-specific model identifier when specified.
	Model string
	// ModelClass selects a model family when Model is not specified.
	ModelClass ModelClass
	// Messages is the ordered transcript provided to the model.
	Messages []Message
	// Temperature controls sampling when supported by the provider.
	Temperature float32
	// MaxTokens caps the number of output tokens when supported.
	MaxTokens int
}

// ModelClass identifies the model family; providers map these to concrete
// model identifiers (teacher pattern, runtime/agent/model.ModelClass).
type ModelClass string

const (
	ModelClassDefault ModelClass = "default"
	ModelClassSmall   ModelClass = "small"
)

// Response is the result of a non-streaming invocation.
type Response struct {
	Text  string
	Usage TokenUsage
}

// TokenUsage tracks token counts for a model call.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Client is the provider-agnostic model client (teacher pattern:
// runtime/agent/model.Client, trimmed to the Complete-only surface this spec
// needs — streaming responses are not part of the intent-analysis or
// response-enhancement contracts).
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}
