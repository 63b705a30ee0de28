// Package chat provides a small Chat interface over the reasoning
// service backends the engine talks to: synchronous, non-tool-calling
// request/response only, since every pipeline stage asks the service
// a single question and parses a single JSON reply.
package chat

import (
	"context"
	"encoding/json"
)

// Message is one turn of a chat-completion request.
type Message struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// Options configures a single completion call.
type Options struct {
	Temperature float32
	MaxTokens   int
	JSONMode    bool // request a strict-JSON reply where the backend supports it

	// Schema, when set, pins the reply to a JSON schema on backends
	// with structured-output support; JSONMode alone only guarantees
	// syntactically valid JSON. SchemaName labels the schema for
	// backends that require a name.
	Schema     json.RawMessage
	SchemaName string
}

// Response is a completed chat turn plus token accounting, used by
// the Scorer for its cumulative cost tracking.
type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Chat is implemented by each reasoning-service backend.
type Chat interface {
	Complete(ctx context.Context, messages []Message, opts *Options) (*Response, error)
	ModelName() string
}
