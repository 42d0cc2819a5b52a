// Package llm is the model invocation boundary: a small client interface
// over the hosted generative-language API, with a hand-rolled HTTP engine
// and an SDK-backed engine behind the same contract.
package llm

import (
	"context"
	"errors"
)

// Conversation roles on the wire.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one prior exchange entry forwarded with a chat request.
type Turn struct {
	Role string
	Text string
}

// Client defines the minimal interface the tutoring layers use to call a model.
type Client interface {
	// Complete sends a bare prompt and returns the reply text.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSystem sends a prompt with a system instruction.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// CompleteWithHistory forwards accumulated history plus a new message
	// in one round trip and returns the raw reply text.
	CompleteWithHistory(ctx context.Context, systemPrompt string, history []Turn, userPrompt string) (string, error)

	// CompleteWithSchema constrains the reply to a JSON schema.
	CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error)
}

// Recorder receives per-call token counts. *usage.Tracker satisfies this.
type Recorder interface {
	Record(model, operation string, prompt, output int)
}

// ErrSchemaNotSupported is returned when the backend rejects response
// schema enforcement for the selected model.
var ErrSchemaNotSupported = errors.New("response schema not supported by model")
