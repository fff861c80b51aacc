// Package provider abstracts hosted language-model runtimes behind a chat
// completion interface that emits a stream of typed events.
package provider

import (
	"context"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"

	"github.com/ridewell/waybill/internal/shorttermmemory"
	"github.com/ridewell/waybill/tool"
)

// Provider is implemented per model vendor (e.g. OpenAI).
type Provider interface {
	ChatCompletion(context.Context, CompletionParams) (<-chan StreamEvent, error)
}

// CompletionParams carries everything a provider needs for one completion
// request.
type CompletionParams struct {
	// RunID identifies this completion request.
	RunID uuid.UUID

	// Instructions is the rendered system prompt.
	Instructions string

	// Thread holds the conversation history.
	Thread *shorttermmemory.Aggregator

	// Stream selects incremental chunk delivery over a single response.
	Stream bool

	// ResponseSchema, when set, asks the model for structured output.
	ResponseSchema *StructuredOutput

	// Model names the model and its provider. Declared structurally to avoid
	// importing the api package.
	Model interface {
		Name() string
		Provider() Provider
	}

	// Tools lists the functions the model may call.
	Tools []tool.Definition

	_ struct{}
}

// StructuredOutput describes a response format the model should follow.
type StructuredOutput struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
}
