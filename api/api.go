// Package api holds the interfaces that tie the agent definition to the
// provider and executor without creating import cycles.
package api

import (
	"github.com/ridewell/waybill/provider"
	"github.com/ridewell/waybill/tool"
	"github.com/ridewell/waybill/types"
)

// Model pairs a model name with the provider that serves it.
type Model interface {
	Name() string
	Provider() provider.Provider
}

// Agent is the minimal surface the executor needs from an agent definition.
type Agent interface {
	// Name returns the agent's unique identifier, used for logging and for
	// addressing the agent in workflow steps.
	Name() string

	// Model returns the hosted model backing this agent.
	Model() Model

	// Tools returns the functions this agent may call.
	Tools() []tool.Definition

	// ParallelToolCalls reports whether the model may batch tool calls.
	ParallelToolCalls() bool

	// RenderInstructions produces the system prompt, applying the given
	// context variables when the instructions are templated.
	RenderInstructions(types.ContextVars) (string, error)
}
