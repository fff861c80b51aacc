// Package events defines the hook interface through which callers observe a
// conversation run, plus the error event that preserves run context.
package events

import (
	"context"

	"github.com/ridewell/waybill/messages"
)

// Hook receives lifecycle callbacks while a run executes. Implementations
// must be safe for use from the executor goroutine.
type Hook interface {
	OnUserPrompt(context.Context, messages.Message[messages.UserMessage])
	OnAssistantChunk(context.Context, messages.Message[messages.AssistantMessage])
	OnToolCallChunk(context.Context, messages.Message[messages.ToolCallMessage])
	OnAssistantMessage(context.Context, messages.Message[messages.AssistantMessage])
	OnToolCallMessage(context.Context, messages.Message[messages.ToolCallMessage])
	OnToolCallResponse(context.Context, messages.Message[messages.ToolResponse])
	OnError(context.Context, error)
}

// NoopHook ignores every callback. Embed it to implement only the callbacks
// you care about.
type NoopHook struct{}

func (NoopHook) OnUserPrompt(context.Context, messages.Message[messages.UserMessage])            {}
func (NoopHook) OnAssistantChunk(context.Context, messages.Message[messages.AssistantMessage])   {}
func (NoopHook) OnToolCallChunk(context.Context, messages.Message[messages.ToolCallMessage])     {}
func (NoopHook) OnAssistantMessage(context.Context, messages.Message[messages.AssistantMessage]) {}
func (NoopHook) OnToolCallMessage(context.Context, messages.Message[messages.ToolCallMessage])   {}
func (NoopHook) OnToolCallResponse(context.Context, messages.Message[messages.ToolResponse])     {}
func (NoopHook) OnError(context.Context, error)                                                  {}
