// Package messages defines the typed message envelopes exchanged between the
// user, the model provider, and tool invocations during a conversation run.
package messages

import (
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"

	"github.com/ridewell/waybill/pkg/uuidx"
)

// ModelMessage is the marker interface for payloads that can appear in a
// conversation thread.
type ModelMessage interface {
	message()
}

// Request marks payloads that flow towards the model.
type Request interface {
	ModelMessage
	request()
}

// Response marks payloads produced by the model.
type Response interface {
	ModelMessage
	response()
}

// Message wraps a payload with run metadata. RunID identifies the overall
// execution, TurnID the aggregator fork the message was recorded on.
type Message[T ModelMessage] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Payload   T               `json:"payload"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// InstructionsMessage carries the system prompt for a run.
type InstructionsMessage struct {
	Content string `json:"content"`
}

func (InstructionsMessage) message() {}

// UserMessage is a prompt entered by the end user.
type UserMessage struct {
	Content ContentOrParts `json:"content"`
}

func (UserMessage) message() {}
func (UserMessage) request() {}

// AssistantMessage is a completion produced by the model.
type AssistantMessage struct {
	Content AssistantContentOrParts `json:"content"`
	Refusal string                  `json:"refusal,omitempty"`
}

func (AssistantMessage) message()  {}
func (AssistantMessage) response() {}

// ToolCallData describes a single function invocation requested by the model.
// Arguments is the raw JSON object produced by the model.
type ToolCallData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCallMessage is the model's request to invoke one or more tools.
type ToolCallMessage struct {
	ToolCalls []ToolCallData `json:"tool_calls"`
}

func (ToolCallMessage) message()  {}
func (ToolCallMessage) response() {}

// ToolResponse carries a tool's result back to the model.
type ToolResponse struct {
	ToolName   string `json:"tool_name"`
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
}

func (ToolResponse) message() {}
func (ToolResponse) request() {}

// Builder assembles message envelopes with consistent metadata.
type Builder struct {
	sender string
	runID  uuid.UUID
	_      struct{}
}

// New starts a message builder.
func New() Builder {
	return Builder{}
}

// WithSender sets the sender recorded on built messages.
func (b Builder) WithSender(sender string) Builder {
	b.sender = sender
	return b
}

// WithRunID stamps built messages with the given run id.
func (b Builder) WithRunID(id uuid.UUID) Builder {
	b.runID = id
	return b
}

func (b Builder) envelope() (uuid.UUID, strfmt.DateTime) {
	runID := b.runID
	if runID == uuid.Nil {
		runID = uuidx.New()
	}
	return runID, strfmt.DateTime(time.Now())
}

// UserPrompt builds a user message from plain text.
func (b Builder) UserPrompt(content string) Message[UserMessage] {
	runID, ts := b.envelope()
	return Message[UserMessage]{
		RunID:     runID,
		Payload:   UserMessage{Content: ContentOrParts{Content: content}},
		Sender:    b.sender,
		Timestamp: ts,
	}
}

// AssistantMessage builds an assistant message from plain text.
func (b Builder) AssistantMessage(content string) Message[AssistantMessage] {
	runID, ts := b.envelope()
	return Message[AssistantMessage]{
		RunID:     runID,
		Payload:   AssistantMessage{Content: AssistantContentOrParts{Content: content}},
		Sender:    b.sender,
		Timestamp: ts,
	}
}

// ToolCall builds a tool-call message for the given invocations.
func (b Builder) ToolCall(calls ...ToolCallData) Message[ToolCallMessage] {
	runID, ts := b.envelope()
	return Message[ToolCallMessage]{
		RunID:     runID,
		Payload:   ToolCallMessage{ToolCalls: calls},
		Sender:    b.sender,
		Timestamp: ts,
	}
}

// ToolResponse builds a tool response for the given call id and tool name.
func (b Builder) ToolResponse(callID, toolName, content string) Message[ToolResponse] {
	runID, ts := b.envelope()
	return Message[ToolResponse]{
		RunID:     runID,
		Payload:   ToolResponse{ToolName: toolName, ToolCallID: callID, Content: content},
		Sender:    b.sender,
		Timestamp: ts,
	}
}
