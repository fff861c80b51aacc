package provider

import (
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"

	"github.com/ridewell/waybill/internal/shorttermmemory"
	"github.com/ridewell/waybill/messages"
)

// StreamEvent is the union of events a provider can emit while serving a
// completion request.
type StreamEvent interface {
	streamEvent()
}

// Delim marks stream boundaries ("start", "end", "empty").
type Delim struct {
	Delim string `json:"delim"`
}

func (Delim) streamEvent() {}

// Chunk is an incremental fragment of a streamed response.
type Chunk[T messages.Response] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Chunk     T               `json:"chunk"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (Chunk[T]) streamEvent() {}

// Response is a complete model response, together with the memory checkpoint
// the request was issued against.
type Response[T messages.Response] struct {
	RunID      uuid.UUID                      `json:"run_id"`
	TurnID     uuid.UUID                      `json:"turn_id"`
	Checkpoint shorttermmemory.Checkpoint     `json:"-"`
	Response   T                              `json:"response"`
	Timestamp  strfmt.DateTime                `json:"timestamp"`
}

func (Response[T]) streamEvent() {}

// Error reports a provider-side failure.
type Error struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Err       error           `json:"error"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (Error) streamEvent() {}

func (e Error) Error() string {
	return e.Err.Error()
}
