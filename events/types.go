package events

import (
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"

	"github.com/ridewell/waybill/messages"
)

// Event is the union of observable run events. Hooks that fan events out to
// channels (e.g. console renderers) use these types.
type Event interface {
	event()
}

// Delim marks stream boundaries.
type Delim struct {
	Delim string `json:"delim"`
}

func (Delim) event() {}

// Request is a message flowing towards the model.
type Request[T messages.Request] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Message   T               `json:"message"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (Request[T]) event() {}

// Chunk is an incremental fragment of a streamed model response.
type Chunk[T messages.Response] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Chunk     T               `json:"chunk"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (Chunk[T]) event() {}

// Response is a complete model response.
type Response[T messages.Response] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Response  T               `json:"response"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (Response[T]) event() {}

// Result carries the typed final result of a run.
type Result[T any] struct {
	Result T `json:"result"`
}

func (Result[T]) event() {}

// Error is an error event that keeps the run context it occurred in.
type Error struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Sender    string          `json:"sender,omitempty"`
	Err       error           `json:"error"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (e Error) Error() string {
	if e.Sender != "" {
		return fmt.Sprintf("%s: %v", e.Sender, e.Err)
	}
	return fmt.Sprintf("%v", e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

func (Error) event() {}
