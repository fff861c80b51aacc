// Package shorttermmemory manages the message history of a single run,
// supporting fork/join so tool dispatch can work on an isolated view of the
// thread before its results are folded back in.
package shorttermmemory

import (
	"iter"
	"slices"

	"github.com/google/uuid"

	"github.com/ridewell/waybill/messages"
	"github.com/ridewell/waybill/pkg/uuidx"
)

// AggregatedMessages is an ordered collection of type-erased messages.
type AggregatedMessages []messages.Message[messages.ModelMessage]

// Len returns the number of messages in the collection.
func (a AggregatedMessages) Len() int {
	return len(a)
}

// New creates an empty aggregator with a fresh id.
func New() *Aggregator {
	return &Aggregator{
		id:       uuidx.New(),
		messages: make(AggregatedMessages, 0),
	}
}

// Aggregator accumulates the messages of a run in order. It is not safe for
// concurrent use; each run owns its aggregator.
type Aggregator struct {
	id       uuid.UUID
	messages AggregatedMessages
	initLen  int // length at fork time, used for joining
}

// ID returns the aggregator's identifier. Forked aggregators get their own.
func (a *Aggregator) ID() uuid.UUID {
	return a.id
}

// Len returns the total number of messages held.
func (a *Aggregator) Len() int {
	return a.messages.Len()
}

// TurnLen returns the number of messages added since the last fork.
func (a *Aggregator) TurnLen() int {
	return len(a.messages) - a.initLen
}

// Messages returns a copy of all messages.
func (a *Aggregator) Messages() AggregatedMessages {
	return slices.Clone(a.messages)
}

// MessagesIter iterates the messages without copying.
func (a *Aggregator) MessagesIter() iter.Seq[messages.Message[messages.ModelMessage]] {
	return slices.Values(a.messages)
}

func eraseType[T messages.ModelMessage](m messages.Message[T]) messages.Message[messages.ModelMessage] {
	return messages.Message[messages.ModelMessage]{
		RunID:     m.RunID,
		TurnID:    m.TurnID,
		Payload:   m.Payload,
		Sender:    m.Sender,
		Timestamp: m.Timestamp,
	}
}

// AddUserPrompt records a user message.
func (a *Aggregator) AddUserPrompt(m messages.Message[messages.UserMessage]) {
	a.add(eraseType(m))
}

// AddAssistantMessage records an assistant response.
func (a *Aggregator) AddAssistantMessage(m messages.Message[messages.AssistantMessage]) {
	a.add(eraseType(m))
}

// AddToolCall records a tool invocation requested by the model.
func (a *Aggregator) AddToolCall(m messages.Message[messages.ToolCallMessage]) {
	a.add(eraseType(m))
}

// AddToolResponse records a tool's result.
func (a *Aggregator) AddToolResponse(m messages.Message[messages.ToolResponse]) {
	a.add(eraseType(m))
}

func (a *Aggregator) add(m messages.Message[messages.ModelMessage]) {
	a.messages = append(a.messages, m)
}

// Fork returns a new aggregator seeded with a copy of the current messages.
// Join folds messages added after the fork point back into the parent.
func (a *Aggregator) Fork() *Aggregator {
	return &Aggregator{
		id:       uuidx.New(),
		messages: slices.Clone(a.messages),
		initLen:  a.Len(),
	}
}

// Join appends the messages b gained since it was forked.
func (a *Aggregator) Join(b *Aggregator) {
	a.messages = append(a.messages, b.messages[b.initLen:]...)
}

// Checkpoint snapshots the aggregator's current state.
func (a *Aggregator) Checkpoint() Checkpoint {
	return Checkpoint{
		id:       a.id,
		messages: slices.Clone(a.messages),
		initLen:  a.initLen,
	}
}

// Checkpoint is an immutable snapshot of an aggregator.
type Checkpoint struct {
	id       uuid.UUID
	messages AggregatedMessages
	initLen  int
}

// ID returns the source aggregator's id.
func (c *Checkpoint) ID() uuid.UUID {
	return c.id
}

// Messages returns a copy of the snapshotted messages.
func (c *Checkpoint) Messages() AggregatedMessages {
	return slices.Clone(c.messages)
}

// MergeInto appends the messages recorded after the snapshot's fork point to
// another aggregator.
func (c *Checkpoint) MergeInto(other *Aggregator) {
	other.messages = append(other.messages, c.messages[c.initLen:]...)
	if other.id == uuid.Nil {
		other.id = c.id
	}
}
