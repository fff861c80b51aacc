package waybill

import (
	"context"

	"github.com/ridewell/waybill/events"
)

// Hook extends the event hook with typed result delivery and a close
// callback fired when the workflow finishes.
type Hook[T any] interface {
	events.Hook
	OnResult(context.Context, T)
	OnClose(context.Context)
}
