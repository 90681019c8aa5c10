package transport

import (
	"context"
	"time"
)

// Handler consumes one inbound reply event from the counterpart bot.
// seq is the transport-assigned sequence identifier, strictly increasing
// per connection.
type Handler func(ctx context.Context, seq int64, at time.Time, raw string)

// Transport bridges one external chat connection (for example Telegram)
// into the relay. Send returns the sequence identifier assigned to the
// outbound message, globally comparable with inbound identifiers for
// "after" ordering.
type Transport interface {
	Name() string
	Send(ctx context.Context, text string) (int64, error)
	Run(ctx context.Context, handler Handler) error
}
