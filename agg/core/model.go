package core

import (
	"context"
)

// Model represents a hosted model that can stream responses to a conversation.
type Model interface {
	OpenStream(ctx context.Context, msgs []Msg) (ResponseStream, error)
	ID() string
}

// ResponseStream represents a stream of events from a model response.
// Implementations must close both the underlying stream and the output channel when done.
type ResponseStream interface {
	Consume(ctx context.Context, out chan<- Event)
}
