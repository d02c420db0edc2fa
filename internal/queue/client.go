package queue

import "context"

// Client enqueues notification messages for asynchronous delivery by
// the worker.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
