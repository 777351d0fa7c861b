package broker

import "context"

// Conn is a single client-server session with the broker. A connection
// carries at most one outstanding request at a time: Send registers or
// replaces it, Receive delivers the next response for it. Receive must
// not be called concurrently on the same connection.
type Conn interface {
	// Send registers a request on the connection, replacing any request
	// already outstanding.
	Send(ctx context.Context, req Request) error

	// Receive delivers the next response for the outstanding request.
	// It fails with ErrNoConnection when called before Send, with
	// ErrMalformedResponse when the outstanding request cannot be
	// answered by this connection, and with ErrTimeout when the broker
	// does not produce a response.
	Receive(ctx context.Context) (Response, error)

	Close() error
}
