package broker

import "errors"

var (
	// ErrNoConnection is returned by Receive when no request has been
	// sent on the connection.
	ErrNoConnection = errors.New("broker: no outstanding request on connection")

	// ErrMalformedResponse is returned when the outstanding request does
	// not match the family of responses the connection can produce.
	ErrMalformedResponse = errors.New("broker: response does not match outstanding request")

	// ErrTimeout is returned when the broker fails to produce the next
	// response in time.
	ErrTimeout = errors.New("broker: timed out waiting for response")
)
