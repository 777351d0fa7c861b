// Package testutil holds in-process test helpers shared across packages.
package testutil

import (
	"context"
	"net"
)

// InMemoryListener is a net.Listener for in-process tests. It pairs
// connections with net.Pipe: the server side receives one end via
// Accept() and the test obtains the client end from Dial().
type InMemoryListener struct {
	conns  chan net.Conn
	closed chan struct{}
	addr   net.Addr
}

type memAddr string

func (m memAddr) Network() string { return "inmem" }
func (m memAddr) String() string  { return string(m) }

// NewInMemoryListener creates a listener with a buffered connection
// queue.
func NewInMemoryListener() *InMemoryListener {
	return &InMemoryListener{
		conns:  make(chan net.Conn, 16),
		closed: make(chan struct{}),
		addr:   memAddr("inmemory"),
	}
}

func (l *InMemoryListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

func (l *InMemoryListener) Close() error {
	select {
	case <-l.closed:
		return nil
	default:
	}

	close(l.closed)

	// Drain any pending connections and close them to avoid leaks.
	for {
		select {
		case c := <-l.conns:
			if c != nil {
				_ = c.Close()
			}
		default:
			return nil
		}
	}
}

func (l *InMemoryListener) Addr() net.Addr { return l.addr }

// Dial creates a client-side connection paired with a server-side
// connection that will be returned by the next Accept().
func (l *InMemoryListener) Dial() (net.Conn, error) {
	c1, c2 := net.Pipe()
	select {
	case l.conns <- c1:
		return c2, nil
	case <-l.closed:
		c1.Close()
		c2.Close()
		return nil, net.ErrClosed
	}
}

// DialContext adapts Dial to the dialer signature used by client
// options, ignoring the network and address.
func (l *InMemoryListener) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Dial()
}
