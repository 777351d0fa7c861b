package sim

import (
	"context"

	"github.com/INLOpen/nexusctl/broker"
)

// contentsConn answers Receive calls for a connection whose outstanding
// request enumerates an origin's contents.
type contentsConn struct {
	store *Store
	name  string
}

var _ broker.Conn = (*contentsConn)(nil)

// Send registers the request. It never fails and never touches the
// backing data; a request the contents family cannot answer is detected
// at Receive time.
func (c *contentsConn) Send(_ context.Context, req broker.Request) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	register(c.store.contentsConns, c.name, req)
	return nil
}

func (c *contentsConn) Receive(_ context.Context) (broker.Response, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	sess, ok := c.store.contentsConns[c.name]
	if !ok {
		return nil, broker.ErrNoConnection
	}
	if _, ok := sess.req.(broker.ContentsListRequest); !ok {
		return nil, broker.ErrMalformedResponse
	}

	rec, next, outcome := scan(c.store.contents, sess.cursor, func(ContentsRecord) bool {
		return true
	})
	sess.cursor = next
	switch outcome {
	case scanEnd:
		return broker.EndOfContents{}, nil
	case scanFault:
		return nil, broker.ErrTimeout
	}
	return broker.ContentsEntry{Address: rec.Address, Source: rec.Source}, nil
}

func (c *contentsConn) Close() error {
	return nil
}
