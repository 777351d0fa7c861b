package sim

import (
	"context"
	"encoding/binary"

	"github.com/INLOpen/nexusctl/broker"
	"github.com/INLOpen/nexusctl/core"
)

// readerConn answers Receive calls for a connection whose outstanding
// request streams points for an address within [start, end). The simple
// and extended read shapes share the filtering and pagination behavior
// and differ only in the payload shape produced on a hit.
type readerConn struct {
	store *Store
	name  string
}

var _ broker.Conn = (*readerConn)(nil)

// Send registers the request, replacing any outstanding one and
// resetting the cursor to the start of the backing sequence.
func (c *readerConn) Send(_ context.Context, req broker.Request) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	register(c.store.readerConns, c.name, req)
	return nil
}

func (c *readerConn) Receive(_ context.Context) (broker.Response, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	sess, ok := c.store.readerConns[c.name]
	if !ok {
		return nil, broker.ErrNoConnection
	}

	var start, end int64
	var extended bool
	switch req := sess.req.(type) {
	case broker.SimpleReadRequest:
		start, end = req.Start, req.End
	case broker.ExtendedReadRequest:
		start, end = req.Start, req.End
		extended = true
	default:
		return nil, broker.ErrMalformedResponse
	}

	// Out-of-range points are skipped transparently: they never appear
	// in responses and do not stop the scan. Faults do.
	rec, next, outcome := scan(c.store.points, sess.cursor, func(r PointRecord) bool {
		return r.Point.Timestamp >= start && r.Point.Timestamp < end
	})
	sess.cursor = next
	switch outcome {
	case scanEnd:
		return broker.EndOfStream{}, nil
	case scanFault:
		return nil, broker.ErrTimeout
	}

	if extended {
		payload := make([]byte, 8)
		binary.BigEndian.PutUint64(payload, rec.Point.Value)
		return broker.ExtendedStreamEntry{
			Burst: rec.Burst,
			Point: core.ExtendedPoint{
				Address:   rec.Point.Address,
				Timestamp: rec.Point.Timestamp,
				Payload:   payload,
			},
		}, nil
	}
	return broker.SimpleStreamEntry{Burst: rec.Burst, Point: rec.Point}, nil
}

func (c *readerConn) Close() error {
	return nil
}
