package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INLOpen/nexusctl/broker"
	"github.com/INLOpen/nexusctl/core"
)

func simplePoint(addr core.Address, ts int64, value uint64) core.SimplePoint {
	return core.SimplePoint{Address: addr, Timestamp: ts, Value: value}
}

func TestContents_Enumeration(t *testing.T) {
	ctx := context.Background()
	store := NewStore([]Entry[ContentsRecord]{
		Value(ContentsRecord{Address: 1, Source: core.SourceDict{"host": "web01"}}),
		Value(ContentsRecord{Address: 2, Source: core.SourceDict{"host": "web02"}}),
	}, nil)

	conn := store.OpenContents("c1")
	require.NoError(t, conn.Send(ctx, broker.ContentsListRequest{Origin: "ABCDEF"}))

	resp, err := conn.Receive(ctx)
	require.NoError(t, err)
	entry, ok := resp.(broker.ContentsEntry)
	require.True(t, ok, "expected a contents entry, got %T", resp)
	assert.Equal(t, core.Address(1), entry.Address)
	assert.Equal(t, core.SourceDict{"host": "web01"}, entry.Source)

	resp, err = conn.Receive(ctx)
	require.NoError(t, err)
	entry, ok = resp.(broker.ContentsEntry)
	require.True(t, ok, "expected a contents entry, got %T", resp)
	assert.Equal(t, core.Address(2), entry.Address)

	resp, err = conn.Receive(ctx)
	require.NoError(t, err)
	assert.IsType(t, broker.EndOfContents{}, resp)
}

func TestContents_EmptyBackingData(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, nil)

	conn := store.OpenContents("c1")
	require.NoError(t, conn.Send(ctx, broker.ContentsListRequest{Origin: "ABCDEF"}))

	resp, err := conn.Receive(ctx)
	require.NoError(t, err)
	assert.IsType(t, broker.EndOfContents{}, resp)
}

func TestContents_ReceiveBeforeSend(t *testing.T) {
	store := NewStore(nil, nil)
	conn := store.OpenContents("never-sent")

	_, err := conn.Receive(context.Background())
	require.ErrorIs(t, err, broker.ErrNoConnection)
}

func TestContents_WrongRequestFamily(t *testing.T) {
	ctx := context.Background()
	store := NewStore([]Entry[ContentsRecord]{
		Value(ContentsRecord{Address: 1}),
	}, nil)

	conn := store.OpenContents("c1")
	require.NoError(t, conn.Send(ctx, broker.SimpleReadRequest{Origin: "ABCDEF", Address: 1, Start: 0, End: 10}))

	_, err := conn.Receive(ctx)
	require.ErrorIs(t, err, broker.ErrMalformedResponse)

	// The registry entry survives the error: a proper request restarts
	// the connection from the beginning.
	require.NoError(t, conn.Send(ctx, broker.ContentsListRequest{Origin: "ABCDEF"}))
	resp, err := conn.Receive(ctx)
	require.NoError(t, err)
	assert.IsType(t, broker.ContentsEntry{}, resp)
}

func TestContents_FaultStickiness(t *testing.T) {
	ctx := context.Background()
	store := NewStore([]Entry[ContentsRecord]{
		Value(ContentsRecord{Address: 1}),
		Fault[ContentsRecord](),
		Value(ContentsRecord{Address: 3}),
	}, nil)

	conn := store.OpenContents("c1")
	require.NoError(t, conn.Send(ctx, broker.ContentsListRequest{Origin: "ABCDEF"}))

	resp, err := conn.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Address(1), resp.(broker.ContentsEntry).Address)

	// The fault never auto-advances, no matter how often we retry.
	for i := 0; i < 5; i++ {
		_, err = conn.Receive(ctx)
		require.ErrorIs(t, err, broker.ErrTimeout)
	}

	// A fresh send resets the cursor to the beginning.
	require.NoError(t, conn.Send(ctx, broker.ContentsListRequest{Origin: "ABCDEF"}))
	resp, err = conn.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Address(1), resp.(broker.ContentsEntry).Address)
}

func TestContents_EndOfListIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore([]Entry[ContentsRecord]{
		Value(ContentsRecord{Address: 1}),
	}, nil)

	conn := store.OpenContents("c1")
	require.NoError(t, conn.Send(ctx, broker.ContentsListRequest{Origin: "ABCDEF"}))

	_, err := conn.Receive(ctx)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		resp, err := conn.Receive(ctx)
		require.NoError(t, err)
		assert.IsType(t, broker.EndOfContents{}, resp)
	}
}

func TestContents_ConnectionIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewStore([]Entry[ContentsRecord]{
		Value(ContentsRecord{Address: 1}),
		Value(ContentsRecord{Address: 2}),
		Value(ContentsRecord{Address: 3}),
	}, nil)

	a := store.OpenContents("a")
	b := store.OpenContents("b")
	require.NoError(t, a.Send(ctx, broker.ContentsListRequest{Origin: "ABCDEF"}))
	require.NoError(t, b.Send(ctx, broker.ContentsListRequest{Origin: "ABCDEF"}))

	// Advance a twice; b must still be at the first entry.
	for i := 0; i < 2; i++ {
		_, err := a.Receive(ctx)
		require.NoError(t, err)
	}

	resp, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Address(1), resp.(broker.ContentsEntry).Address)

	resp, err = a.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Address(3), resp.(broker.ContentsEntry).Address)
}

func TestReader_FilteringTransparency(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, []Entry[PointRecord]{
		Value(PointRecord{Burst: 1, Point: simplePoint(7, 5, 100)}),
		Value(PointRecord{Burst: 1, Point: simplePoint(7, 50, 101)}),
		Value(PointRecord{Burst: 2, Point: simplePoint(7, 15, 102)}),
		Value(PointRecord{Burst: 2, Point: simplePoint(7, 200, 103)}),
		Value(PointRecord{Burst: 3, Point: simplePoint(7, 25, 104)}),
	})

	conn := store.OpenReader("r1")
	require.NoError(t, conn.Send(ctx, broker.SimpleReadRequest{Origin: "ABCDEF", Address: 7, Start: 10, End: 30}))

	// Only the points at t=15 and t=25 fall inside [10, 30); the rest
	// are skipped without the caller ever seeing them.
	var got []int64
	for {
		resp, err := conn.Receive(ctx)
		require.NoError(t, err)
		entry, ok := resp.(broker.SimpleStreamEntry)
		if !ok {
			assert.IsType(t, broker.EndOfStream{}, resp)
			break
		}
		assert.GreaterOrEqual(t, entry.Point.Timestamp, int64(10))
		assert.Less(t, entry.Point.Timestamp, int64(30))
		got = append(got, entry.Point.Timestamp)
	}
	assert.Equal(t, []int64{15, 25}, got)
}

func TestReader_AllPointsFiltered(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, []Entry[PointRecord]{
		Value(PointRecord{Burst: 1, Point: simplePoint(7, 50, 1)}),
		Value(PointRecord{Burst: 1, Point: simplePoint(7, 50, 2)}),
		Value(PointRecord{Burst: 1, Point: simplePoint(7, 50, 3)}),
	})

	conn := store.OpenReader("r1")
	require.NoError(t, conn.Send(ctx, broker.SimpleReadRequest{Origin: "ABCDEF", Address: 7, Start: 100, End: 200}))

	// Every point is out of range; the single call skips them all and
	// lands on end-of-stream without raising a timeout.
	resp, err := conn.Receive(ctx)
	require.NoError(t, err)
	assert.IsType(t, broker.EndOfStream{}, resp)
}

func TestReader_FaultBehindFilteredPoints(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, []Entry[PointRecord]{
		Value(PointRecord{Burst: 1, Point: simplePoint(7, 500, 1)}),
		Fault[PointRecord](),
		Value(PointRecord{Burst: 1, Point: simplePoint(7, 5, 2)}),
	})

	conn := store.OpenReader("r1")
	require.NoError(t, conn.Send(ctx, broker.SimpleReadRequest{Origin: "ABCDEF", Address: 7, Start: 0, End: 10}))

	// The out-of-range point is skipped, but the fault behind it stops
	// the scan even though it would also have been out of range had it
	// carried data. Faults are not skippable.
	_, err := conn.Receive(ctx)
	require.ErrorIs(t, err, broker.ErrTimeout)

	// Sticky: the cursor parked at the fault, so retries keep failing
	// rather than re-skipping from the start.
	_, err = conn.Receive(ctx)
	require.ErrorIs(t, err, broker.ErrTimeout)
}

func TestReader_FaultThenResend(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, []Entry[PointRecord]{
		Value(PointRecord{Burst: 1, Point: simplePoint(0xA, 5, 1)}),
		Fault[PointRecord](),
		Value(PointRecord{Burst: 1, Point: simplePoint(0xA, 15, 2)}),
	})

	conn := store.OpenReader("r1")
	req := broker.SimpleReadRequest{Origin: "ABCDEF", Address: 0xA, Start: 0, End: 10}
	require.NoError(t, conn.Send(ctx, req))

	resp, err := conn.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.(broker.SimpleStreamEntry).Point.Timestamp)

	_, err = conn.Receive(ctx)
	require.ErrorIs(t, err, broker.ErrTimeout)

	// A fresh send replays the stream from the start.
	require.NoError(t, conn.Send(ctx, req))

	resp, err = conn.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.(broker.SimpleStreamEntry).Point.Timestamp)

	_, err = conn.Receive(ctx)
	require.ErrorIs(t, err, broker.ErrTimeout)
}

func TestReader_ExtendedReadPayloadShape(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, []Entry[PointRecord]{
		Value(PointRecord{Burst: 9, Point: simplePoint(0xB, 5, 0xDEADBEEF)}),
	})

	conn := store.OpenReader("r1")
	require.NoError(t, conn.Send(ctx, broker.ExtendedReadRequest{Origin: "ABCDEF", Address: 0xB, Start: 0, End: 10}))

	resp, err := conn.Receive(ctx)
	require.NoError(t, err)
	entry, ok := resp.(broker.ExtendedStreamEntry)
	require.True(t, ok, "expected an extended stream entry, got %T", resp)
	assert.Equal(t, uint64(9), entry.Burst)
	assert.Equal(t, core.Address(0xB), entry.Point.Address)
	assert.Equal(t, int64(5), entry.Point.Timestamp)
	assert.Equal(t, []byte{0, 0, 0, 0, 0xDE, 0xAD, 0xBE, 0xEF}, entry.Point.Payload)

	resp, err = conn.Receive(ctx)
	require.NoError(t, err)
	assert.IsType(t, broker.EndOfStream{}, resp)
}

func TestReader_ExtendedSharesFilteringWithSimple(t *testing.T) {
	ctx := context.Background()
	points := []Entry[PointRecord]{
		Value(PointRecord{Burst: 1, Point: simplePoint(7, 5, 1)}),
		Value(PointRecord{Burst: 1, Point: simplePoint(7, 50, 2)}),
		Value(PointRecord{Burst: 1, Point: simplePoint(7, 8, 3)}),
	}
	store := NewStore(nil, points)

	simple := store.OpenReader("simple")
	extended := store.OpenReader("extended")
	require.NoError(t, simple.Send(ctx, broker.SimpleReadRequest{Origin: "ABCDEF", Address: 7, Start: 0, End: 10}))
	require.NoError(t, extended.Send(ctx, broker.ExtendedReadRequest{Origin: "ABCDEF", Address: 7, Start: 0, End: 10}))

	var simpleTimes, extendedTimes []int64
	for {
		resp, err := simple.Receive(ctx)
		require.NoError(t, err)
		entry, ok := resp.(broker.SimpleStreamEntry)
		if !ok {
			break
		}
		simpleTimes = append(simpleTimes, entry.Point.Timestamp)
	}
	for {
		resp, err := extended.Receive(ctx)
		require.NoError(t, err)
		entry, ok := resp.(broker.ExtendedStreamEntry)
		if !ok {
			break
		}
		extendedTimes = append(extendedTimes, entry.Point.Timestamp)
	}
	assert.Equal(t, simpleTimes, extendedTimes)
	assert.Equal(t, []int64{5, 8}, simpleTimes)
}

func TestReader_ReceiveBeforeSend(t *testing.T) {
	store := NewStore(nil, nil)
	conn := store.OpenReader("never-sent")

	_, err := conn.Receive(context.Background())
	require.ErrorIs(t, err, broker.ErrNoConnection)
}

func TestReader_WrongRequestFamily(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, []Entry[PointRecord]{
		Value(PointRecord{Burst: 1, Point: simplePoint(7, 5, 1)}),
	})

	conn := store.OpenReader("r1")
	require.NoError(t, conn.Send(ctx, broker.UpdateTagsRequest{Origin: "ABCDEF", Address: 7, Tags: core.SourceDict{"a": "b"}}))

	_, err := conn.Receive(ctx)
	require.ErrorIs(t, err, broker.ErrMalformedResponse)
}

func TestReader_EndOfStreamIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, []Entry[PointRecord]{
		Value(PointRecord{Burst: 1, Point: simplePoint(7, 5, 1)}),
	})

	conn := store.OpenReader("r1")
	require.NoError(t, conn.Send(ctx, broker.SimpleReadRequest{Origin: "ABCDEF", Address: 7, Start: 0, End: 10}))

	_, err := conn.Receive(ctx)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		resp, err := conn.Receive(ctx)
		require.NoError(t, err)
		assert.IsType(t, broker.EndOfStream{}, resp)
	}
}

func TestReader_SendOverwritesOutstandingRequest(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, []Entry[PointRecord]{
		Value(PointRecord{Burst: 1, Point: simplePoint(7, 5, 1)}),
		Value(PointRecord{Burst: 1, Point: simplePoint(7, 15, 2)}),
	})

	conn := store.OpenReader("r1")
	require.NoError(t, conn.Send(ctx, broker.SimpleReadRequest{Origin: "ABCDEF", Address: 7, Start: 0, End: 10}))

	resp, err := conn.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.(broker.SimpleStreamEntry).Point.Timestamp)

	// Re-sending with different bounds replaces the request and resets
	// the cursor; there is no queueing.
	require.NoError(t, conn.Send(ctx, broker.SimpleReadRequest{Origin: "ABCDEF", Address: 7, Start: 10, End: 20}))

	resp, err = conn.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(15), resp.(broker.SimpleStreamEntry).Point.Timestamp)
}

func TestStore_FamiliesAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(
		[]Entry[ContentsRecord]{Value(ContentsRecord{Address: 1})},
		[]Entry[PointRecord]{Value(PointRecord{Burst: 1, Point: simplePoint(1, 5, 1)})},
	)

	// The same name in both families maps to separate registry slots.
	contents := store.OpenContents("shared")
	reader := store.OpenReader("shared")
	require.NoError(t, contents.Send(ctx, broker.ContentsListRequest{Origin: "ABCDEF"}))
	require.NoError(t, reader.Send(ctx, broker.SimpleReadRequest{Origin: "ABCDEF", Address: 1, Start: 0, End: 10}))

	resp, err := contents.Receive(ctx)
	require.NoError(t, err)
	assert.IsType(t, broker.ContentsEntry{}, resp)

	resp, err = reader.Receive(ctx)
	require.NoError(t, err)
	assert.IsType(t, broker.SimpleStreamEntry{}, resp)
}

func TestReader_PaginationMonotonicity(t *testing.T) {
	ctx := context.Background()
	var entries []Entry[PointRecord]
	for i := 0; i < 20; i++ {
		entries = append(entries, Value(PointRecord{
			Burst: uint64(i / 5),
			Point: simplePoint(7, int64(i), uint64(i)),
		}))
	}
	store := NewStore(nil, entries)

	conn := store.OpenReader("r1")
	require.NoError(t, conn.Send(ctx, broker.SimpleReadRequest{Origin: "ABCDEF", Address: 7, Start: 0, End: 100}))

	var prev int64 = -1
	for {
		resp, err := conn.Receive(ctx)
		require.NoError(t, err)
		entry, ok := resp.(broker.SimpleStreamEntry)
		if !ok {
			break
		}
		assert.Greater(t, entry.Point.Timestamp, prev, "responses must follow backing order without revisits")
		prev = entry.Point.Timestamp
	}
	assert.Equal(t, int64(19), prev)
}
