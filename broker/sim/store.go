// Package sim provides an in-memory simulation of the broker session
// protocol. It stands in for a real connection in tests: requests are
// registered against named connections and answered from fixed backing
// sequences, with pagination, time filtering, end-of-stream signalling
// and timeout injection behaving exactly as a live broker would.
package sim

import (
	"sync"

	"github.com/INLOpen/nexusctl/broker"
	"github.com/INLOpen/nexusctl/core"
)

// Entry is one slot of a simulated backing sequence: either a record the
// broker would deliver, or a fault marking the position where a live
// connection would time out instead of returning data.
type Entry[T any] struct {
	record T
	fault  bool
}

// Value wraps a record in an Entry.
func Value[T any](record T) Entry[T] {
	return Entry[T]{record: record}
}

// Fault returns an entry that simulates a connection timeout when
// reached. Faults never auto-advance: every Receive at a fault position
// keeps failing until a new Send resets the cursor.
func Fault[T any]() Entry[T] {
	return Entry[T]{fault: true}
}

// ContentsRecord is one entry of the simulated address listing.
type ContentsRecord struct {
	Address core.Address
	Source  core.SourceDict
}

// PointRecord is one entry of the simulated point stream.
type PointRecord struct {
	Burst uint64
	Point core.SimplePoint
}

// session is the per-connection state of one outstanding request.
// The cursor never moves backward for the lifetime of the request.
type session struct {
	req    broker.Request
	cursor int
}

// Store holds the two backing sequences and one connection registry per
// protocol family. The backing sequences are immutable after
// construction; only the registries mutate. A single mutex keeps the
// check-then-advance of each Receive atomic, so a store may be shared
// across goroutines as long as no two of them Receive on the same
// connection name.
type Store struct {
	mu       sync.Mutex
	contents []Entry[ContentsRecord]
	points   []Entry[PointRecord]

	contentsConns map[string]*session
	readerConns   map[string]*session
}

// NewStore creates a store over the given backing data. The slices are
// retained as-is and must not be modified afterwards.
func NewStore(contents []Entry[ContentsRecord], points []Entry[PointRecord]) *Store {
	return &Store{
		contents:      contents,
		points:        points,
		contentsConns: make(map[string]*session),
		readerConns:   make(map[string]*session),
	}
}

// OpenContents opens a contents-family connection under the given name.
// The name is the handle: opening the same name twice yields views onto
// the same registry slot.
func (s *Store) OpenContents(name string) broker.Conn {
	return &contentsConn{store: s, name: name}
}

// OpenReader opens a reader-family connection under the given name.
func (s *Store) OpenReader(name string) broker.Conn {
	return &readerConn{store: s, name: name}
}

// register records req as the outstanding request for name, resetting
// the cursor. Overwrite semantics: there is no queueing of requests.
func register(conns map[string]*session, name string, req broker.Request) {
	conns[name] = &session{req: req}
}

type scanOutcome int

const (
	scanHit scanOutcome = iota
	scanEnd
	scanFault
)

// scan walks data from cursor looking for the next deliverable record.
// Records rejected by match are skipped and do not stop the scan. A
// fault entry stops the scan immediately, before match is consulted:
// faults are never skippable. The returned cursor reflects every skip
// taken, points one past the record on a hit, and stays at the fault
// position on a fault, so repeated scans there keep failing.
func scan[T any](data []Entry[T], cursor int, match func(T) bool) (T, int, scanOutcome) {
	var zero T
	for cursor < len(data) {
		e := data[cursor]
		if e.fault {
			return zero, cursor, scanFault
		}
		if !match(e.record) {
			cursor++
			continue
		}
		return e.record, cursor + 1, scanHit
	}
	return zero, cursor, scanEnd
}
