// Package sbuffer implements the shared-buffer multi-reader handoff
// engine: a single-producer, fixed-two-consumer FIFO in which every
// record is observed by both consumers exactly once before it is
// reclaimed. Consumers advance independently at their own pace; the
// producer wakes blocked consumers on insert; a Close drains and then
// terminates consumers cleanly.
//
// The design follows the original sbuffer_t from original_source/sbuffer.c:
// a singly linked chain of nodes from tail (oldest) to head (newest),
// each node linking to the next-newer one, with one cursor per consumer
// pointing at the next node that
// consumer must observe. A node is only reclaimed once both cursors have
// advanced past it, which is tracked with a per-node "observed" flag
// rather than per-consumer copies of the data.
package sbuffer

import (
	"sync"

	"github.com/pepper-iot/sensorhub/internal/record"
)

// NumConsumers is the fixed number of independent readers the buffer
// supports. The spec treats this as a small constant established at
// startup, not something that grows at runtime.
const NumConsumers = 2

// node is one live record in the chain.
type node struct {
	data record.Record
	prev *node // next-newer node (toward head), or nil if this is the head
	read bool  // true once the first of the two consumers has acked it
}

// Buffer is the singleton shared FIFO. The zero value is not usable;
// construct one with New.
type Buffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	head *node // newest node, or nil if empty
	tail *node // oldest node, or nil if empty

	cursors [NumConsumers]*node // next unread node per consumer, or nil if caught up

	closed bool

	added      int
	calculated int
	stored     int
}

// New creates an empty, open buffer.
func New() *Buffer {
	b := &Buffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Insert appends rec as the new head of the buffer. Any consumer whose
// cursor is currently caught up (nil) latches onto the new node, and all
// waiters are woken.
//
// Insert panics if called after Close; that ordering is a programmer
// contract violation (spec.md §7 taxonomy #1), not a recoverable error,
// and producers are required to stop calling Insert once Close has been
// requested.
func (b *Buffer) Insert(rec record.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("sbuffer: Insert called after Close")
	}

	n := &node{data: rec}

	if b.head != nil {
		b.head.prev = n
	}
	b.head = n
	if b.tail == nil {
		b.tail = n
	}

	for i := range b.cursors {
		if b.cursors[i] == nil {
			b.cursors[i] = n
		}
	}

	b.added++
	b.cond.Broadcast()
}

// End is the sentinel returned by NextUnread once a consumer's cursor
// has caught up to head and the buffer has been closed.
var End = record.Record{}

// NextUnread blocks until consumer index has an unread record or the
// buffer is closed. It returns (record, true) in the former case and
// (End, false) once the buffer is closed and drained for that consumer.
//
// The returned record is a plain value copy, so there is nothing to keep
// alive after the mutex is released; the node itself is kept alive until
// the matching Ack by invariant 3 (reclamation only after every cursor
// has advanced past it).
func (b *Buffer) NextUnread(consumer int) (record.Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.cursors[consumer] == nil && !b.closed {
		b.cond.Wait()
	}

	if b.cursors[consumer] == nil {
		// Woke up with no node to hand back: only possible if closed.
		return End, false
	}

	return b.cursors[consumer].data, true
}

// Ack acknowledges the record most recently returned to consumer index
// by NextUnread. It advances that consumer's cursor to the next-newer
// node (which may become nil) and, once both consumers have acked a
// node, reclaims it from the tail.
//
// Ack panics if called without a matching prior NextUnread call whose
// record has not yet been acked — i.e. if the consumer's cursor is
// already nil. That is a programmer contract violation.
func (b *Buffer) Ack(consumer int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.cursors[consumer]
	if n == nil {
		panic("sbuffer: Ack called without a pending NextUnread record")
	}

	b.cursors[consumer] = n.prev

	if n.read {
		b.reclaim(n)
	} else {
		n.read = true
	}

	switch consumer {
	case 0:
		b.calculated++
	case 1:
		b.stored++
	}
}

// reclaim removes n from the tail end of the chain. n must currently be
// the tail; this holds because nodes are only ever acked (and therefore
// reclaimed) in FIFO order relative to each consumer's own progress, and
// a node can't be reclaimed until both consumers have passed it, which
// by invariant 1 means it was the tail.
func (b *Buffer) reclaim(n *node) {
	b.tail = n.prev
	if b.tail == nil {
		b.head = nil
	}
}

// Close marks the buffer closed: no further Insert calls are permitted,
// and any consumer blocked in NextUnread (or who blocks in the future
// with a caught-up cursor) wakes and observes End. Close is idempotent.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.cond.Broadcast()
}

// Counters is a point-in-time snapshot of the buffer's observability
// counters. It is not required to be linearizable with concurrent
// Insert/Ack calls.
type Counters struct {
	Added      int
	Calculated int
	Stored     int
}

// Counters returns a snapshot of added/calculated/stored.
func (b *Buffer) Counters() Counters {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Counters{Added: b.added, Calculated: b.calculated, Stored: b.stored}
}

// Empty reports whether the buffer currently holds no live nodes. Used
// by the lifecycle coordinator to confirm invariant 3 held after both
// consumers have drained and exited.
func (b *Buffer) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tail == nil
}
