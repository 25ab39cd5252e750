package ws

import (
	"sync"

	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

// queued is one outbound event with its overflow class.
type queued struct {
	event     *types.Event
	droppable bool
}

// outboundQueue is a FIFO feeding a connection's single writer
// goroutine. Enqueue never blocks: droppable events (typing signals)
// are bounded and shed oldest-first under backpressure, while
// non-droppable events (message deliveries) always queue — a persisted
// message may be delayed by a slow reader, never silently dropped.
type outboundQueue struct {
	mu           sync.Mutex
	cond         *sync.Cond
	entries      []queued
	droppableCap int
	droppable    int
	closed       bool
}

func newOutboundQueue(droppableCap int) *outboundQueue {
	q := &outboundQueue{droppableCap: droppableCap}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// enqueue appends an event, shedding the oldest droppable entry first
// when the droppable budget is exhausted.
func (q *outboundQueue) enqueue(event *types.Event, droppable bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrConnectionClosed
	}

	if droppable && q.droppable >= q.droppableCap {
		q.dropOldestDroppable()
	}

	q.entries = append(q.entries, queued{event: event, droppable: droppable})
	if droppable {
		q.droppable++
	}
	q.cond.Signal()
	return nil
}

// next blocks until an event is available or the queue is closed.
func (q *outboundQueue) next() (*types.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.entries) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.entries) == 0 {
		return nil, false
	}

	entry := q.entries[0]
	q.entries = q.entries[1:]
	if entry.droppable {
		q.droppable--
	}
	return entry.event, true
}

// close wakes the writer and rejects further enqueues. Entries already
// queued are discarded; the peer recovers via history fetch.
func (q *outboundQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.entries = nil
	q.droppable = 0
	q.cond.Broadcast()
}

// len reports the number of queued entries.
func (q *outboundQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// dropOldestDroppable requires q.mu held.
func (q *outboundQueue) dropOldestDroppable() {
	for i, entry := range q.entries {
		if entry.droppable {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			q.droppable--
			return
		}
	}
}
