package event

import (
	"sync/atomic"

	"github.com/lixenwraith/rumble/parameter"
)

// slot pairs an event with its sequence stamp
// seq == pos: free for the producer claiming pos
// seq == pos+1: published, readable by the consumer at pos
type slot struct {
	seq atomic.Uint64
	ev  Event
}

// Queue is a lock-free bounded ring buffer for feed events
// Thread-Safety:
//   - Push: Lock-free CAS, multiple producers OK
//   - TryPop: Single consumer (dispatch loop), safe under contention
//   - Sequence stamps prevent reading partial writes
//
// Overflow: New events are dropped when full, the dispatch path never blocks producers
type Queue struct {
	slots   [parameter.EventQueueSize]slot
	head    atomic.Uint64 // Read index
	tail    atomic.Uint64 // Write index
	dropped atomic.Uint64
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	q := &Queue{}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// Push appends ev, returns false when the queue is full and the event was dropped
func (q *Queue) Push(ev Event) bool {
	for {
		pos := q.tail.Load()
		s := &q.slots[pos&parameter.EventBufferMask]
		seq := s.seq.Load()

		switch diff := int64(seq) - int64(pos); {
		case diff == 0:
			if q.tail.CompareAndSwap(pos, pos+1) {
				s.ev = ev
				s.seq.Store(pos + 1) // MUST be after write
				return true
			}
		case diff < 0:
			q.dropped.Add(1)
			return false
		}
		// Another producer claimed pos, retry
	}
}

// TryPop removes the oldest published event without blocking
func (q *Queue) TryPop() (Event, bool) {
	for {
		pos := q.head.Load()
		s := &q.slots[pos&parameter.EventBufferMask]
		seq := s.seq.Load()

		switch diff := int64(seq) - int64(pos+1); {
		case diff == 0:
			if q.head.CompareAndSwap(pos, pos+1) {
				ev := s.ev
				s.ev = nil
				s.seq.Store(pos + parameter.EventQueueSize)
				return ev, true
			}
		case diff < 0:
			return nil, false // Empty or writer incomplete
		}
	}
}

// Len returns approximate pending event count
func (q *Queue) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if tail <= head {
		return 0
	}
	diff := int(tail - head)
	if diff > parameter.EventQueueSize {
		return parameter.EventQueueSize
	}
	return diff
}

// Dropped returns the number of events rejected because the queue was full
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
