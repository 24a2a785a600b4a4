package app

import (
	"time"

	"github.com/bft-labs/scanwave/internal/domain"
)

// SegmentQueue is a bounded FIFO of segments between exactly one producer
// and one consumer. Both sides wait with a timeout and get a plain result
// back instead of blocking forever.
type SegmentQueue struct {
	ch chan domain.Segment
}

// NewSegmentQueue creates a queue holding at most capacity segments.
func NewSegmentQueue(capacity int) *SegmentQueue {
	return &SegmentQueue{ch: make(chan domain.Segment, capacity)}
}

// TryEnqueue adds seg, waiting up to timeout for space.
// Returns false if the queue stayed full; seg is not enqueued in that case.
func (q *SegmentQueue) TryEnqueue(seg domain.Segment, timeout time.Duration) bool {
	select {
	case q.ch <- seg:
		return true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case q.ch <- seg:
		return true
	case <-timer.C:
		return false
	}
}

// TryDequeue removes the oldest segment, waiting up to timeout for one.
// Returns false if the queue stayed empty.
func (q *SegmentQueue) TryDequeue(timeout time.Duration) (domain.Segment, bool) {
	select {
	case seg := <-q.ch:
		return seg, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case seg := <-q.ch:
		return seg, true
	case <-timer.C:
		return domain.Segment{}, false
	}
}

// Len returns the number of queued segments.
func (q *SegmentQueue) Len() int {
	return len(q.ch)
}
