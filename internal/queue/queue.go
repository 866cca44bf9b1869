// Package queue implements the bounded single-producer/single-consumer
// hand-off queue carrying completed frames from the capture thread to the
// consumer thread.
package queue

import (
	"time"

	"github.com/visiona/screengrab/internal/frame"
)

// Queue is a bounded FIFO of frames. Push never blocks: the capture thread
// is shared with the external event loop and must stay responsive, so on
// overflow the oldest frame is evicted and handed back to the caller for
// recycling. Pop blocks up to a caller-supplied timeout.
//
// Frames are delivered in the exact order they were pushed; there is no
// reordering and no duplication.
type Queue struct {
	ch chan *frame.Frame
}

// New creates a queue with the given capacity.
func New(capacity int) *Queue {
	return &Queue{ch: make(chan *frame.Frame, capacity)}
}

// Push enqueues f. When the queue is full the oldest frame is dropped to
// make room and returned so the caller can recycle it into the pool;
// otherwise Push returns nil.
func (q *Queue) Push(f *frame.Frame) (evicted *frame.Frame) {
	for {
		select {
		case q.ch <- f:
			return evicted
		default:
		}
		// Full: evict the oldest and retry. With a single producer the
		// retry succeeds on the freed slot, so at most one frame is
		// evicted per push.
		select {
		case old := <-q.ch:
			evicted = old
		default:
			// A concurrent pop won the race; the retry will succeed.
		}
	}
}

// PopTimeout dequeues the next frame in FIFO order, blocking up to d.
// Returns (nil, false) on timeout.
func (q *Queue) PopTimeout(d time.Duration) (*frame.Frame, bool) {
	select {
	case f := <-q.ch:
		return f, true
	default:
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case f := <-q.ch:
		return f, true
	case <-timer.C:
		return nil, false
	}
}

// Drain empties the queue and returns the frames in FIFO order. Used at
// session teardown to recycle queued frames.
func (q *Queue) Drain() []*frame.Frame {
	var out []*frame.Frame
	for {
		select {
		case f := <-q.ch:
			out = append(out, f)
		default:
			return out
		}
	}
}

// Len returns the number of queued frames.
func (q *Queue) Len() int {
	return len(q.ch)
}
