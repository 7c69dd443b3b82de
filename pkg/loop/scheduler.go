package loop

import "sync"

// Scheduler posts a continuation to run on a later turn of the host's event loop.
type Scheduler interface {
	Schedule(fn func())
}

// GoScheduler runs every continuation on a fresh goroutine.
// The loop never has more than one continuation outstanding, so turns still
// execute one after another.
type GoScheduler struct{}

// Schedule implements Scheduler.
func (GoScheduler) Schedule(fn func()) {
	go fn()
}

// FrameQueue defers continuations until the host calls Pump, typically once
// per rendered frame. This is the "next frame" primitive for hosts that own a
// render loop on a locked OS thread.
type FrameQueue struct {
	mu      sync.Mutex
	pending []func()
}

// NewFrameQueue creates an empty queue.
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{}
}

// Schedule implements Scheduler.
func (q *FrameQueue) Schedule(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
}

// Pump runs the continuations queued before the call and returns how many ran.
// Continuations scheduled while pumping wait for the next Pump.
func (q *FrameQueue) Pump() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Len returns the number of queued continuations.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
