package tilemap

import "sync"

// Update is one completed tile-layer decode result, produced by the
// background loader and applied to the CPU cache tier on the render thread.
//
// An Update is immutable after construction. Samples is populated only for
// LayerElevation and carries the raw height values alongside the normalized
// pixels, so the original data can be re-exported losslessly.
type Update struct {
	Coord   Coord
	Layer   Layer
	Width   int
	Height  int
	Pixels  []uint8 // RGBA, Width*Height*4 bytes
	Samples []float32
}

// UpdateQueue is a thread-safe FIFO of completed tile updates.
//
// The background loader is the only writer; the render thread is the only
// reader, draining a bounded batch per tick. The queue itself is unbounded:
// backpressure comes from the consumer, not from a hard capacity.
//
// UpdateQueue must not be copied after creation.
type UpdateQueue struct {
	mu    sync.Mutex
	items []*Update
}

// NewUpdateQueue creates an empty update queue.
func NewUpdateQueue() *UpdateQueue {
	return &UpdateQueue{}
}

// Push appends an update to the tail of the queue.
func (q *UpdateQueue) Push(u *Update) {
	if u == nil {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, u)
	q.mu.Unlock()
}

// TryPop removes and returns the head of the queue without blocking.
// It returns (nil, false) when the queue is empty.
func (q *UpdateQueue) TryPop() (*Update, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	u := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return u, true
}

// Drain discards all buffered updates and returns how many were dropped.
// Called on cancellation so stale tiles from a superseded run never leak
// into a new session.
func (q *UpdateQueue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// Len returns the number of buffered updates.
func (q *UpdateQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
