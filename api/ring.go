// File: api/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Ring is the bounded lock-free FIFO contract behind the Interface's
// frame-buffer free list: fixed capacity, non-blocking on both ends, so
// the allocate/free hot path never takes a lock.

package api

// Ring is a bounded concurrent FIFO.
type Ring[T any] interface {
	// Enqueue adds item, returning false if the ring is full.
	Enqueue(item T) bool

	// Dequeue removes and returns the oldest item, false if empty.
	Dequeue() (T, bool)

	// Len returns the number of items currently queued.
	Len() int

	// Cap returns the fixed capacity.
	Cap() int
}
