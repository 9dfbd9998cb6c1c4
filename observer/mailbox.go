// File: observer/mailbox.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Mailbox is a counting-semaphore-gated FIFO: an unbounded, growable queue
// plus a wakeup signal for a blocking consumer. Pop returns (zero, false)
// once the mailbox has been closed and drained, delivering a null
// sentinel to wake any blocked reader exactly once.
//
// The single-threaded variant backs ConditionalObserver and reuses
// eapache/queue as its ring-growable store. The concurrent variant backs
// ConcurrentObserver with a mutex-protected slice.

package observer

import (
	"sync"

	"github.com/eapache/queue"
)

// Mailbox is a FIFO with blocking pop, used by a single-threaded
// Observer (one reader, notified only from the owning Observable's
// goroutine).
type Mailbox[T any] struct {
	mu       sync.Mutex
	q        *queue.Queue
	doorbell chan struct{}
	closed   bool
}

// NewMailbox creates an empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{q: queue.New(), doorbell: make(chan struct{}, 1)}
}

// Push enqueues val and wakes a blocked Pop, if any.
func (m *Mailbox[T]) Push(val T) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.q.Add(val)
	m.mu.Unlock()
	m.ring()
}

func (m *Mailbox[T]) ring() {
	select {
	case m.doorbell <- struct{}{}:
	default:
	}
}

// Pop blocks until a value is available or the mailbox is closed, in
// which case it returns (zero, false).
func (m *Mailbox[T]) Pop() (T, bool) {
	for {
		m.mu.Lock()
		if m.q.Length() > 0 {
			v := m.q.Remove().(T)
			m.mu.Unlock()
			return v, true
		}
		if m.closed {
			m.mu.Unlock()
			// Cascade the wakeup so every other blocked reader also
			// observes the close instead of waiting on the consumed
			// doorbell token.
			m.ring()
			var zero T
			return zero, false
		}
		m.mu.Unlock()
		<-m.doorbell
	}
}

// Close wakes any blocked Pop and causes future Pops to drain remaining
// items then return false.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	m.ring()
}

// ConcurrentMailbox is the mutex-guarded FIFO used by ConcurrentObserver,
// where multiple goroutines may Push concurrently.
type ConcurrentMailbox[T any] struct {
	mu       sync.Mutex
	items    []T
	doorbell chan struct{}
	closed   bool
}

// NewConcurrentMailbox creates an empty concurrent mailbox.
func NewConcurrentMailbox[T any]() *ConcurrentMailbox[T] {
	return &ConcurrentMailbox[T]{doorbell: make(chan struct{}, 1)}
}

func (m *ConcurrentMailbox[T]) Push(val T) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.items = append(m.items, val)
	m.mu.Unlock()
	select {
	case m.doorbell <- struct{}{}:
	default:
	}
}

func (m *ConcurrentMailbox[T]) Pop() (T, bool) {
	for {
		m.mu.Lock()
		if len(m.items) > 0 {
			v := m.items[0]
			m.items = m.items[1:]
			m.mu.Unlock()
			return v, true
		}
		if m.closed {
			m.mu.Unlock()
			// Cascade the wakeup for any other reader still blocked.
			select {
			case m.doorbell <- struct{}{}:
			default:
			}
			var zero T
			return zero, false
		}
		m.mu.Unlock()
		<-m.doorbell
	}
}

func (m *ConcurrentMailbox[T]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	select {
	case m.doorbell <- struct{}{}:
	default:
	}
}
