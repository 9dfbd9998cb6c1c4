// File: observer/observer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ConditionalObserver and ConcurrentObserver implement api.Observer over
// a Mailbox / ConcurrentMailbox: Update pushes, Updated pops, both gated
// by a semaphore-style wakeup.

package observer

import "github.com/momentics/vfabric/api"

// ConditionalObserver is a single-reader Observer for a
// ConditionallyObserved registry, buffering each Update in a Mailbox.
type ConditionalObserver[T any, C comparable] struct {
	rank C
	box  *Mailbox[T]
}

// NewConditionalObserver creates an observer ranked by rank.
func NewConditionalObserver[T any, C comparable](rank C) *ConditionalObserver[T, C] {
	return &ConditionalObserver[T, C]{rank: rank, box: NewMailbox[T]()}
}

func (o *ConditionalObserver[T, C]) Update(_ C, value T) { o.box.Push(value) }
func (o *ConditionalObserver[T, C]) Updated() (T, bool)  { return o.box.Pop() }
func (o *ConditionalObserver[T, C]) Rank() C             { return o.rank }
func (o *ConditionalObserver[T, C]) Close()              { o.box.Close() }

// ConcurrentObserver is an Observer for a ConcurrentObserved registry,
// where Update may race across goroutines.
type ConcurrentObserver[T any, C comparable] struct {
	rank C
	box  *ConcurrentMailbox[T]
}

// NewConcurrentObserver creates an observer ranked by rank.
func NewConcurrentObserver[T any, C comparable](rank C) *ConcurrentObserver[T, C] {
	return &ConcurrentObserver[T, C]{rank: rank, box: NewConcurrentMailbox[T]()}
}

func (o *ConcurrentObserver[T, C]) Update(_ C, value T) { o.box.Push(value) }
func (o *ConcurrentObserver[T, C]) Updated() (T, bool)  { return o.box.Pop() }
func (o *ConcurrentObserver[T, C]) Rank() C             { return o.rank }
func (o *ConcurrentObserver[T, C]) Close()              { o.box.Close() }

var (
	_ api.Observer[any, int]   = (*ConditionalObserver[any, int])(nil)
	_ api.Observer[any, int]   = (*ConcurrentObserver[any, int])(nil)
	_ api.Observable[any, int] = (*ConditionallyObserved[any, int])(nil)
	_ api.Observable[any, int] = (*ConcurrentObserved[any, int])(nil)
)
