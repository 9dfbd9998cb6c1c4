// File: observer/observed.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ConditionallyObserved and ConcurrentObserved implement api.Observable.
// ConcurrentObserved backs the Interface's EtherType registry and the
// Protocol layer's port registry: each registry is owned by the layer
// that notifies through it, rather than shared through a global table.

package observer

import (
	"sync"

	"github.com/momentics/vfabric/api"
)

// ConditionallyObserved is the single-threaded observable: callers must
// serialize Attach/Detach/Notify themselves.
type ConditionallyObserved[T any, C comparable] struct {
	byRank map[C][]api.Observer[T, C]
}

// NewConditionallyObserved creates an empty observable.
func NewConditionallyObserved[T any, C comparable]() *ConditionallyObserved[T, C] {
	return &ConditionallyObserved[T, C]{byRank: make(map[C][]api.Observer[T, C])}
}

func (o *ConditionallyObserved[T, C]) Attach(obs api.Observer[T, C], rank C) {
	o.byRank[rank] = append(o.byRank[rank], obs)
}

func (o *ConditionallyObserved[T, C]) Detach(obs api.Observer[T, C], rank C) {
	list := o.byRank[rank]
	for i, e := range list {
		if e == obs {
			o.byRank[rank] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (o *ConditionallyObserved[T, C]) Notify(cond C, value T) int {
	list := o.byRank[cond]
	for _, obs := range list {
		obs.Update(cond, value)
	}
	return len(list)
}

// NotifyBroadcast fans value out to every observer attached at cond
// whose own rank differs from source, suppressing feedback to the
// sender. The last recipient gets value itself; the ones before it get
// cloneFn copies, so a single-owner item is never shared across
// mailboxes.
func (o *ConditionallyObserved[T, C]) NotifyBroadcast(cond C, value T, source C, cloneFn func(T) T) int {
	return broadcast(o.byRank[cond], cond, value, source, cloneFn)
}

// ConcurrentObserved is the mutex-guarded variant, used where Attach/
// Detach/Notify happen from multiple goroutines (the Interface event
// loop notifies while endpoints attach and detach from their own
// goroutines).
type ConcurrentObserved[T any, C comparable] struct {
	mu     sync.Mutex
	byRank map[C][]api.Observer[T, C]
}

// NewConcurrentObserved creates an empty observable.
func NewConcurrentObserved[T any, C comparable]() *ConcurrentObserved[T, C] {
	return &ConcurrentObserved[T, C]{byRank: make(map[C][]api.Observer[T, C])}
}

func (o *ConcurrentObserved[T, C]) Attach(obs api.Observer[T, C], rank C) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.byRank[rank] = append(o.byRank[rank], obs)
}

func (o *ConcurrentObserved[T, C]) Detach(obs api.Observer[T, C], rank C) {
	o.mu.Lock()
	defer o.mu.Unlock()
	list := o.byRank[rank]
	for i, e := range list {
		if e == obs {
			o.byRank[rank] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (o *ConcurrentObserved[T, C]) Notify(cond C, value T) int {
	o.mu.Lock()
	list := append([]api.Observer[T, C]{}, o.byRank[cond]...)
	o.mu.Unlock()
	for _, obs := range list {
		obs.Update(cond, value)
	}
	return len(list)
}

// NotifyBroadcast is the broadcast counterpart of Notify; see
// ConditionallyObserved.NotifyBroadcast for the delivery contract.
func (o *ConcurrentObserved[T, C]) NotifyBroadcast(cond C, value T, source C, cloneFn func(T) T) int {
	o.mu.Lock()
	list := append([]api.Observer[T, C]{}, o.byRank[cond]...)
	o.mu.Unlock()
	return broadcast(list, cond, value, source, cloneFn)
}

// broadcast delivers value to every observer in list except the one
// ranked source. Exactly one recipient gets the original; every other
// gets a cloneFn copy. The original is handed out last: an observer's
// Update may release the original's backing resource inline, so all
// clones must be cut before it runs.
func broadcast[T any, C comparable](list []api.Observer[T, C], cond C, value T, source C, cloneFn func(T) T) int {
	eligible := list[:0:0]
	for _, obs := range list {
		if obs.Rank() != source {
			eligible = append(eligible, obs)
		}
	}
	for i, obs := range eligible {
		if i < len(eligible)-1 {
			obs.Update(cond, cloneFn(value))
		} else {
			obs.Update(cond, value)
		}
	}
	return len(eligible)
}
