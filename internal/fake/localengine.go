// File: internal/fake/localengine.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// LocalEngine is an in-memory loopback stand-in for shm.LocalEngine,
// giving tests a pollable fd without a real shared-memory ring.

package fake

import (
	"os"
	"sync"

	"github.com/momentics/vfabric/api"
)

type localItem struct {
	protocol uint32
	payload  []byte
}

// LocalEngine satisfies ifc.Interface's localEngine contract
// (Send/Recv/FD/Close) with a mutex-guarded queue, signaling
// readiness through a real pipe fd so an epoll-backed Reactor can
// register it like the genuine shared-memory ring.
type LocalEngine struct {
	mu     sync.Mutex
	queue  []localItem
	r, w   *os.File
	closed bool
}

// NewLocalEngine constructs a loopback engine backed by an os.Pipe.
func NewLocalEngine() *LocalEngine {
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	return &LocalEngine{r: r, w: w}
}

// Send enqueues payload and wakes any epoll wait registered on FD.
func (e *LocalEngine) Send(protocol uint32, payload []byte) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return api.ErrTransportClosed
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	e.queue = append(e.queue, localItem{protocol, cp})
	e.mu.Unlock()
	_, err := e.w.Write([]byte{0})
	return err
}

// Recv dequeues the oldest pending payload, if any.
func (e *LocalEngine) Recv(buf []byte) (uint32, int, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return 0, 0, false, nil
	}
	it := e.queue[0]
	e.queue = e.queue[1:]
	// Consume the doorbell byte paired with this payload so the pipe
	// fd goes quiet once the queue is drained.
	var one [1]byte
	e.r.Read(one[:])
	n := copy(buf, it.payload)
	return it.protocol, n, true, nil
}

// FD returns the read end of the backing pipe, registrable with an
// epoll Reactor.
func (e *LocalEngine) FD() int { return int(e.r.Fd()) }

// AckReady is a no-op: the pipe's doorbell bytes are consumed by Recv,
// one per queued payload, so the fd goes quiet on its own once the
// queue drains.
func (e *LocalEngine) AckReady() {}

// Close marks the engine closed and releases the pipe.
func (e *LocalEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.r.Close()
	e.w.Close()
	return nil
}

// Pending reports the number of queued-but-undelivered payloads.
func (e *LocalEngine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}
