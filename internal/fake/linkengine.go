// File: internal/fake/linkengine.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// LinkEngine is an in-memory stand-in for transport.LinkEngine, letting
// tests inject raw frames "off the wire" (arbitrary source MACs
// included) and capture what the Interface transmits.

package fake

import (
	"os"
	"sync"

	"github.com/momentics/vfabric/api"
)

// LinkEngine satisfies ifc.Interface's linkEngine contract
// (Send/Recv/FD/MAC/Close). Frames injected with Inject become
// available to Recv and signal readiness through a pipe fd.
type LinkEngine struct {
	mu     sync.Mutex
	inbox  [][]byte
	sent   [][]byte
	mac    api.MAC
	r, w   *os.File
	closed bool
}

// NewLinkEngine constructs an in-memory link engine that reports mac as
// its hardware address.
func NewLinkEngine(mac api.MAC) *LinkEngine {
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	return &LinkEngine{mac: mac, r: r, w: w}
}

// Inject queues a raw frame for delivery, as if it had arrived on the
// wire, and wakes any epoll wait registered on FD.
func (e *LinkEngine) Inject(frame []byte) {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	e.mu.Lock()
	e.inbox = append(e.inbox, cp)
	e.mu.Unlock()
	e.w.Write([]byte{0})
}

// Send records the transmitted frame.
func (e *LinkEngine) Send(frame []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return api.ErrTransportDown
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	e.sent = append(e.sent, cp)
	return nil
}

// Recv pops the oldest injected frame, returning (0, nil) when none is
// pending, mirroring the real engine's non-blocking read.
func (e *LinkEngine) Recv(buf []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.inbox) == 0 {
		return 0, nil
	}
	fr := e.inbox[0]
	e.inbox = e.inbox[1:]
	// Consume the doorbell byte paired with this frame so the pipe fd
	// goes quiet once the inbox is drained.
	var one [1]byte
	e.r.Read(one[:])
	return copy(buf, fr), nil
}

// Sent returns copies of every frame passed to Send.
func (e *LinkEngine) Sent() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]byte, len(e.sent))
	copy(out, e.sent)
	return out
}

// FD returns the read end of the backing pipe.
func (e *LinkEngine) FD() int { return int(e.r.Fd()) }

// MAC returns the configured hardware address.
func (e *LinkEngine) MAC() api.MAC { return e.mac }

// Close releases the pipe.
func (e *LinkEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.r.Close()
	e.w.Close()
	return nil
}
