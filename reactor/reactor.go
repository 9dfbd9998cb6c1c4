// File: reactor/reactor.go
// Package reactor
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cross-platform event-reactor contract. The Interface layer registers
// its LinkEngine socket fd and LocalEngine poll timerfd here and blocks
// in Wait, multiplexing both transports' readiness onto one loop.

package reactor

// EventMask flags the readiness a registered fd is interested in, or
// was found ready for.
type EventMask uint32

const (
	EventRead EventMask = 1 << iota
	EventWrite
	EventError
)

// Event reports one fd's readiness and the user data it was registered
// with (typically a small int tag distinguishing link from local).
type Event struct {
	Fd       int
	UserData int
	Mask     EventMask
}

// Reactor multiplexes readiness across a small, slowly-changing set of
// file descriptors.
type Reactor interface {
	// Register starts watching fd for the given event mask, tagging
	// delivered events with userData.
	Register(fd int, mask EventMask, userData int) error
	// Unregister stops watching fd.
	Unregister(fd int) error
	// Wait blocks until at least one registered fd is ready or
	// timeoutMs elapses (-1 blocks indefinitely), appending ready
	// events to dst and returning the updated slice.
	Wait(dst []Event, timeoutMs int) ([]Event, error)
	// Close releases the reactor's own resources.
	Close() error
}
