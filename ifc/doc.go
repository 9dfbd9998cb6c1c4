// File: ifc/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package ifc implements the message plane's Interface (NIC) layer: a
// fixed pool of pre-allocated frame buffers, routing of outbound frames
// to either the host's LinkEngine or LocalEngine depending on
// destination MAC, and a single event-loop goroutine that multiplexes
// both engines' readiness signals with a bounded poll timeout standing
// in for a stop signal. The free list is a lock-free
// core/concurrency.RingBuffer; the event loop registers both engines'
// file descriptors with a reactor.Reactor.

package ifc
