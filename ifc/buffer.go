// File: ifc/buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// frameBuf is one slot in the Interface's fixed-N free list; Buffer is
// the caller-facing handle returned by Allocate, carrying its own frame
// and valid length. Ownership is single-writer: exactly one goroutine
// holds a Buffer between Allocate/observer-delivery and the matching
// Free/Send.

package ifc

import (
	"github.com/momentics/vfabric/api"
	"github.com/momentics/vfabric/internal/ethernet"
	"github.com/momentics/vfabric/pool"
)

// frameBufSize is the fixed capacity of one pooled frame: a full
// Ethernet II frame (header + payload up to MTU).
const frameBufSize = pool.FrameBufferSize

// frameBuf is one pooled frame slot. raw is drawn from a NUMA-aware
// slab pool (github.com/momentics/vfabric/pool) rather than a raw
// make([]byte, frameBufSize), so repeated Allocate/Free cycles reuse
// node-local memory instead of round-tripping through the allocator.
type frameBuf struct {
	raw    []byte
	apiBuf api.Buffer // backing allocation, returned to the pool on teardown
	n      int        // valid length of raw, header included
	dst    api.MAC
	src    api.MAC
}

// Buffer is a caller-owned handle on one pooled frameBuf.
type Buffer struct {
	fb  *frameBuf
	ifc *Interface
}

// EthernetFrame returns the full on-wire frame (header + payload).
func (b Buffer) EthernetFrame() []byte { return b.fb.raw[:b.fb.n] }

// Payload returns the Ethernet payload, i.e. everything the Protocol
// layer wraps its packet header and user data into.
func (b Buffer) Payload() []byte { return b.fb.raw[ethernet.HeaderSize:b.fb.n] }

// SetPayloadLen adjusts the valid length of the payload region after a
// caller has written into the slice returned by Payload.
func (b Buffer) SetPayloadLen(n int) { b.fb.n = ethernet.HeaderSize + n }

// DstMAC returns the frame's destination address.
func (b Buffer) DstMAC() api.MAC { return b.fb.dst }

// SrcMAC returns the frame's source address.
func (b Buffer) SrcMAC() api.MAC { return b.fb.src }

// Valid reports whether this Buffer still refers to a live frameBuf; a
// zero-value Buffer (e.g. from a failed Allocate) is not valid.
func (b Buffer) Valid() bool { return b.fb != nil }

// Free returns the buffer to the Interface's pool.
func (b Buffer) Free() {
	if b.fb == nil || b.ifc == nil {
		return
	}
	b.ifc.reclaim(b.fb)
}
