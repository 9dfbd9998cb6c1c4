// File: protocol/protocol.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Protocol owns a port-keyed observer registry and multiplexes one
// ifc.Interface among however many Endpoints have attached. The
// connection/codec split mirrors a transport-plus-framing layer: frames
// come in off one Interface, get unwrapped by a from-port/to-port/size
// packet header (internal/wire.PacketHeader), and are handed to the
// destination port's observers.

package protocol

import (
	"sync/atomic"

	"github.com/momentics/vfabric/api"
	"github.com/momentics/vfabric/ifc"
	"github.com/momentics/vfabric/internal/ethernet"
	"github.com/momentics/vfabric/internal/wire"
	"github.com/momentics/vfabric/observer"
)

// Inbound is what the Protocol layer hands to a port's attached
// Endpoint: the sender's address (resolved from the frame's source MAC
// and the packet's from-port) plus the still-pooled buffer so the
// receiving Endpoint can decode lazily and free exactly once.
type Inbound struct {
	From api.Address
	Buf  ifc.Buffer
	Data []byte // user payload, aliases Buf until Buf.Free()
}

// Protocol fans inbound frames out to port-keyed observers and wraps
// outbound sends in a packet header before handing them to the
// Interface.
type Protocol struct {
	nic   *ifc.Interface
	ports *observer.ConcurrentObserved[*Inbound, api.Port]
	drops atomic.Int64
}

// New attaches a Protocol instance to nic on the bus's reserved
// EtherType. Only one Protocol should ever attach per Interface; the
// security rule in Update assumes it is the sole gate for GatewayPort
// traffic.
func New(nic *ifc.Interface) *Protocol {
	p := &Protocol{nic: nic, ports: observer.NewConcurrentObserved[*Inbound, api.Port]()}
	nic.Attach(protocolSubscriber{p}, ethernet.Protocol)
	return p
}

// Attach registers an observer (an Endpoint) for packets addressed to
// port.
func (p *Protocol) Attach(o api.Observer[*Inbound, api.Port], port api.Port) {
	p.ports.Attach(o, port)
}

// Detach removes a previously attached observer.
func (p *Protocol) Detach(o api.Observer[*Inbound, api.Port], port api.Port) {
	p.ports.Detach(o, port)
}

// Drops returns the count of inbound packets with no attached observer
// or that failed the GatewayPort security check.
func (p *Protocol) Drops() int64 { return p.drops.Load() }

// SelfMAC returns the owning Interface's hardware address, used by
// Endpoint to build a local-broadcast address: the reserved
// INTERNAL_BROADCAST_PORT targets this host's own MAC, not the
// link-layer broadcast address.
func (p *Protocol) SelfMAC() api.MAC { return p.nic.SelfMAC() }

// Send wraps data in a packet header addressed from/to the given ports
// and hands the resulting frame to the Interface.
func (p *Protocol) Send(from, to api.Address, data []byte) (int, error) {
	total := wire.PacketHeaderSize + len(data)
	buf, err := p.nic.Allocate(to.MAC, ethernet.Protocol, total)
	if err != nil {
		return 0, err
	}
	hdr := wire.PacketHeader{From: from.Port, To: to.Port, Size: uint32(len(data))}
	if _, err := wire.EncodePacket(buf.Payload(), hdr, data); err != nil {
		buf.Free()
		return 0, err
	}
	if _, err := p.nic.Send(buf); err != nil {
		buf.Free()
		return 0, err
	}
	return len(data), nil
}

// handleInbound is invoked by the Interface's event-loop goroutine for
// every frame carrying the bus's EtherType. It applies a broadcast-port
// security rule before fanning the packet out to the destination port's
// observers: traffic from a remote host addressed to GatewayPort, the
// port reserved for this process's own gateway, is dropped rather than
// delivered.
func (p *Protocol) handleInbound(buf ifc.Buffer) {
	hdr, payload, err := wire.DecodePacket(buf.Payload())
	if err != nil {
		p.drops.Add(1)
		buf.Free()
		return
	}
	if buf.SrcMAC() != p.nic.SelfMAC() && hdr.To == api.GatewayPort {
		p.drops.Add(1)
		buf.Free()
		return
	}
	in := &Inbound{
		From: api.Address{MAC: buf.SrcMAC(), Port: hdr.From},
		Buf:  buf,
		Data: payload,
	}
	var delivered int
	if hdr.To == api.InternalBroadcastPort {
		// Every endpoint in the process is attached here, so the pooled
		// buffer cannot be handed to all of them: one recipient gets the
		// original, the rest get detached copies. Excluding the sender's
		// own rank keeps an endpoint from consuming its own broadcast.
		delivered = p.ports.NotifyBroadcast(hdr.To, in, hdr.From, cloneInbound)
	} else {
		delivered = p.ports.Notify(hdr.To, in)
	}
	if delivered == 0 {
		p.drops.Add(1)
		buf.Free()
	}
}

// cloneInbound detaches an Inbound from its pooled buffer: the copy
// carries its own payload bytes and a zero Buf whose Free is a no-op,
// so every recipient can run the usual decode-then-free sequence.
func cloneInbound(in *Inbound) *Inbound {
	data := make([]byte, len(in.Data))
	copy(data, in.Data)
	return &Inbound{From: in.From, Data: data}
}

// protocolSubscriber adapts Protocol to ifc.Interface's generic
// Observer[Buffer, uint16] contract: the Interface only ever calls
// Update, synchronously, from its own event-loop goroutine, so Updated
// is unreachable and Close is a no-op.
type protocolSubscriber struct{ p *Protocol }

func (s protocolSubscriber) Rank() uint16 { return ethernet.Protocol }

func (s protocolSubscriber) Update(_ uint16, buf ifc.Buffer) { s.p.handleInbound(buf) }

func (s protocolSubscriber) Updated() (ifc.Buffer, bool) { return ifc.Buffer{}, false }

func (s protocolSubscriber) Close() {}

var _ api.Observer[ifc.Buffer, uint16] = protocolSubscriber{}
