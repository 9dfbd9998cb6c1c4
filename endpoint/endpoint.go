// File: endpoint/endpoint.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Endpoint is one port on a Protocol, attached both at its own port and
// at INTERNAL_BROADCAST_PORT so it can see the interest/response
// traffic other local endpoints broadcast there; Gateway relays bypass
// the Protocol and reach the mailbox through DeliverDirect. The
// role-aware filter table runs inline inside
// Update, before anything is pushed to the mailbox, rather than after
// dequeue.

package endpoint

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/vfabric/api"
	"github.com/momentics/vfabric/internal/ethernet"
	"github.com/momentics/vfabric/internal/wire"
	"github.com/momentics/vfabric/internal/xlog"
	"github.com/momentics/vfabric/observer"
	"github.com/momentics/vfabric/pool"
	"github.com/momentics/vfabric/protocol"
)

// Role selects which row of the inbound filter table applies.
type Role int

const (
	RoleGateway Role = iota
	RoleProducer
	RoleConsumer
	RoleProducerConsumer
)

func (r Role) isProducer() bool { return r == RoleProducer || r == RoleProducerConsumer }
func (r Role) isConsumer() bool { return r == RoleConsumer || r == RoleProducerConsumer }

// Endpoint is one (protocol, address) pair. It implements
// api.Observer[*protocol.Inbound, api.Port] itself: Update applies the
// role filter and, on acceptance, decodes and pushes a Message onto the
// mailbox Receive blocks on.
type Endpoint struct {
	proto *protocol.Protocol
	addr  api.Address
	role  Role

	mailbox *observer.Mailbox[*wire.Message]
	scratch *pool.SimpleBytePool
	closed  atomic.Bool

	// Producer-side: the unit this endpoint publishes, and the callback
	// invoked with the declared period whenever an INTEREST for that
	// unit arrives on INTERNAL_BROADCAST_PORT.
	mu               sync.Mutex
	ownedUnit        api.UnitType
	interestCallback func(api.Period)

	// Consumer-side: the single declared interest this endpoint filters
	// RESPONSE traffic against.
	interestUnit   api.UnitType
	interestPeriod api.Period
	lastAcceptedUs atomic.Int64
}

// New constructs an Endpoint bound to port on proto with the given role,
// attaching immediately at both its own port and INTERNAL_BROADCAST_PORT.
func New(proto *protocol.Protocol, port api.Port, role Role) *Endpoint {
	e := &Endpoint{
		proto:   proto,
		addr:    api.Address{MAC: proto.SelfMAC(), Port: port},
		role:    role,
		mailbox: observer.NewMailbox[*wire.Message](),
		scratch: pool.NewSimpleBytePool(2, MTUPayloadLimit),
	}
	proto.Attach(e, port)
	proto.Attach(e, api.InternalBroadcastPort)
	return e
}

// Address returns the endpoint's own (MAC, port) pair. The MAC is the
// owning Interface's SelfMAC, read through the Protocol once when New
// constructs the endpoint.
func (e *Endpoint) Address() api.Address { return e.addr }

// LocalBroadcast returns this host's own MAC paired with
// INTERNAL_BROADCAST_PORT: the address Agents and the Gateway target to
// reach every locally attached producer/consumer endpoint without
// leaving the host.
func (e *Endpoint) LocalBroadcast() api.Address {
	return api.Address{MAC: e.proto.SelfMAC(), Port: api.InternalBroadcastPort}
}

// SetOwnedUnit declares the unit type this endpoint produces, used by
// the PRODUCER branch of the role filter.
func (e *Endpoint) SetOwnedUnit(u api.UnitType) {
	e.mu.Lock()
	e.ownedUnit = u
	e.mu.Unlock()
}

// SetInterestPeriodCallback wires the function invoked when an INTEREST
// for this endpoint's owned unit arrives, normally an Agent's
// handleInterest.
func (e *Endpoint) SetInterestPeriodCallback(fn func(api.Period)) {
	e.mu.Lock()
	e.interestCallback = fn
	e.mu.Unlock()
}

// SetInterest declares the unit and period this endpoint is interested
// in receiving RESPONSEs for. period of 0 means "accept every arrival".
func (e *Endpoint) SetInterest(unit api.UnitType, period api.Period) {
	e.mu.Lock()
	e.interestUnit = unit
	e.interestPeriod = period
	e.mu.Unlock()
}

// Send serializes msg and forwards it to the Protocol layer, addressed
// to dest (the link-layer broadcast address if none is given).
func (e *Endpoint) Send(msg *wire.Message, dest ...api.Address) bool {
	if e.closed.Load() {
		return false
	}
	to := api.Broadcast
	if len(dest) > 0 {
		to = dest[0]
	}
	size := wire.Size(msg)
	if size > MTUPayloadLimit {
		return false
	}
	// Protocol.Send copies the encoded bytes into a frame buffer before
	// returning, so the scratch region can go straight back to the pool.
	buf := e.scratch.Get()
	defer e.scratch.Put(buf)
	if _, err := wire.Encode(buf, msg); err != nil {
		return false
	}
	n, err := e.proto.Send(e.addr, to, buf[:size])
	return err == nil && n == size
}

// Receive blocks until a message arrives or the endpoint is closed, in
// which case it returns ErrShutdownWake.
func (e *Endpoint) Receive() (*wire.Message, error) {
	msg, ok := e.mailbox.Pop()
	if !ok {
		return nil, api.ErrShutdownWake
	}
	return msg, nil
}

// Close flips the closed flag and wakes a pending Receive with the null
// sentinel.
func (e *Endpoint) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.mailbox.Close()
	e.proto.Detach(e, e.addr.Port)
	e.proto.Detach(e, api.InternalBroadcastPort)
}

// DeliverDirect pushes msg straight to the mailbox, bypassing the
// Protocol entirely. This is how a Gateway relays a locally-registered
// producer/consumer's traffic without round-tripping through the
// wire.
func (e *Endpoint) DeliverDirect(msg *wire.Message) {
	if e.closed.Load() {
		return
	}
	e.mailbox.Push(msg)
}

// Rank reports the endpoint's own port. The Protocol's
// INTERNAL_BROADCAST_PORT fan-out (Observable.NotifyBroadcast) compares
// it with the packet's from-port to keep a broadcast away from the
// endpoint that sent it; other ports use targeted Notify.
func (e *Endpoint) Rank() api.Port { return e.addr.Port }

// Updated satisfies api.Observer; Endpoint is driven by Update, not
// polled, so Updated is unreachable.
func (e *Endpoint) Updated() (*protocol.Inbound, bool) { return nil, false }

// Update implements the role-aware inbound filter table. It runs on the
// Protocol's calling goroutine (the Interface event loop), before any
// mailbox push.
func (e *Endpoint) Update(cond api.Port, in *protocol.Inbound) {
	if e.closed.Load() {
		in.Buf.Free()
		return
	}
	switch cond {
	case api.GatewayPort:
		if e.role == RoleGateway {
			e.deliver(in)
		} else {
			in.Buf.Free()
		}
	case api.InternalBroadcastPort:
		e.handleBroadcast(in)
	default:
		if cond == e.addr.Port {
			e.deliver(in)
		} else {
			xlog.Warn("endpoint %s: dropping packet delivered for foreign port %d", e.addr, cond)
			in.Buf.Free()
		}
	}
}

func (e *Endpoint) deliver(in *protocol.Inbound) {
	msg, err := wire.Decode(in.Data)
	if err != nil {
		in.Buf.Free()
		return
	}
	msg.Origin = in.From
	clone := wire.Clone(msg)
	in.Buf.Free()
	e.mailbox.Push(clone)
}

func (e *Endpoint) handleBroadcast(in *protocol.Inbound) {
	msg, err := wire.Decode(in.Data)
	if err != nil {
		in.Buf.Free()
		return
	}
	msg.Origin = in.From

	switch msg.Kind {
	case api.KindInterest:
		e.mu.Lock()
		owned, cb := e.ownedUnit, e.interestCallback
		e.mu.Unlock()
		if e.role.isProducer() && msg.Unit == owned && cb != nil {
			cb(msg.PeriodUs)
		}
		in.Buf.Free()
	case api.KindResponse:
		e.mu.Lock()
		want, period := e.interestUnit, e.interestPeriod
		e.mu.Unlock()
		if e.role.isConsumer() && msg.Unit == want && e.acceptByPeriod(period) {
			clone := wire.Clone(msg)
			in.Buf.Free()
			e.mailbox.Push(clone)
			return
		}
		in.Buf.Free()
	default:
		// PTP / JOIN: reserved, no-op.
		in.Buf.Free()
	}
}

// acceptByPeriod enforces the period-filter invariant: a consumer with
// period P>0 only accepts responses at least P microseconds apart;
// period 0 means "no minimum spacing".
func (e *Endpoint) acceptByPeriod(period api.Period) bool {
	if period == 0 {
		e.lastAcceptedUs.Store(time.Now().UnixMicro())
		return true
	}
	now := time.Now().UnixMicro()
	last := e.lastAcceptedUs.Load()
	if now-last < int64(period) {
		return false
	}
	e.lastAcceptedUs.Store(now)
	return true
}

// MTUPayloadLimit bounds a single Message's serialized size to the
// largest payload the Protocol layer can wrap in one frame.
const MTUPayloadLimit = ethernet.MTU - wire.PacketHeaderSize

var _ api.Observer[*protocol.Inbound, api.Port] = (*Endpoint)(nil)
