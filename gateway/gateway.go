// File: gateway/gateway.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Gateway is the per-process bridge: the single endpoint bound to
// GATEWAY_PORT, forwarding INTEREST to locally registered producers and
// RESPONSE to locally registered consumers, and deciding whether a
// message it's asked to send should reach the wire at all based on
// UnitType.IsExternal(). The registry holds a set of distinct
// subscribing endpoints per unit rather than a single observer per
// unit, since more than one local producer or consumer can share a
// unit type.

package gateway

import (
	"sync"

	"github.com/momentics/vfabric/api"
	"github.com/momentics/vfabric/endpoint"
	"github.com/momentics/vfabric/internal/wire"
	"github.com/momentics/vfabric/internal/xlog"
	"github.com/momentics/vfabric/protocol"
)

// Gateway bridges local and remote traffic for one process.
type Gateway struct {
	comm *endpoint.Endpoint

	mu        sync.Mutex
	producers map[api.UnitType]map[*endpoint.Endpoint]struct{}
	interests map[api.UnitType]map[*endpoint.Endpoint]struct{}

	wg sync.WaitGroup
}

// New constructs a Gateway bound to GATEWAY_PORT on proto. Call Start to
// launch its receive loop.
func New(proto *protocol.Protocol) *Gateway {
	return &Gateway{
		comm:      endpoint.New(proto, api.GatewayPort, endpoint.RoleGateway),
		producers: make(map[api.UnitType]map[*endpoint.Endpoint]struct{}),
		interests: make(map[api.UnitType]map[*endpoint.Endpoint]struct{}),
	}
}

// RegisterProducer marks e as a local producer of unit, so an inbound
// INTEREST for unit is forwarded to it.
func (g *Gateway) RegisterProducer(e *endpoint.Endpoint, unit api.UnitType) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set, ok := g.producers[unit]
	if !ok {
		set = make(map[*endpoint.Endpoint]struct{})
		g.producers[unit] = set
	}
	set[e] = struct{}{}
}

// RegisterInterest marks e as a local consumer of unit, so an inbound
// RESPONSE for unit is forwarded to it.
func (g *Gateway) RegisterInterest(e *endpoint.Endpoint, unit api.UnitType) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set, ok := g.interests[unit]
	if !ok {
		set = make(map[*endpoint.Endpoint]struct{})
		g.interests[unit] = set
	}
	set[e] = struct{}{}
}

// Unregister removes e from both registries, normally called when e
// closes.
func (g *Gateway) Unregister(e *endpoint.Endpoint) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, set := range g.producers {
		delete(set, e)
	}
	for _, set := range g.interests {
		delete(set, e)
	}
}

// Start launches the gateway's receive loop.
func (g *Gateway) Start() {
	g.wg.Add(1)
	go g.run()
}

// Stop closes the gateway's communicator, unblocking its receive loop,
// and waits for it to exit.
func (g *Gateway) Stop() {
	g.comm.Close()
	g.wg.Wait()
}

func (g *Gateway) run() {
	defer g.wg.Done()
	for {
		msg, err := g.comm.Receive()
		if err != nil {
			return
		}
		g.handle(msg)
	}
}

// handle dispatches by message kind. PTP and JOIN are reserved stubs:
// the dispatch exists, the behavior doesn't.
func (g *Gateway) handle(msg *wire.Message) {
	switch msg.Kind {
	case api.KindInterest:
		g.notifyLocal(g.producers, msg)
	case api.KindResponse:
		g.notifyLocal(g.interests, msg)
	case api.KindPTP:
		// reserved: clock-sync relay, not implemented.
	case api.KindJoin:
		// reserved: membership relay, not implemented.
	default:
		xlog.Warn("gateway: unknown message kind %v", msg.Kind)
	}
}

func (g *Gateway) notifyLocal(registry map[api.UnitType]map[*endpoint.Endpoint]struct{}, msg *wire.Message) {
	g.mu.Lock()
	set := registry[msg.Unit]
	targets := make([]*endpoint.Endpoint, 0, len(set))
	for e := range set {
		targets = append(targets, e)
	}
	g.mu.Unlock()
	for _, e := range targets {
		e.DeliverDirect(wire.Clone(msg))
	}
}

// Send is the Gateway's own Communicator.send: external-visible units
// go out over the link, everything else is handled as if it had just
// arrived locally.
func (g *Gateway) Send(msg *wire.Message) bool {
	if msg.Unit.IsExternal() {
		return g.comm.Send(msg, api.Broadcast)
	}
	g.handle(msg)
	return true
}
