// File: agent/agent.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Agent is the per-component actor that owns one Communicator,
// reconciles multiple subscribers' declared periods via gcd, and runs a
// periodic thread, started by the first INTEREST, that publishes
// RESPONSEs until Stop; interests are not tracked once received, so
// publishing does not pause when subscribers go quiet. reply() both builds and sends the
// message: a periodic publisher that built a response and never sent
// it would be a silent no-op, so Send is not optional here.

package agent

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/vfabric/api"
	"github.com/momentics/vfabric/endpoint"
	"github.com/momentics/vfabric/internal/wire"
	"github.com/momentics/vfabric/protocol"
)

// Component is the application-level hook every producing component
// implements: Get returns the current value of the unit the Agent
// publishes on its behalf.
type Component interface {
	Get(unit api.UnitType) []byte
}

// Agent binds one Component to one bus port, acting as both producer
// (of ownedUnit) and consumer (of whatever unit SendInterest last
// declared).
type Agent struct {
	comm      *endpoint.Endpoint
	component Component
	ownedUnit api.UnitType

	periodMu sync.Mutex
	period   time.Duration

	periodicRunning atomic.Bool
	periodicStop    chan struct{}

	stopped atomic.Bool
	wg      sync.WaitGroup

	interestMu   sync.RWMutex
	interestUnit api.UnitType

	latestMu sync.RWMutex
	latest   map[api.UnitType][]byte

	// responses is a secondary, RESPONSE-only mailbox: a component that
	// wants to react to freshly accepted values reads here instead of
	// racing the primary receive loop's INTEREST dispatch.
	responses chan *wire.Message
}

// New constructs an Agent bound to port, producing ownedUnit on behalf
// of component (ownedUnit may be zero if this agent is consumer-only).
func New(proto *protocol.Protocol, port api.Port, ownedUnit api.UnitType, component Component) *Agent {
	a := &Agent{
		comm:      endpoint.New(proto, port, endpoint.RoleProducerConsumer),
		component: component,
		ownedUnit: ownedUnit,
		latest:    make(map[api.UnitType][]byte),
		responses: make(chan *wire.Message, 8),
	}
	a.comm.SetOwnedUnit(ownedUnit)
	a.comm.SetInterestPeriodCallback(a.handleInterest)
	return a
}

// Communicator exposes the agent's endpoint for registration with a
// Gateway (vehicle wiring registers producer/consumer agents so the
// Gateway can relay externally sourced traffic to them).
func (a *Agent) Communicator() *endpoint.Endpoint { return a.comm }

// Run is the agent's primary receive loop: it blocks on the endpoint's
// mailbox and dispatches by message kind. It returns when the endpoint
// is closed.
func (a *Agent) Run() {
	for {
		msg, err := a.comm.Receive()
		if err != nil {
			return
		}
		switch msg.Kind {
		case api.KindInterest:
			a.handleInterest(msg.PeriodUs)
		case api.KindResponse:
			a.handleResponse(msg)
		case api.KindPTP, api.KindJoin:
			// reserved, no-op.
		}
	}
}

// Stop halts the agent: closes its endpoint (unblocking Run), then stops
// the periodic thread if one is running.
func (a *Agent) Stop() {
	a.stopped.Store(true)
	a.comm.Close()
	a.periodMu.Lock()
	running := a.periodicRunning.Load()
	stop := a.periodicStop
	a.periodMu.Unlock()
	if running {
		close(stop)
	}
	a.wg.Wait()
}

// SendInterest declares this agent wants unit at most periodUs apart
// and broadcasts that interest locally so any matching producer's
// periodic thread adjusts to it.
func (a *Agent) SendInterest(unit api.UnitType, periodUs api.Period) bool {
	a.comm.SetInterest(unit, periodUs)
	a.interestMu.Lock()
	a.interestUnit = unit
	a.interestMu.Unlock()
	msg := &wire.Message{Kind: api.KindInterest, Unit: unit, PeriodUs: periodUs}
	return a.comm.Send(msg, a.comm.LocalBroadcast())
}

// CurrentPeriod reports the periodic thread's active publish interval,
// zero if it has not started.
func (a *Agent) CurrentPeriod() time.Duration {
	a.periodMu.Lock()
	defer a.periodMu.Unlock()
	if !a.periodicRunning.Load() {
		return 0
	}
	return a.period
}

// GetLatest returns the most recently accepted value for unit, if any.
func (a *Agent) GetLatest(unit api.UnitType) ([]byte, bool) {
	a.latestMu.RLock()
	defer a.latestMu.RUnlock()
	v, ok := a.latest[unit]
	return v, ok
}

// Responses exposes the secondary RESPONSE-only channel for components
// that want to react to newly accepted values without polling
// GetLatest.
func (a *Agent) Responses() <-chan *wire.Message { return a.responses }

func (a *Agent) handleResponse(msg *wire.Message) {
	a.interestMu.RLock()
	want := a.interestUnit
	a.interestMu.RUnlock()
	if want == 0 || msg.Unit != want {
		return
	}
	a.latestMu.Lock()
	a.latest[msg.Unit] = msg.Value
	a.latestMu.Unlock()
	select {
	case a.responses <- msg:
	default:
		// secondary mailbox full: GetLatest already captured the value,
		// a stalled reader doesn't need every intermediate sample.
	}
}

// handleInterest is the Agent's interest_period_callback: it starts the
// periodic thread on the first INTEREST, or reconciles its running
// period down to gcd(current, new) on every subsequent one, so the
// publisher always satisfies the tightest period any live subscriber
// declared.
func (a *Agent) handleInterest(period api.Period) {
	a.periodMu.Lock()
	defer a.periodMu.Unlock()
	if !a.periodicRunning.Load() {
		a.startPeriodicLocked(period.Duration())
		return
	}
	a.period = gcdDuration(a.period, period.Duration())
}

func (a *Agent) startPeriodicLocked(period time.Duration) {
	if period <= 0 || a.stopped.Load() {
		return
	}
	a.period = period
	a.periodicStop = make(chan struct{})
	a.periodicRunning.Store(true)
	a.wg.Add(1)
	go a.periodicLoop(a.periodicStop)
}

func (a *Agent) periodicLoop(stop chan struct{}) {
	defer a.wg.Done()
	defer a.periodicRunning.Store(false)
	for {
		a.periodMu.Lock()
		period := a.period
		a.periodMu.Unlock()
		if period <= 0 {
			return
		}
		timer := time.NewTimer(period)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			a.reply()
		}
	}
}

// reply builds and sends one RESPONSE carrying the component's current
// value for ownedUnit via the owning communicator.
func (a *Agent) reply() {
	value := a.component.Get(a.ownedUnit)
	msg := &wire.Message{Kind: api.KindResponse, Unit: a.ownedUnit, Value: value}
	a.comm.Send(msg, a.comm.LocalBroadcast())
}

// gcdDuration returns the greatest common divisor of two durations,
// computed on their raw nanosecond counts. A zero
// operand is treated as identity (no constraint yet declared).
func gcdDuration(a, b time.Duration) time.Duration {
	if a <= 0 {
		return b
	}
	if b <= 0 {
		return a
	}
	x, y := uint64(a), uint64(b)
	for y != 0 {
		x, y = y, x%y
	}
	return time.Duration(x)
}
