// File: vehicle/vehicle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package vehicle

import (
	"fmt"
	"time"

	"github.com/momentics/vfabric/agent"
	"github.com/momentics/vfabric/api"
	"github.com/momentics/vfabric/control"
	"github.com/momentics/vfabric/gateway"
	"github.com/momentics/vfabric/ifc"
	"github.com/momentics/vfabric/internal/transport"
	"github.com/momentics/vfabric/protocol"
	"github.com/momentics/vfabric/shm"
)

// Config parameterizes one Vehicle process.
type Config struct {
	// LinkInterface names the host NIC to bind a raw AF_PACKET socket
	// to. Empty means this process has no link-layer transport and can
	// only exchange traffic with other local processes.
	LinkInterface string

	// PoolSize is the Interface's fixed frame-buffer pool size.
	PoolSize int

	// NUMANode selects which NUMA-local slab pool backs the frame
	// buffers (-1 for system default).
	NUMANode int

	// EventLoopCPU pins the NIC event-loop goroutine to a CPU when
	// >= 0.
	EventLoopCPU int

	// MetricsInterval is how often the Housekeeper flushes debug
	// probes into the metrics registry.
	MetricsInterval time.Duration

	// HousekeepWorkers sizes the Executor backing the Housekeeper.
	HousekeepWorkers int
}

func (c Config) withDefaults() Config {
	if c.PoolSize <= 0 {
		c.PoolSize = 64
	}
	if c.MetricsInterval <= 0 {
		c.MetricsInterval = time.Second
	}
	if c.HousekeepWorkers <= 0 {
		c.HousekeepWorkers = 1
	}
	return c
}

// Vehicle is one process's complete message-plane stack: transport
// engines, NIC, protocol, gateway, zero or more agents, and the
// control plane managing them.
type Vehicle struct {
	cfg Config

	link  *transport.LinkEngine
	local *shm.LocalEngine
	nic   *ifc.Interface
	proto *protocol.Protocol
	gw    *gateway.Gateway

	agents []*agent.Agent

	// Control is the process's management plane: configuration,
	// flushed metrics, and the debug probes every layer registers its
	// counters on.
	Control *control.Plane

	housekeeper *control.Housekeeper
}

// New constructs a Vehicle. If cfg.LinkInterface is empty the process
// runs local-only: Send to a remote MAC fails, but shared-memory
// delivery to other local processes still works.
func New(cfg Config) (*Vehicle, error) {
	cfg = cfg.withDefaults()

	local, err := shm.NewLocalEngine()
	if err != nil {
		return nil, fmt.Errorf("vehicle: local engine: %w", err)
	}

	var link *transport.LinkEngine
	if cfg.LinkInterface != "" {
		link, err = transport.NewLinkEngine(cfg.LinkInterface)
		if err != nil {
			local.Close()
			return nil, fmt.Errorf("vehicle: link engine: %w", err)
		}
	}

	var nic *ifc.Interface
	if link != nil {
		nic, err = ifc.New(link, local, cfg.PoolSize, cfg.NUMANode)
	} else {
		nic, err = ifc.New(nil, local, cfg.PoolSize, cfg.NUMANode)
	}
	if err != nil {
		local.Close()
		if link != nil {
			link.Close()
		}
		return nil, fmt.Errorf("vehicle: interface: %w", err)
	}
	if cfg.EventLoopCPU >= 0 {
		nic.SetEventLoopCPU(cfg.EventLoopCPU)
	}

	proto := protocol.New(nic)
	gw := gateway.New(proto)

	plane := control.NewPlane()
	plane.Config.SetConfig(map[string]any{
		control.KeyPoolSize:     cfg.PoolSize,
		control.KeyNUMANode:     cfg.NUMANode,
		control.KeyEventLoopCPU: cfg.EventLoopCPU,
	})
	control.RegisterPlatformProbes(plane.Probes)
	plane.RegisterDebugProbe("ifc.stats.external", func() any {
		return map[string]int64{
			"sent": nic.Stats().SentExternal.Load(),
			"recv": nic.Stats().RecvExternal.Load(),
		}
	})
	plane.RegisterDebugProbe("ifc.stats.internal", func() any {
		return map[string]int64{
			"sent": nic.Stats().SentInternal.Load(),
			"recv": nic.Stats().RecvInternal.Load(),
		}
	})
	plane.RegisterDebugProbe("ifc.stats.drops", func() any {
		s := nic.Stats()
		return map[string]int64{
			"short":       s.DropShort.Load(),
			"self_loop":   s.DropSelfLoop.Load(),
			"foreign":     s.DropForeign.Load(),
			"no_observer": s.DropNoObserver.Load(),
			"exhausted":   s.DropExhausted.Load(),
		}
	})
	plane.RegisterDebugProbe("ifc.pool.free", func() any { return nic.FreeBuffers() })
	plane.RegisterDebugProbe("protocol.drops", func() any { return proto.Drops() })

	housekeeper := control.NewHousekeeper(plane.Metrics, plane.Probes, plane.Config, cfg.MetricsInterval, cfg.HousekeepWorkers, cfg.NUMANode)

	return &Vehicle{
		cfg:         cfg,
		link:        link,
		local:       local,
		nic:         nic,
		proto:       proto,
		gw:          gw,
		Control:     plane,
		housekeeper: housekeeper,
	}, nil
}

// AddAgent constructs and registers an Agent bound to port, producing
// ownedUnit on behalf of component. ownedUnit of zero means the agent
// is consumer-only and is not registered as a local producer.
func (v *Vehicle) AddAgent(port api.Port, ownedUnit api.UnitType, component agent.Component) *agent.Agent {
	a := agent.New(v.proto, port, ownedUnit, component)
	if ownedUnit != 0 {
		v.gw.RegisterProducer(a.Communicator(), ownedUnit)
	}
	v.agents = append(v.agents, a)
	return a
}

// DeclareInterest sends an INTEREST for unit at the given period on a's
// behalf and registers a with the Gateway so a future externally
// sourced RESPONSE for unit is relayed to it.
func (v *Vehicle) DeclareInterest(a *agent.Agent, unit api.UnitType, period api.Period) {
	v.gw.RegisterInterest(a.Communicator(), unit)
	a.SendInterest(unit, period)
}

// Start launches the NIC event loop, the Gateway, every registered
// Agent's receive loop, and the housekeeping ticker.
func (v *Vehicle) Start() error {
	if err := v.nic.Start(); err != nil {
		return fmt.Errorf("vehicle: start interface: %w", err)
	}
	v.gw.Start()
	for _, a := range v.agents {
		go a.Run()
	}
	v.housekeeper.Start()
	return nil
}

// Stop tears the process down in reverse order: housekeeping, agents,
// gateway, then the NIC (which in turn closes both transport engines).
func (v *Vehicle) Stop() error {
	v.housekeeper.Stop()
	for _, a := range v.agents {
		a.Stop()
	}
	v.gw.Stop()
	return v.nic.Stop()
}

var _ api.GracefulStop = (*Vehicle)(nil)
