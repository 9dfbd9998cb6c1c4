// control/plane.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import "github.com/momentics/vfabric/api"

// Plane bundles a process's three control-plane registries behind the
// api.Control contract, so operators and tests manage a vehicle through
// one handle instead of three.
type Plane struct {
	Config  *ConfigStore
	Metrics *MetricsRegistry
	Probes  *DebugProbes
}

// NewPlane wires fresh registries into a Plane.
func NewPlane() *Plane {
	return &Plane{
		Config:  NewConfigStore(),
		Metrics: NewMetricsRegistry(),
		Probes:  NewDebugProbes(),
	}
}

func (p *Plane) GetConfig() map[string]any { return p.Config.GetSnapshot() }

func (p *Plane) SetConfig(cfg map[string]any) error {
	p.Config.SetConfig(cfg)
	return nil
}

func (p *Plane) Stats() map[string]any { return p.Metrics.GetSnapshot() }

func (p *Plane) OnReload(fn func()) { p.Config.OnReload(fn) }

func (p *Plane) RegisterDebugProbe(name string, fn func() any) {
	p.Probes.RegisterProbe(name, fn)
}

var _ api.Control = (*Plane)(nil)
