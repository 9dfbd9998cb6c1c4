// control/housekeeping.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Housekeeper runs the process's background maintenance off the message
// hot path: periodic metrics snapshot flush and config hot-reload
// dispatch, both submitted to a concurrency.Executor worker pool rather
// than spawned as ad hoc goroutines per tick.

package control

import (
	"sync"
	"time"

	"github.com/momentics/vfabric/core/concurrency"
)

// Housekeeper periodically copies DebugProbes output into a
// MetricsRegistry and re-dispatches config reload hooks whenever
// ConfigStore changes, using exec.Submit so the work runs on the
// shared background worker pool instead of a dedicated goroutine.
type Housekeeper struct {
	exec     *concurrency.Executor
	metrics  *MetricsRegistry
	probes   *DebugProbes
	cfg      *ConfigStore
	interval time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewHousekeeper wires the three control-plane registries to a
// dedicated Executor of numWorkers workers pinned to numaNode (-1 for
// system default), flushing metrics every interval.
func NewHousekeeper(metrics *MetricsRegistry, probes *DebugProbes, cfg *ConfigStore, interval time.Duration, numWorkers, numaNode int) *Housekeeper {
	h := &Housekeeper{
		exec:     concurrency.NewExecutor(numWorkers, numaNode),
		metrics:  metrics,
		probes:   probes,
		cfg:      cfg,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	if cfg != nil {
		cfg.OnReload(func() { _ = h.exec.Submit(TriggerHotReload) })
	}
	return h
}

// Start launches the periodic metrics-flush ticker.
func (h *Housekeeper) Start() {
	h.wg.Add(1)
	go h.run()
}

// Stop halts the ticker and drains the Executor's worker pool.
func (h *Housekeeper) Stop() {
	close(h.stopCh)
	h.wg.Wait()
	h.exec.Close()
}

func (h *Housekeeper) run() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			_ = h.exec.Submit(h.flush)
		}
	}
}

func (h *Housekeeper) flush() {
	if h.probes == nil || h.metrics == nil {
		return
	}
	for k, v := range h.probes.DumpState() {
		h.metrics.Set(k, v)
	}
}
