// File: api/control.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Control is the process-wide management contract a running vehicle
// exposes next to its message plane: configuration snapshots, live
// counters from the NIC/protocol/engine layers, hot-reload hooks, and
// named debug probes.

package api

// Control exposes configuration, live metrics and debug probes for one
// vehicle process.
type Control interface {
	// GetConfig returns a snapshot of all configuration settings.
	GetConfig() map[string]any

	// SetConfig merges cfg into the live configuration and notifies
	// reload listeners.
	SetConfig(cfg map[string]any) error

	// Stats returns the most recent flushed metrics snapshot.
	Stats() map[string]any

	// OnReload registers a callback invoked after each SetConfig.
	OnReload(fn func())

	// RegisterDebugProbe registers a named probe function, sampled by
	// the housekeeping flusher and by debug dumps.
	RegisterDebugProbe(name string, fn func() any)
}
