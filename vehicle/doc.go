// File: vehicle/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package vehicle wires one process's transport engines, NIC, protocol,
// gateway and agents into a single lifecycle object, plus the
// process-wide control surface (config store, metrics registry, debug
// probes, background housekeeping).

package vehicle
