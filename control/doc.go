// Package control is the vehicle process's management plane: live
// configuration with hot-reload propagation, a flushed metrics
// snapshot, and named debug probes over the NIC/Protocol/engine
// counters. The Housekeeper ties them together, sampling probes into
// the metrics registry on a ticker off the message hot path.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package control
