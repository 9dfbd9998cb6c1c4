//go:build !linux || !cgo
// +build !linux !cgo

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub affinity implementation for non-Linux build targets and for
// Linux builds without cgo.

package concurrency

func platformPinCurrentThread(numaNode int, cpuID int) {}

func platformCurrentNUMANodeID() int { return 0 }

func platformNUMANodes() int { return 1 }
