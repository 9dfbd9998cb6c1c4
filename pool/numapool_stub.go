//go:build !linux || !cgo
// +build !linux !cgo

// File: pool/numapool_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

// createNUMAAllocator returns nil where libnuma is unavailable; the
// slab pool then allocates with plain make.
func createNUMAAllocator() NUMAAllocator {
	return nil
}
