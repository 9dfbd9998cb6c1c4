//go:build linux && cgo
// +build linux,cgo

// File: pool/numapool_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

// createNUMAAllocator selects the libnuma-backed allocator on Linux
// builds; the frame slab pools place buffers through it.
func createNUMAAllocator() NUMAAllocator {
	return newLinuxNUMAAllocator()
}
