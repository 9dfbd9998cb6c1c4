// File: pool/bufferpool.go
// Author: momentics <momentics@gmail.com>
//
// Cross-platform NUMA-aware BufferPool manager with transparent backend selection.
// All public API is OS/NUMA-agnostic; platform-specific allocators in separate files.

package pool

import (
	"sync"

	"github.com/momentics/vfabric/api"
	"github.com/momentics/vfabric/core/concurrency"
	"github.com/momentics/vfabric/internal/ethernet"
)

// FrameBufferSize is the fixed per-buffer size handed out by every
// pool: one full Ethernet II frame, header plus MTU-sized payload, so
// a single pooled buffer always holds one frame end to end.
const FrameBufferSize = ethernet.HeaderSize + ethernet.MTU

// BufferPoolManager provides NUMA-segmented pools for each NUMA node.
type BufferPoolManager struct {
	mu    sync.RWMutex
	pools map[int]api.BufferPool // Key: NUMA node (-1 for system default)
}

// NewBufferPoolManager creates and initializes a new manager.
func NewBufferPoolManager() *BufferPoolManager {
	return &BufferPoolManager{
		pools: make(map[int]api.BufferPool),
	}
}

// GetPool obtains or creates a NUMA-specific BufferPool.
// NUMA node -1 means "system default"; other values refer to platform-specific ID.
func (m *BufferPoolManager) GetPool(numaNode int) api.BufferPool {
	m.mu.RLock()
	pool, ok := m.pools[numaNode]
	m.mu.RUnlock()
	if ok {
		return pool
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if pool, ok := m.pools[numaNode]; ok {
		return pool
	}
	pool = newBufferPool(numaNode)
	m.pools[numaNode] = pool
	return pool
}

// newBufferPool builds the slab-backed pool for a NUMA node. Allocation
// itself is delegated to the platform NUMAAllocator (numa_linux.go, nil
// elsewhere); newBufferPool just wires that allocator into a slabPool
// so every Get/Put goes through the lock-free free-list in slab_pool.go
// instead of hitting the allocator on every call.
func newBufferPool(numaNode int) api.BufferPool {
	alloc := createNUMAAllocator()
	sp := &slabPool{
		size:  FrameBufferSize,
		queue: concurrency.NewLockFreeQueue[api.Buffer](defaultPoolCapacity),
		newBuf: func(size, node int) api.Buffer {
			if alloc != nil {
				if data, err := alloc.Alloc(size, node); err == nil {
					return api.Buffer{Data: data, NUMA: node}
				}
			}
			return api.Buffer{Data: make([]byte, size), NUMA: node}
		},
		release: func(b api.Buffer) {
			if alloc != nil {
				alloc.Free(b.Data)
			}
		},
	}
	return sp
}
