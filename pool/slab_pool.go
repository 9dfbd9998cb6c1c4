// File: pool/slab_pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// slabPool recycles fixed-size frame regions through a lock-free MPMC
// free list. Every buffer it hands out is exactly one frame slot; there
// are no size classes because the bus only ever allocates whole frames.

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/vfabric/api"
	"github.com/momentics/vfabric/core/concurrency"
)

const defaultPoolCapacity = 4096

// slabPool is one NUMA node's frame-buffer pool.
type slabPool struct {
	size    int
	newBuf  func(size, numaNode int) api.Buffer
	release func(api.Buffer)

	queue *concurrency.LockFreeQueue[api.Buffer]

	totalAlloc atomic.Uint64
	totalFree  atomic.Uint64
	numaStats  atomic.Pointer[numaMap]
}

// numaMap counts fresh allocations by NUMA node for the debug probes.
type numaMap struct {
	mu     sync.Mutex
	counts map[int]uint64
}

func newNumaMap() *numaMap { return &numaMap{counts: make(map[int]uint64)} }

func (m *numaMap) record(n int) {
	m.mu.Lock()
	m.counts[n]++
	m.mu.Unlock()
}

func (m *numaMap) snapshot() map[int]uint64 {
	m.mu.Lock()
	out := make(map[int]uint64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	m.mu.Unlock()
	return out
}

// Get returns a recycled buffer when one is queued, otherwise allocates
// a fresh region on numaNode.
func (sp *slabPool) Get(_ int, numaNode int) api.Buffer {
	if buf, ok := sp.queue.Dequeue(); ok {
		return buf
	}

	buf := sp.newBuf(sp.size, numaNode)
	buf.Pool = sp

	sp.totalAlloc.Add(1)
	m := sp.numaStats.Load()
	if m == nil {
		m = newNumaMap()
		sp.numaStats.Store(m)
	}
	m.record(numaNode)
	return buf
}

// Put recycles buf onto the free list; a full list releases the region
// back to the platform allocator instead of growing without bound.
func (sp *slabPool) Put(buf api.Buffer) {
	if sp.queue.Enqueue(buf) {
		sp.totalFree.Add(1)
		return
	}
	if sp.release != nil {
		sp.release(buf)
	}
}

func (sp *slabPool) Stats() api.BufferPoolStats {
	totalAlloc := int64(sp.totalAlloc.Load())
	totalFree := int64(sp.totalFree.Load())

	numaStats := make(map[int]int64)
	if m := sp.numaStats.Load(); m != nil {
		for node, cnt := range m.snapshot() {
			numaStats[node] = int64(cnt)
		}
	}
	return api.BufferPoolStats{
		TotalAlloc: totalAlloc,
		TotalFree:  totalFree,
		InUse:      totalAlloc - totalFree,
		NUMAStats:  numaStats,
	}
}

var _ api.BufferPool = (*slabPool)(nil)
