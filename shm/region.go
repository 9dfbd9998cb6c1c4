// File: shm/region.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Layout of the shared-memory ring used by LocalEngine: a
// fixed-capacity circular buffer of frame slots plus an initialized
// flag and reference count, all living in one mmap'd region so every
// process on the host sees the same memory.

package shm

import "github.com/momentics/vfabric/internal/ethernet"

const (
	// RegionName is the /dev/shm entry backing the ring.
	RegionName = "vehicle_internal_shm"

	// Semaphore names: one mutual-exclusion semaphore guarding the ring
	// indices, and a pair of counting semaphores tracking occupied vs.
	// free slots. sem_open requires the leading slash.
	semMutexName = "/vehicle_shm_mutex"
	semItemsName = "/vehicle_shm_items"
	semSpaceName = "/vehicle_shm_space"

	// QueueCapacity is the ring's slot count.
	QueueCapacity = 64

	// pollIntervalMs is the period of the LocalEngine's timerfd, which
	// wakes the event loop to drain the ring with sem_trywait; a sender
	// waiting for ring space blocks in sem_wait instead.
	pollIntervalMs = 10

	// attachTimeoutMs bounds how long an attaching process spin-waits
	// for the initializer to finish setup.
	attachTimeoutMs = 5000
)

// frameSlot holds one queued frame: the protocol tag it was sent under
// and its payload, sized to the link layer's MTU.
type frameSlot struct {
	protocol    uint32
	payloadSize uint32
	payload     [ethernet.MTU]byte
}

// sharedRegion is the mmap'd layout. initialized and refCount are
// touched with sync/atomic (multiple processes race to read them
// before the mutex semaphore exists); readIndex/writeIndex and the
// buffer itself are only ever touched while holding the mutex
// semaphore.
type sharedRegion struct {
	initialized uint32
	refCount    uint32
	readIndex   uint32
	writeIndex  uint32
	buffer      [QueueCapacity]frameSlot
}
