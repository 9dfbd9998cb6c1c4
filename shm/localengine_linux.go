//go:build linux
// +build linux

// File: shm/localengine_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// LocalEngine is a host-local, cross-process message ring backed by a
// single mmap'd /dev/shm region plus three named POSIX semaphores. It
// gives processes on the same host a frame path that never touches the
// wire, the internal half of the Interface's dual-engine routing.

package shm

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/momentics/vfabric/api"
	"golang.org/x/sys/unix"
)

// LocalEngine is one process's handle onto the shared ring. The first
// process to start wins the create race and becomes the initializer;
// every later process attaches to what it built.
type LocalEngine struct {
	fd            int
	mm            []byte
	region        *sharedRegion
	mutexSem      *semaphore
	itemsSem      *semaphore
	spaceSem      *semaphore
	isInitializer bool
	pollFd        int
	running       atomic.Bool
}

// NewLocalEngine opens or creates the shared ring at the well-known
// /dev/shm path, using O_CREAT|O_EXCL to race other processes on the
// host for who performs first-time initialization.
func NewLocalEngine() (*LocalEngine, error) {
	path := "/dev/shm/" + RegionName
	e := &LocalEngine{pollFd: -1}

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0660)
	switch {
	case err == nil:
		e.fd = fd
		e.isInitializer = true
		if err := e.initialize(); err != nil {
			e.cleanup()
			return nil, err
		}
	case errors.Is(err, unix.EEXIST):
		if err := e.attach(path); err != nil {
			e.cleanup()
			return nil, err
		}
		if err := e.waitForInitializer(); err != nil {
			e.cleanup()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}

	pollFd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK)
	if err != nil {
		e.cleanup()
		return nil, fmt.Errorf("shm: timerfd_create: %w", err)
	}
	e.pollFd = pollFd
	spec := &unix.ItimerSpec{
		Interval: unix.NsecToTimespec(int64(pollIntervalMs) * 1e6),
		Value:    unix.NsecToTimespec(int64(pollIntervalMs) * 1e6),
	}
	if err := unix.TimerfdSettime(pollFd, 0, spec, nil); err != nil {
		e.cleanup()
		return nil, fmt.Errorf("shm: timerfd_settime: %w", err)
	}

	e.running.Store(true)
	return e, nil
}

func (e *LocalEngine) initialize() error {
	size := int(unsafe.Sizeof(sharedRegion{}))
	if err := unix.Ftruncate(e.fd, int64(size)); err != nil {
		return fmt.Errorf("shm: ftruncate: %w", err)
	}

	mm, err := unix.Mmap(e.fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("shm: mmap initializer: %w", err)
	}
	e.mm = mm
	e.region = (*sharedRegion)(unsafe.Pointer(&mm[0]))

	atomic.StoreUint32(&e.region.initialized, 0)
	atomic.StoreUint32(&e.region.refCount, 1)
	e.region.readIndex = 0
	e.region.writeIndex = 0

	mutexSem, err := createSemaphore(semMutexName, 1)
	if err != nil {
		return err
	}
	e.mutexSem = mutexSem

	itemsSem, err := createSemaphore(semItemsName, 0)
	if err != nil {
		return err
	}
	e.itemsSem = itemsSem

	spaceSem, err := createSemaphore(semSpaceName, QueueCapacity)
	if err != nil {
		return err
	}
	e.spaceSem = spaceSem

	atomic.StoreUint32(&e.region.initialized, 1)
	return nil
}

func (e *LocalEngine) attach(path string) error {
	fd, err := unix.Open(path, unix.O_RDWR, 0660)
	if err != nil {
		return fmt.Errorf("shm: open existing %s: %w", path, err)
	}
	e.fd = fd

	size := int(unsafe.Sizeof(sharedRegion{}))
	mm, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("shm: mmap attach: %w", err)
	}
	e.mm = mm
	e.region = (*sharedRegion)(unsafe.Pointer(&mm[0]))

	mutexSem, err := openSemaphore(semMutexName)
	if err != nil {
		return err
	}
	e.mutexSem = mutexSem

	itemsSem, err := openSemaphore(semItemsName)
	if err != nil {
		return err
	}
	e.itemsSem = itemsSem

	spaceSem, err := openSemaphore(semSpaceName)
	if err != nil {
		return err
	}
	e.spaceSem = spaceSem

	atomic.AddUint32(&e.region.refCount, 1)
	return nil
}

// waitForInitializer spin-waits on the initialized flag, polling once
// per millisecond up to attachTimeoutMs.
func (e *LocalEngine) waitForInitializer() error {
	deadline := attachTimeoutMs
	for atomic.LoadUint32(&e.region.initialized) == 0 {
		if deadline <= 0 {
			return api.NewError(api.ErrCodeTimeout, "shm: timed out waiting for region initializer").
				WithContext("region", RegionName).
				WithContext("timeout_ms", attachTimeoutMs)
		}
		time.Sleep(time.Millisecond)
		deadline--
	}
	return nil
}

// Send enqueues payload tagged with protocol, acquiring the space
// semaphore, then the mutex, then posting the items semaphore, in that
// order.
func (e *LocalEngine) Send(protocol uint32, payload []byte) error {
	if !e.running.Load() {
		return api.ErrTransportDown
	}
	if len(payload) > len(frameSlot{}.payload) {
		return api.ErrOversizeMessage
	}

	if err := e.spaceSem.wait(); err != nil {
		return err
	}
	if !e.running.Load() {
		e.spaceSem.post()
		return api.ErrTransportDown
	}

	if err := e.mutexSem.wait(); err != nil {
		e.spaceSem.post()
		return err
	}

	writeIdx := e.region.writeIndex
	slot := &e.region.buffer[writeIdx]
	slot.protocol = protocol
	slot.payloadSize = uint32(len(payload))
	copy(slot.payload[:], payload)
	e.region.writeIndex = (writeIdx + 1) % QueueCapacity

	e.mutexSem.post()
	return e.itemsSem.post()
}

// Recv copies at most one queued frame into buf, returning its
// protocol tag and length. ok is false if no frame was queued: the
// items semaphore is polled with a non-blocking trywait rather than a
// blocking wait.
func (e *LocalEngine) Recv(buf []byte) (protocol uint32, n int, ok bool, err error) {
	if !e.running.Load() {
		return 0, 0, false, api.ErrTransportDown
	}

	acquired, err := e.itemsSem.tryWait()
	if err != nil || !acquired {
		return 0, 0, false, err
	}
	if !e.running.Load() {
		e.itemsSem.post()
		return 0, 0, false, api.ErrTransportDown
	}

	if err := e.mutexSem.wait(); err != nil {
		e.itemsSem.post()
		return 0, 0, false, err
	}

	readIdx := e.region.readIndex
	slot := &e.region.buffer[readIdx]
	size := slot.payloadSize
	if int(size) > len(buf) {
		// The slot is consumed either way; leaving it in place would
		// wedge the ring on a frame no caller can ever take.
		e.region.readIndex = (readIdx + 1) % QueueCapacity
		e.mutexSem.post()
		e.spaceSem.post()
		return 0, 0, false, api.ErrUserBufferTooSmall
	}
	protocol = slot.protocol
	n = copy(buf, slot.payload[:size])
	e.region.readIndex = (readIdx + 1) % QueueCapacity

	e.mutexSem.post()
	if err := e.spaceSem.post(); err != nil {
		return protocol, n, true, err
	}
	return protocol, n, true, nil
}

// FD exposes the poll-interval timerfd for reactor registration. The
// ring itself carries no pollable fd (named semaphores aren't
// epoll-compatible), so Recv is driven by periodic timerfd wakeups
// instead of readiness.
func (e *LocalEngine) FD() int { return e.pollFd }

// AckReady consumes the timerfd's expiration counter. A timerfd stays
// readable until its 8-byte count is read, so a level-triggered poller
// that skips this spins on the fd instead of sleeping until the next
// tick.
func (e *LocalEngine) AckReady() {
	if e.pollFd < 0 {
		return
	}
	var count [8]byte
	unix.Read(e.pollFd, count[:])
}

// Close stops the engine and releases its resources, unlinking the
// shared region and semaphores if this process was the last attached.
func (e *LocalEngine) Close() error {
	if !e.running.CompareAndSwap(true, false) {
		return nil
	}
	e.cleanup()
	return nil
}

func (e *LocalEngine) cleanup() {
	if e.mutexSem != nil {
		e.mutexSem.close()
	}
	if e.itemsSem != nil {
		e.itemsSem.close()
	}
	if e.spaceSem != nil {
		e.spaceSem.close()
	}

	shouldUnlink := false
	if e.region != nil {
		remaining := atomic.AddUint32(&e.region.refCount, ^uint32(0))
		shouldUnlink = remaining == 0
		unix.Munmap(e.mm)
		e.region = nil
		e.mm = nil
	}

	if e.fd >= 0 {
		unix.Close(e.fd)
		e.fd = -1
	}

	if shouldUnlink {
		unlinkSemaphore(semMutexName)
		unlinkSemaphore(semItemsName)
		unlinkSemaphore(semSpaceName)
		os.Remove("/dev/shm/" + RegionName)
	}

	if e.pollFd >= 0 {
		unix.Close(e.pollFd)
		e.pollFd = -1
	}
}
