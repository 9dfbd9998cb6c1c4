//go:build linux && cgo
// +build linux,cgo

// File: shm/semaphore_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// cgo binding to POSIX named semaphores: sem_open/sem_wait/sem_post/
// sem_close/sem_unlink. core/concurrency/affinity_linux.go binds NUMA
// and scheduling through cgo the same way, for a concern the standard
// library has no access to.
package shm

/*
#include <semaphore.h>
#include <fcntl.h>
#include <errno.h>
#include <stdlib.h>

static sem_t *shm_sem_create(const char *name, unsigned int value) {
	sem_t *s = sem_open(name, O_CREAT | O_EXCL, 0660, value);
	return (s == SEM_FAILED) ? NULL : s;
}

static sem_t *shm_sem_open(const char *name) {
	sem_t *s = sem_open(name, 0);
	return (s == SEM_FAILED) ? NULL : s;
}
*/
import "C"

import (
	"fmt"
	"syscall"
	"unsafe"
)

// semaphore wraps a single named POSIX semaphore.
type semaphore struct {
	sem  *C.sem_t
	name string
}

// createSemaphore opens a named semaphore exclusively, as the
// initializing process does for all three of its semaphores.
func createSemaphore(name string, value uint) (*semaphore, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	sem, err := C.shm_sem_create(cname, C.uint(value))
	if sem == nil {
		return nil, fmt.Errorf("shm: sem_open create %s: %w", name, err)
	}
	return &semaphore{sem: sem, name: name}, nil
}

// openSemaphore attaches to an already-created named semaphore, as an
// attaching (non-initializing) process does.
func openSemaphore(name string) (*semaphore, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	sem, err := C.shm_sem_open(cname)
	if sem == nil {
		return nil, fmt.Errorf("shm: sem_open attach %s: %w", name, err)
	}
	return &semaphore{sem: sem, name: name}, nil
}

// wait blocks until the semaphore can be decremented, retrying on
// EINTR: the Go runtime's async-preemption signal routinely interrupts
// goroutines parked in blocking cgo calls, and an interrupted sem_wait
// is not a failure.
func (s *semaphore) wait() error {
	for {
		rc, err := C.sem_wait(s.sem)
		if rc == 0 {
			return nil
		}
		if err == syscall.EINTR {
			continue
		}
		return fmt.Errorf("shm: sem_wait %s: %w", s.name, err)
	}
}

// tryWait is the non-blocking sem_trywait used by receive-side polling:
// returns (false, nil) on EAGAIN (no item available) rather than an error.
func (s *semaphore) tryWait() (bool, error) {
	for {
		rc, err := C.sem_trywait(s.sem)
		if rc == 0 {
			return true, nil
		}
		if err == syscall.EAGAIN {
			return false, nil
		}
		if err == syscall.EINTR {
			continue
		}
		return false, fmt.Errorf("shm: sem_trywait %s: %w", s.name, err)
	}
}

func (s *semaphore) post() error {
	for {
		rc, err := C.sem_post(s.sem)
		if rc == 0 {
			return nil
		}
		if err == syscall.EINTR {
			continue
		}
		return fmt.Errorf("shm: sem_post %s: %w", s.name, err)
	}
}

func (s *semaphore) close() error {
	if rc, err := C.sem_close(s.sem); rc != 0 {
		return fmt.Errorf("shm: sem_close %s: %w", s.name, err)
	}
	return nil
}

func unlinkSemaphore(name string) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	if rc, err := C.sem_unlink(cname); rc != 0 && err != syscall.ENOENT {
		return fmt.Errorf("shm: sem_unlink %s: %w", name, err)
	}
	return nil
}
