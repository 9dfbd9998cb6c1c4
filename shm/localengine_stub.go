//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package shm

import "github.com/momentics/vfabric/api"

// LocalEngine is unavailable outside Linux: POSIX named semaphores and
// /dev/shm are Linux-specific facilities this bus relies on.
type LocalEngine struct{}

func NewLocalEngine() (*LocalEngine, error) { return nil, api.ErrNotSupported }

func (e *LocalEngine) Send(protocol uint32, payload []byte) error { return api.ErrNotSupported }

func (e *LocalEngine) Recv(buf []byte) (protocol uint32, n int, ok bool, err error) {
	return 0, 0, false, api.ErrNotSupported
}

func (e *LocalEngine) FD() int { return -1 }

func (e *LocalEngine) AckReady() {}

func (e *LocalEngine) Close() error { return nil }
