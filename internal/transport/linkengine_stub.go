//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw AF_PACKET sockets are Linux-specific; other platforms get a stub
// that fails open rather than silently degrading to a different wire
// semantics.

package transport

import "github.com/momentics/vfabric/api"

// LinkEngine stub for unsupported platforms.
type LinkEngine struct{}

// NewLinkEngine always fails on non-Linux builds.
func NewLinkEngine(ifaceName string) (*LinkEngine, error) {
	return nil, api.ErrNotSupported
}

func (e *LinkEngine) Send(frame []byte) error { return api.ErrNotSupported }

func (e *LinkEngine) Recv(buf []byte) (int, error) { return 0, api.ErrNotSupported }

func (e *LinkEngine) FD() int { return -1 }

func (e *LinkEngine) MAC() api.MAC { return api.MAC{} }

func (e *LinkEngine) Close() error { return nil }
