// File: internal/transport/linkengine_linux.go
//go:build linux
// +build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux LinkEngine: a non-blocking AF_PACKET/SOCK_RAW socket bound to one
// interface, sending and receiving complete Ethernet II frames. Adapted
// from transport_linux.go's unix.Socket/SendmsgBuffers/RecvmsgBuffers
// style, retargeted from a TCP byte-stream socket to a raw link-layer
// socket carrying the bus's EtherType.

package transport

import (
	"fmt"
	"net"

	"github.com/momentics/vfabric/api"
	"github.com/momentics/vfabric/internal/ethernet"
	"golang.org/x/sys/unix"
)

// LinkEngine sends and receives raw Ethernet frames on a single NIC.
type LinkEngine struct {
	fd      int
	ifIndex int
	mac     api.MAC
	closed  bool
}

// htons converts a host-order uint16 to network order, matching the
// socket(7) requirement that sll_protocol / the packet socket protocol
// argument be supplied big-endian.
func htons(v uint16) uint16 { return (v >> 8) | (v << 8) }

// NewLinkEngine opens a raw packet socket bound to ifaceName, filtering
// for the bus's EtherType only.
func NewLinkEngine(ifaceName string) (*LinkEngine, error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("link: lookup interface %s: %w", ifaceName, err)
	}

	proto := htons(ethernet.Protocol)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_NONBLOCK, int(proto))
	if err != nil {
		return nil, fmt.Errorf("link: socket: %w", err)
	}

	addr := &unix.SockaddrLinklayer{
		Protocol: proto,
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("link: bind to %s: %w", ifaceName, err)
	}

	e := &LinkEngine{fd: fd, ifIndex: iface.Index}
	copy(e.mac[:], iface.HardwareAddr)
	return e, nil
}

// MAC returns the hardware address the engine is bound to, learned from
// the interface at open time.
func (e *LinkEngine) MAC() api.MAC { return e.mac }

// Send transmits one Ethernet frame. The frame must already contain the
// 14-byte Ethernet header.
func (e *LinkEngine) Send(frame []byte) error {
	if e.closed {
		return api.ErrTransportDown
	}
	addr := &unix.SockaddrLinklayer{Ifindex: e.ifIndex}
	if err := unix.Sendto(e.fd, frame, 0, addr); err != nil {
		return fmt.Errorf("link: sendto: %w", err)
	}
	return nil
}

// Recv reads one frame into buf, returning the number of bytes read.
// Returns (0, nil) if no frame is currently available (EAGAIN).
func (e *LinkEngine) Recv(buf []byte) (int, error) {
	if e.closed {
		return 0, api.ErrTransportDown
	}
	n, _, err := unix.Recvfrom(e.fd, buf, 0)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, fmt.Errorf("link: recvfrom: %w", err)
	}
	return n, nil
}

// FD exposes the underlying file descriptor for epoll registration.
func (e *LinkEngine) FD() int { return e.fd }

// Close shuts the socket down.
func (e *LinkEngine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return unix.Close(e.fd)
}
