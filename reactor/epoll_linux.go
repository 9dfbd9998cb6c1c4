//go:build linux
// +build linux

// File: reactor/epoll_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux epoll(7)-backed Reactor: EpollCreate1 + EpollCtl + EpollWait via
// golang.org/x/sys/unix.

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type epollReactor struct {
	epfd     int
	userData map[int32]int
}

// NewReactor constructs the Linux epoll-backed Reactor.
func NewReactor() (Reactor, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	return &epollReactor{epfd: epfd, userData: make(map[int32]int)}, nil
}

func toEpollEvents(mask EventMask) uint32 {
	var ev uint32
	if mask&EventRead != 0 {
		ev |= unix.EPOLLIN
	}
	if mask&EventWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (r *epollReactor) Register(fd int, mask EventMask, userData int) error {
	ev := &unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl add: %w", err)
	}
	r.userData[int32(fd)] = userData
	return nil
}

func (r *epollReactor) Unregister(fd int) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("reactor: epoll_ctl del: %w", err)
	}
	delete(r.userData, int32(fd))
	return nil
}

func (r *epollReactor) Wait(dst []Event, timeoutMs int) ([]Event, error) {
	var raw [64]unix.EpollEvent
	n, err := unix.EpollWait(r.epfd, raw[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, fmt.Errorf("reactor: epoll_wait: %w", err)
	}
	for i := 0; i < n; i++ {
		var mask EventMask
		if raw[i].Events&unix.EPOLLIN != 0 {
			mask |= EventRead
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			mask |= EventWrite
		}
		if raw[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			mask |= EventError
		}
		dst = append(dst, Event{Fd: int(raw[i].Fd), UserData: r.userData[raw[i].Fd], Mask: mask})
	}
	return dst, nil
}

func (r *epollReactor) Close() error {
	return unix.Close(r.epfd)
}
