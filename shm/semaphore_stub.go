//go:build !linux || !cgo
// +build !linux !cgo

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package shm

import "errors"

var errUnsupported = errors.New("shm: named semaphores are not supported on this platform")

type semaphore struct{}

func createSemaphore(name string, value uint) (*semaphore, error) { return nil, errUnsupported }

func openSemaphore(name string) (*semaphore, error) { return nil, errUnsupported }

func (s *semaphore) wait() error { return errUnsupported }

func (s *semaphore) tryWait() (bool, error) { return false, errUnsupported }

func (s *semaphore) post() error { return errUnsupported }

func (s *semaphore) close() error { return nil }

func unlinkSemaphore(name string) error { return nil }
