//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import "errors"

// NewReactor returns an error for unsupported platforms.
func NewReactor() (Reactor, error) {
	return nil, errors.New("reactor: this platform is not supported")
}
