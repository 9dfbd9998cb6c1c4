// File: core/concurrency/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "errors"

// ErrExecutorClosed is returned by Submit after Close, and also when
// both the chosen worker's local queue and the shared overflow queue
// are full.
var ErrExecutorClosed = errors.New("executor is closed")
