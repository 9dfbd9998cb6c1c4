// File: api/shutdown.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulStop is the teardown contract shared by components that own
// goroutines, sockets, or shared-memory resources: Stop is idempotent,
// returns only after every owned goroutine has exited, and releases the
// component's handles exactly once.
type GracefulStop interface {
	Stop() error
}
