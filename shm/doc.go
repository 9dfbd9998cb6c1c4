// Package shm implements the bus's host-local transport: a
// cross-process message ring living in a single mmap'd /dev/shm
// region, guarded by named POSIX semaphores. It is the LocalEngine
// half of the Interface layer, sitting alongside the raw-socket
// LinkEngine in internal/transport — one process on a host is picked
// by a create/attach race to own and initialize the ring, every other
// process attaches to it.
package shm
