// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// LinkEngine is the external, cross-host-capable half of the message
// plane's Interface layer: a raw AF_PACKET socket bound to one Ethernet
// device, sending and receiving whole frames with no kernel protocol
// processing. The internal, same-host half (LocalEngine) lives in the
// shm package and is used instead whenever the peer is known to be a
// local process.

package transport
