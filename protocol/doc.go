// File: protocol/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package protocol implements the message plane's Protocol layer: it
// attaches to exactly one ifc.Interface as the sole observer of the
// bus's reserved EtherType, wraps outgoing payloads in a from-port/
// to-port/size header (internal/wire.PacketHeader), and fans incoming
// packets out to port-keyed Endpoint observers.
//
// Framing follows a fixed-header-ahead-of-variable-payload codec built
// on encoding/binary, carried in internal/wire.

package protocol
