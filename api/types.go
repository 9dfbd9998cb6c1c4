// File: api/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared wire-level type declarations for the vehicle message bus: unit
// identifiers, publish periods, message kinds and link-layer addressing.

package api

import (
	"encoding/binary"
	"fmt"
	"time"
)

// UnitType identifies the kind of value carried by a Message (e.g. engine
// RPM, wheel speed). Bit 31 marks the unit as externally visible, i.e.
// producible/consumable across the link layer rather than only within a
// single host's shared-memory ring.
type UnitType uint32

const externalFlag UnitType = 1 << 31

// IsExternal reports whether this unit is allowed to cross the link layer.
func (u UnitType) IsExternal() bool { return u&externalFlag != 0 }

// Period is a publish interval in microseconds. Zero means "stop
// publishing".
type Period uint32

// Duration converts a Period to a time.Duration.
func (p Period) Duration() time.Duration { return time.Duration(p) * time.Microsecond }

// MessageKind distinguishes the role a Message plays in the interest/
// response protocol. The zero value is deliberately not a valid kind so
// a zeroed or corrupted header never decodes into real traffic.
type MessageKind uint8

const (
	KindInterest MessageKind = iota + 1
	KindResponse
	KindPTP  // reserved for future clock-sync use, currently a no-op
	KindJoin // reserved for future membership protocol, currently a no-op
)

func (k MessageKind) String() string {
	switch k {
	case KindInterest:
		return "INTEREST"
	case KindResponse:
		return "RESPONSE"
	case KindPTP:
		return "PTP"
	case KindJoin:
		return "JOIN"
	default:
		return fmt.Sprintf("MessageKind(%d)", uint8(k))
	}
}

// Port identifies an endpoint within a host, analogous to a UDP port but
// scoped to the vehicle bus.
type Port uint32

const (
	// GatewayPort is reserved for the per-host Gateway endpoint.
	GatewayPort Port = 0
	// InternalBroadcastPort is the well-known port producers and
	// consumers address INTEREST/RESPONSE traffic to; every endpoint
	// attaches here and the Protocol layer fans each packet out to all
	// of them except the sender.
	InternalBroadcastPort Port = 1
)

// MACSize is the length in bytes of an Ethernet hardware address.
const MACSize = 6

// MAC is a 6-byte Ethernet hardware address.
type MAC [MACSize]byte

// BroadcastMAC is the all-ones Ethernet broadcast address.
var BroadcastMAC = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// String renders the MAC in standard colon-hex notation.
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Address uniquely identifies an endpoint: a link-layer MAC plus a Port.
type Address struct {
	MAC  MAC
	Port Port
}

// Broadcast is the link-layer broadcast address: the broadcast MAC
// paired with the null port. Its MAC is never the Interface's own, so
// frames sent to it leave through the LinkEngine.
var Broadcast = Address{MAC: BroadcastMAC, Port: 0}

// String renders the address as "mac:port" for use in log lines.
func (a Address) String() string {
	return fmt.Sprintf("%s:%d", a.MAC, a.Port)
}

// Equal reports whether two addresses are identical.
func (a Address) Equal(o Address) bool { return a.MAC == o.MAC && a.Port == o.Port }

// PutPort writes p to b in host byte order, matching the protocol
// packet header's from_port/to_port fields.
func PutPort(b []byte, p Port) { binary.LittleEndian.PutUint32(b, uint32(p)) }

// GetPort reads a Port previously written by PutPort.
func GetPort(b []byte) Port { return Port(binary.LittleEndian.Uint32(b)) }
