// File: internal/ethernet/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Ethernet II framing for the link-layer engine: a fixed 14-byte header
// (destination MAC, source MAC, protocol) followed by a payload bounded
// by MTU.

package ethernet

import (
	"encoding/binary"

	"github.com/momentics/vfabric/api"
)

// HeaderSize is the byte length of an Ethernet II header: 6 (dst) + 6
// (src) + 2 (protocol).
const HeaderSize = 2*api.MACSize + 2

// MTU bounds the payload carried by a single frame.
const MTU = 1500

// Protocol is the EtherType value reserved for this bus's traffic.
const Protocol uint16 = 0x8000

// Frame is a decoded Ethernet II frame: fixed header plus a payload
// slice. Payload aliases the backing buffer; callers that need to retain
// it past a buffer's reuse must copy.
type Frame struct {
	Dst     api.MAC
	Src     api.MAC
	EthType uint16
	Payload []byte
}

// Encode writes the frame into dst (which must be at least HeaderSize+
// len(f.Payload) bytes) and returns the number of bytes written.
func Encode(dst []byte, f *Frame) (int, error) {
	total := HeaderSize + len(f.Payload)
	if total > HeaderSize+MTU {
		return 0, api.ErrOversizeMessage
	}
	if len(dst) < total {
		return 0, api.ErrUserBufferTooSmall
	}
	copy(dst[0:api.MACSize], f.Dst[:])
	copy(dst[api.MACSize:2*api.MACSize], f.Src[:])
	binary.BigEndian.PutUint16(dst[2*api.MACSize:HeaderSize], f.EthType)
	copy(dst[HeaderSize:total], f.Payload)
	return total, nil
}

// Decode parses an Ethernet II frame out of buf. The returned Frame's
// Payload aliases buf.
func Decode(buf []byte) (*Frame, error) {
	if len(buf) < HeaderSize {
		return nil, api.ErrShortFrame
	}
	f := &Frame{}
	copy(f.Dst[:], buf[0:api.MACSize])
	copy(f.Src[:], buf[api.MACSize:2*api.MACSize])
	f.EthType = binary.BigEndian.Uint16(buf[2*api.MACSize : HeaderSize])
	f.Payload = buf[HeaderSize:]
	return f, nil
}
