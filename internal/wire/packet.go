// File: internal/wire/packet.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Protocol packet header: the thin from_port/to_port/size envelope the
// Protocol layer wraps around a serialized Message before handing it to
// the Interface for framing.

package wire

import (
	"encoding/binary"

	"github.com/momentics/vfabric/api"
)

// PacketHeaderSize is from_port (4B) + to_port (4B) + size (4B).
const PacketHeaderSize = 12

// PacketHeader is the Protocol layer's port-routing envelope.
type PacketHeader struct {
	From api.Port
	To   api.Port
	Size uint32
}

// EncodePacket writes header followed by data into dst.
func EncodePacket(dst []byte, h PacketHeader, data []byte) (int, error) {
	total := PacketHeaderSize + len(data)
	if len(dst) < total {
		return 0, api.ErrUserBufferTooSmall
	}
	binary.LittleEndian.PutUint32(dst[0:4], uint32(h.From))
	binary.LittleEndian.PutUint32(dst[4:8], uint32(h.To))
	binary.LittleEndian.PutUint32(dst[8:12], h.Size)
	copy(dst[PacketHeaderSize:total], data)
	return total, nil
}

// DecodePacket parses a PacketHeader and returns it along with the
// remaining payload, which aliases buf.
func DecodePacket(buf []byte) (PacketHeader, []byte, error) {
	if len(buf) < PacketHeaderSize {
		return PacketHeader{}, nil, api.ErrShortFrame
	}
	h := PacketHeader{
		From: api.Port(binary.LittleEndian.Uint32(buf[0:4])),
		To:   api.Port(binary.LittleEndian.Uint32(buf[4:8])),
		Size: binary.LittleEndian.Uint32(buf[8:12]),
	}
	rest := buf[PacketHeaderSize:]
	if uint32(len(rest)) < h.Size {
		return PacketHeader{}, nil, api.ErrShortFrame
	}
	return h, rest[:h.Size], nil
}
