// File: internal/wire/message.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Message wire format: kind(1B) + origin address(10B: MAC+port) +
// unit_type(4B) + period_us(4B) + value_size(4B) + value(V bytes).

package wire

import (
	"encoding/binary"

	"github.com/momentics/vfabric/api"
)

// HeaderSize is the fixed portion preceding the variable-length value.
const HeaderSize = 1 + api.MACSize + 4 + 4 + 4 + 4

// Message is the application-level unit of exchange on the bus.
type Message struct {
	Kind     api.MessageKind
	Origin   api.Address
	Unit     api.UnitType
	PeriodUs api.Period
	Value    []byte
}

// Encode serializes m into dst, returning the number of bytes written.
func Encode(dst []byte, m *Message) (int, error) {
	total := HeaderSize + len(m.Value)
	if len(dst) < total {
		return 0, api.ErrUserBufferTooSmall
	}
	dst[0] = byte(m.Kind)
	off := 1
	copy(dst[off:off+api.MACSize], m.Origin.MAC[:])
	off += api.MACSize
	api.PutPort(dst[off:off+4], m.Origin.Port)
	off += 4
	binary.LittleEndian.PutUint32(dst[off:off+4], uint32(m.Unit))
	off += 4
	binary.LittleEndian.PutUint32(dst[off:off+4], uint32(m.PeriodUs))
	off += 4
	binary.LittleEndian.PutUint32(dst[off:off+4], uint32(len(m.Value)))
	off += 4
	copy(dst[off:total], m.Value)
	return total, nil
}

// Decode parses a Message out of buf. Value aliases buf; callers that
// retain a Message past buffer reuse must call Clone.
func Decode(buf []byte) (*Message, error) {
	if len(buf) < HeaderSize {
		return nil, api.ErrShortFrame
	}
	m := &Message{Kind: api.MessageKind(buf[0])}
	off := 1
	copy(m.Origin.MAC[:], buf[off:off+api.MACSize])
	off += api.MACSize
	m.Origin.Port = api.GetPort(buf[off : off+4])
	off += 4
	m.Unit = api.UnitType(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	m.PeriodUs = api.Period(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	size := binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	if uint32(len(buf)-off) < size {
		return nil, api.ErrShortFrame
	}
	m.Value = buf[off : off+int(size)]
	return m, nil
}

// Size returns the encoded wire length of m.
func Size(m *Message) int { return HeaderSize + len(m.Value) }

// Clone returns a Message holding an independent copy of Value, safe to
// retain past the lifetime of the buffer it was decoded from.
func Clone(m *Message) *Message {
	v := make([]byte, len(m.Value))
	copy(v, m.Value)
	return &Message{Kind: m.Kind, Origin: m.Origin, Unit: m.Unit, PeriodUs: m.PeriodUs, Value: v}
}
