package wire

import (
	"bytes"
	"testing"

	"github.com/momentics/vfabric/api"
)

func TestEncodeDecodePacketRoundTrip(t *testing.T) {
	h := PacketHeader{From: 3, To: 9, Size: 4}
	data := []byte("abcd")
	dst := make([]byte, PacketHeaderSize+len(data))

	n, err := EncodePacket(dst, h, data)
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}
	if n != len(dst) {
		t.Fatalf("EncodePacket wrote %d, want %d", n, len(dst))
	}

	gotHdr, gotData, err := DecodePacket(dst)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if gotHdr != h {
		t.Fatalf("DecodePacket header = %+v, want %+v", gotHdr, h)
	}
	if !bytes.Equal(gotData, data) {
		t.Fatalf("DecodePacket data = %q, want %q", gotData, data)
	}
}

func TestDecodePacketShort(t *testing.T) {
	if _, _, err := DecodePacket(make([]byte, PacketHeaderSize-1)); err != api.ErrShortFrame {
		t.Fatalf("got %v, want ErrShortFrame", err)
	}
}

func TestEncodePacketTooSmall(t *testing.T) {
	_, err := EncodePacket(make([]byte, PacketHeaderSize), PacketHeader{Size: 2}, []byte("ab"))
	if err != api.ErrUserBufferTooSmall {
		t.Fatalf("got %v, want ErrUserBufferTooSmall", err)
	}
}
