//go:build linux
// +build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package shm

import (
	"os"
	"testing"
	"time"
)

func TestLocalEngineSendRecvRoundTrip(t *testing.T) {
	producer, err := NewLocalEngine()
	if err != nil {
		t.Fatalf("NewLocalEngine (producer): %v", err)
	}
	if !producer.isInitializer {
		t.Fatalf("expected first engine to win the create race")
	}
	defer producer.Close()

	consumer, err := NewLocalEngine()
	if err != nil {
		t.Fatalf("NewLocalEngine (consumer): %v", err)
	}
	if consumer.isInitializer {
		t.Fatalf("expected second engine to attach, not initialize")
	}
	defer consumer.Close()

	payload := []byte("hello from the bus")
	if err := producer.Send(0x1234, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 2048)
	protocol, n, ok, err := consumer.Recv(buf)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if !ok {
		t.Fatalf("Recv: expected a frame to be available")
	}
	if protocol != 0x1234 {
		t.Errorf("protocol = %#x, want %#x", protocol, 0x1234)
	}
	if string(buf[:n]) != string(payload) {
		t.Errorf("payload = %q, want %q", buf[:n], payload)
	}
}

func TestLocalEngineRecvEmpty(t *testing.T) {
	e, err := NewLocalEngine()
	if err != nil {
		t.Fatalf("NewLocalEngine: %v", err)
	}
	defer e.Close()

	buf := make([]byte, 64)
	_, _, ok, err := e.Recv(buf)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if ok {
		t.Fatalf("Recv: expected no frame available on a fresh ring")
	}
}

func TestLocalEngineOversizePayloadRejected(t *testing.T) {
	e, err := NewLocalEngine()
	if err != nil {
		t.Fatalf("NewLocalEngine: %v", err)
	}
	defer e.Close()

	oversized := make([]byte, len(frameSlot{}.payload)+1)
	if err := e.Send(1, oversized); err == nil {
		t.Fatalf("Send: expected an error for an oversize payload")
	}
}

func TestLocalEngineBackpressureBlocksWhenFull(t *testing.T) {
	producer, err := NewLocalEngine()
	if err != nil {
		t.Fatalf("NewLocalEngine: %v", err)
	}
	defer producer.Close()

	payload := []byte("fill")
	for i := 0; i < QueueCapacity; i++ {
		if err := producer.Send(1, payload); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}

	unblocked := make(chan error, 1)
	go func() {
		unblocked <- producer.Send(1, payload)
	}()

	select {
	case err := <-unblocked:
		t.Fatalf("Send on a full ring returned early: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	buf := make([]byte, len(payload))
	if _, _, ok, err := producer.Recv(buf); err != nil || !ok {
		t.Fatalf("Recv: ok=%v err=%v", ok, err)
	}

	select {
	case err := <-unblocked:
		if err != nil {
			t.Fatalf("Send after drain: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send still blocked after one slot was drained")
	}

	// Drain the remaining frames so the region is empty for later tests.
	for {
		if _, _, ok, err := producer.Recv(buf); err != nil || !ok {
			break
		}
	}
}

func TestLocalEngineLastDetachUnlinksRegion(t *testing.T) {
	first, err := NewLocalEngine()
	if err != nil {
		t.Fatalf("NewLocalEngine (first): %v", err)
	}
	second, err := NewLocalEngine()
	if err != nil {
		t.Fatalf("NewLocalEngine (second): %v", err)
	}

	path := "/dev/shm/" + RegionName
	first.Close()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("region disappeared while still attached: %v", err)
	}
	second.Close()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("region still present after last detach: %v", err)
	}
}
