package gateway

import (
	"testing"
	"time"

	"github.com/momentics/vfabric/api"
	"github.com/momentics/vfabric/endpoint"
	"github.com/momentics/vfabric/ifc"
	"github.com/momentics/vfabric/internal/fake"
	"github.com/momentics/vfabric/internal/wire"
	"github.com/momentics/vfabric/protocol"
)

const externalBit api.UnitType = 1 << 31

func newTestStack(t *testing.T) (*protocol.Protocol, *fake.LinkEngine) {
	t.Helper()
	link := fake.NewLinkEngine(api.MAC{0x02, 0, 0, 0, 0, 0x01})
	nic, err := ifc.New(link, fake.NewLocalEngine(), 16, -1)
	if err != nil {
		t.Fatalf("ifc.New: %v", err)
	}
	if err := nic.Start(); err != nil {
		t.Fatalf("nic.Start: %v", err)
	}
	t.Cleanup(func() { nic.Stop() })
	return protocol.New(nic), link
}

func recvWithTimeout(t *testing.T, e *endpoint.Endpoint) *wire.Message {
	t.Helper()
	type result struct {
		msg *wire.Message
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := e.Receive()
		ch <- result{msg, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("Receive: %v", r.err)
		}
		return r.msg
	case <-time.After(time.Second):
		t.Fatal("Receive timed out")
		return nil
	}
}

func TestInternalResponseRelayedToRegisteredConsumer(t *testing.T) {
	proto, _ := newTestStack(t)
	gw := New(proto)
	gw.Start()
	defer gw.Stop()

	consumer := endpoint.New(proto, api.Port(50), endpoint.RoleConsumer)
	defer consumer.Close()
	gw.RegisterInterest(consumer, 7)

	if !gw.Send(&wire.Message{Kind: api.KindResponse, Unit: 7, Value: []byte("abc")}) {
		t.Fatal("Send failed")
	}
	got := recvWithTimeout(t, consumer)
	if got.Unit != 7 || string(got.Value) != "abc" {
		t.Fatalf("got %+v", got)
	}
}

func TestInterestRelayedToRegisteredProducer(t *testing.T) {
	proto, _ := newTestStack(t)
	gw := New(proto)
	gw.Start()
	defer gw.Stop()

	producer := endpoint.New(proto, api.Port(60), endpoint.RoleProducer)
	defer producer.Close()
	gw.RegisterProducer(producer, 9)

	gw.Send(&wire.Message{Kind: api.KindInterest, Unit: 9, PeriodUs: 1000})
	got := recvWithTimeout(t, producer)
	if got.Kind != api.KindInterest || got.Unit != 9 || got.PeriodUs != 1000 {
		t.Fatalf("got %+v", got)
	}
}

func TestRelayOnlyReachesMatchingUnit(t *testing.T) {
	proto, _ := newTestStack(t)
	gw := New(proto)
	gw.Start()
	defer gw.Stop()

	matching := endpoint.New(proto, api.Port(70), endpoint.RoleConsumer)
	defer matching.Close()
	other := endpoint.New(proto, api.Port(71), endpoint.RoleConsumer)
	defer other.Close()
	gw.RegisterInterest(matching, 3)
	gw.RegisterInterest(other, 4)

	gw.Send(&wire.Message{Kind: api.KindResponse, Unit: 3, Value: []byte("x")})
	if got := recvWithTimeout(t, matching); got.Unit != 3 {
		t.Fatalf("got %+v", got)
	}

	done := make(chan struct{})
	go func() {
		other.Receive()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("endpoint registered for another unit received the relay")
	case <-time.After(100 * time.Millisecond):
	}
	other.Close()
}

func TestExternalUnitBroadcastsOnLink(t *testing.T) {
	proto, link := newTestStack(t)
	gw := New(proto)
	gw.Start()
	defer gw.Stop()

	if !gw.Send(&wire.Message{Kind: api.KindResponse, Unit: externalBit | 12, Value: []byte("ext")}) {
		t.Fatal("Send failed")
	}

	deadline := time.Now().Add(time.Second)
	for len(link.Sent()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := len(link.Sent()); got != 1 {
		t.Fatalf("link transmitted %d frames, want 1", got)
	}
}

func TestUnregisterStopsRelay(t *testing.T) {
	proto, _ := newTestStack(t)
	gw := New(proto)
	gw.Start()
	defer gw.Stop()

	consumer := endpoint.New(proto, api.Port(80), endpoint.RoleConsumer)
	gw.RegisterInterest(consumer, 5)
	gw.Unregister(consumer)

	gw.Send(&wire.Message{Kind: api.KindResponse, Unit: 5, Value: []byte("y")})

	done := make(chan struct{})
	go func() {
		consumer.Receive()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("unregistered endpoint still received the relay")
	case <-time.After(100 * time.Millisecond):
	}
	consumer.Close()
}
