package endpoint

import (
	"testing"
	"time"

	"github.com/momentics/vfabric/api"
	"github.com/momentics/vfabric/ifc"
	"github.com/momentics/vfabric/internal/fake"
	"github.com/momentics/vfabric/internal/wire"
	"github.com/momentics/vfabric/protocol"
)

func newTestProtocol(t *testing.T) *protocol.Protocol {
	t.Helper()
	nic, err := ifc.New(nil, fake.NewLocalEngine(), 8, -1)
	if err != nil {
		t.Fatalf("ifc.New: %v", err)
	}
	if err := nic.Start(); err != nil {
		t.Fatalf("nic.Start: %v", err)
	}
	t.Cleanup(func() { nic.Stop() })
	return protocol.New(nic)
}

func recvWithTimeout(t *testing.T, e *Endpoint) *wire.Message {
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

func TestSendAndReceiveDirectPort(t *testing.T) {
	proto := newTestProtocol(t)
	producer := New(proto, api.Port(10), RoleProducer)
	defer producer.Close()
	consumer := New(proto, api.Port(11), RoleConsumer)
	defer consumer.Close()

	msg := &wire.Message{Kind: api.KindResponse, Unit: 42, Value: []byte("v1")}
	if !producer.Send(msg, consumer.Address()) {
		t.Fatal("Send reported failure")
	}
	got := recvWithTimeout(t, consumer)
	if got.Unit != 42 || string(got.Value) != "v1" {
		t.Fatalf("got %+v", got)
	}
}

func TestProducerRespondsToInterestOnlyForOwnedUnit(t *testing.T) {
	proto := newTestProtocol(t)
	producer := New(proto, api.Port(20), RoleProducer)
	defer producer.Close()
	producer.SetOwnedUnit(7)

	var gotPeriod api.Period
	seen := make(chan struct{}, 1)
	producer.SetInterestPeriodCallback(func(p api.Period) {
		gotPeriod = p
		seen <- struct{}{}
	})

	asker := New(proto, api.Port(21), RoleConsumer)
	defer asker.Close()

	// Interest for a different unit must not fire the callback.
	asker.Send(&wire.Message{Kind: api.KindInterest, Unit: 9, PeriodUs: 100}, asker.LocalBroadcast())
	select {
	case <-seen:
		t.Fatal("callback fired for unowned unit")
	case <-time.After(50 * time.Millisecond):
	}

	asker.Send(&wire.Message{Kind: api.KindInterest, Unit: 7, PeriodUs: 500}, asker.LocalBroadcast())
	select {
	case <-seen:
		if gotPeriod != 500 {
			t.Fatalf("period = %d, want 500", gotPeriod)
		}
	case <-time.After(time.Second):
		t.Fatal("callback never fired for owned unit")
	}
}

func TestConsumerFiltersResponseByDeclaredUnit(t *testing.T) {
	proto := newTestProtocol(t)
	consumer := New(proto, api.Port(30), RoleConsumer)
	defer consumer.Close()
	consumer.SetInterest(3, 0)

	producer := New(proto, api.Port(31), RoleProducer)
	defer producer.Close()

	producer.Send(&wire.Message{Kind: api.KindResponse, Unit: 99, Value: []byte("ignored")}, producer.LocalBroadcast())
	producer.Send(&wire.Message{Kind: api.KindResponse, Unit: 3, Value: []byte("wanted")}, producer.LocalBroadcast())

	got := recvWithTimeout(t, consumer)
	if got.Unit != 3 || string(got.Value) != "wanted" {
		t.Fatalf("got %+v, want unit 3 value \"wanted\"", got)
	}
}

func TestConsumerPeriodFilterSpacesAcceptedResponses(t *testing.T) {
	proto := newTestProtocol(t)
	consumer := New(proto, api.Port(35), RoleConsumer)
	defer consumer.Close()
	// 200ms minimum spacing: of two back-to-back responses only the
	// first may be accepted.
	consumer.SetInterest(6, 200_000)

	producer := New(proto, api.Port(36), RoleProducer)
	defer producer.Close()

	producer.Send(&wire.Message{Kind: api.KindResponse, Unit: 6, Value: []byte("first")}, producer.LocalBroadcast())
	producer.Send(&wire.Message{Kind: api.KindResponse, Unit: 6, Value: []byte("second")}, producer.LocalBroadcast())

	got := recvWithTimeout(t, consumer)
	if string(got.Value) != "first" {
		t.Fatalf("accepted %q, want %q", got.Value, "first")
	}

	done := make(chan struct{})
	go func() {
		consumer.Receive()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("second response inside the declared period was accepted")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClosedEndpointReceiveReturnsShutdownWake(t *testing.T) {
	proto := newTestProtocol(t)
	e := New(proto, api.Port(40), RoleConsumer)
	e.Close()
	if _, err := e.Receive(); err != api.ErrShutdownWake {
		t.Fatalf("Receive after Close: got %v, want ErrShutdownWake", err)
	}
}

func TestSendOversizeMessageRejected(t *testing.T) {
	proto := newTestProtocol(t)
	e := New(proto, api.Port(50), RoleProducer)
	defer e.Close()
	msg := &wire.Message{Value: make([]byte, MTUPayloadLimit+1)}
	if e.Send(msg, e.Address()) {
		t.Fatal("Send accepted an oversize message")
	}
}

func TestDeliverDirectBypassesProtocol(t *testing.T) {
	proto := newTestProtocol(t)
	e := New(proto, api.Port(60), RoleConsumer)
	defer e.Close()
	e.DeliverDirect(&wire.Message{Unit: 1, Value: []byte("direct")})
	got := recvWithTimeout(t, e)
	if string(got.Value) != "direct" {
		t.Fatalf("got %+v", got)
	}
}
