package protocol

import (
	"testing"
	"time"

	"github.com/momentics/vfabric/api"
	"github.com/momentics/vfabric/ifc"
	"github.com/momentics/vfabric/internal/ethernet"
	"github.com/momentics/vfabric/internal/fake"
	"github.com/momentics/vfabric/internal/wire"
)

var selfMAC = api.MAC{0x02, 0, 0, 0, 0, 0xaa}

func newTestInterface(t *testing.T) *ifc.Interface {
	t.Helper()
	nic, err := ifc.New(nil, fake.NewLocalEngine(), 8, -1)
	if err != nil {
		t.Fatalf("ifc.New: %v", err)
	}
	if err := nic.Start(); err != nil {
		t.Fatalf("nic.Start: %v", err)
	}
	t.Cleanup(func() { nic.Stop() })
	return nic
}

func newLinkedInterface(t *testing.T) (*ifc.Interface, *fake.LinkEngine) {
	t.Helper()
	link := fake.NewLinkEngine(selfMAC)
	nic, err := ifc.New(link, fake.NewLocalEngine(), 8, -1)
	if err != nil {
		t.Fatalf("ifc.New: %v", err)
	}
	if err := nic.Start(); err != nil {
		t.Fatalf("nic.Start: %v", err)
	}
	t.Cleanup(func() { nic.Stop() })
	return nic, link
}

type captureObserver struct {
	rank api.Port
	ch   chan *Inbound
}

func newCaptureObserver(rank api.Port) *captureObserver {
	return &captureObserver{rank: rank, ch: make(chan *Inbound, 8)}
}

func (c *captureObserver) Update(_ api.Port, in *Inbound) { c.ch <- in }
func (c *captureObserver) Updated() (*Inbound, bool)      { return nil, false }
func (c *captureObserver) Rank() api.Port                 { return c.rank }
func (c *captureObserver) Close()                         {}

func TestSendDeliversToAttachedPort(t *testing.T) {
	nic := newTestInterface(t)
	p := New(nic)

	obs := newCaptureObserver(5)
	p.Attach(obs, api.Port(5))

	from := api.Address{MAC: p.SelfMAC(), Port: 3}
	to := api.Address{MAC: p.SelfMAC(), Port: 5}
	payload := []byte("wheel-speed")
	if _, err := p.Send(from, to, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case in := <-obs.ch:
		if string(in.Data) != string(payload) {
			t.Fatalf("Data = %q, want %q", in.Data, payload)
		}
		if in.From != from {
			t.Fatalf("From = %+v, want %+v", in.From, from)
		}
		in.Buf.Free()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestSendWithNoObserverCountsDrop(t *testing.T) {
	nic := newTestInterface(t)
	p := New(nic)

	to := api.Address{MAC: p.SelfMAC(), Port: 99}
	if _, err := p.Send(api.Address{MAC: p.SelfMAC(), Port: 2}, to, []byte("x")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for p.Drops() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if p.Drops() != 1 {
		t.Fatalf("Drops() = %d, want 1", p.Drops())
	}
}

// injectFrame builds a full Ethernet frame carrying a packet addressed
// to toPort and pushes it through the fake link engine as if it had
// arrived off the wire from src.
func injectFrame(t *testing.T, link *fake.LinkEngine, src, dst api.MAC, fromPort, toPort api.Port, user []byte) {
	t.Helper()
	pkt := make([]byte, wire.PacketHeaderSize+len(user))
	hdr := wire.PacketHeader{From: fromPort, To: toPort, Size: uint32(len(user))}
	if _, err := wire.EncodePacket(pkt, hdr, user); err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}
	frame := make([]byte, ethernet.HeaderSize+len(pkt))
	if _, err := ethernet.Encode(frame, &ethernet.Frame{Dst: dst, Src: src, EthType: ethernet.Protocol, Payload: pkt}); err != nil {
		t.Fatalf("ethernet.Encode: %v", err)
	}
	link.Inject(frame)
}

func TestExternalFrameToGatewayPortDropped(t *testing.T) {
	nic, link := newLinkedInterface(t)
	p := New(nic)

	gwObs := newCaptureObserver(api.GatewayPort)
	p.Attach(gwObs, api.GatewayPort)

	foreign := api.MAC{0x02, 0, 0, 0, 0, 0xbb}
	injectFrame(t, link, foreign, selfMAC, api.Port(33), api.GatewayPort, []byte("spoof"))

	deadline := time.Now().Add(time.Second)
	for p.Drops() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if p.Drops() != 1 {
		t.Fatalf("Drops() = %d, want 1", p.Drops())
	}
	select {
	case <-gwObs.ch:
		t.Fatal("gateway observer was woken by an externally sourced frame")
	default:
	}
}

func TestBroadcastClonesPerRecipientAndSuppressesSource(t *testing.T) {
	nic := newTestInterface(t)
	p := New(nic)

	sender := newCaptureObserver(100)
	other1 := newCaptureObserver(200)
	other2 := newCaptureObserver(300)
	p.Attach(sender, api.InternalBroadcastPort)
	p.Attach(other1, api.InternalBroadcastPort)
	p.Attach(other2, api.InternalBroadcastPort)

	from := api.Address{MAC: p.SelfMAC(), Port: 100}
	to := api.Address{MAC: p.SelfMAC(), Port: api.InternalBroadcastPort}
	if _, err := p.Send(from, to, []byte("brd")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	for _, obs := range []*captureObserver{other1, other2} {
		select {
		case in := <-obs.ch:
			if string(in.Data) != "brd" {
				t.Fatalf("observer %d got %q", obs.rank, in.Data)
			}
			in.Buf.Free()
		case <-time.After(time.Second):
			t.Fatalf("observer %d never notified", obs.rank)
		}
	}
	select {
	case <-sender.ch:
		t.Fatal("broadcast was fed back to the sending port")
	case <-time.After(50 * time.Millisecond):
	}
}
