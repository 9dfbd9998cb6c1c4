// File: ifc/interface.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Interface owns both transport engines, a fixed pool of frame buffers,
// and the single event-loop goroutine that multiplexes their readiness.
// The buffer pool's free list is core/concurrency.RingBuffer[T], a
// lock-free MPMC ring, rather than a mutex-guarded queue.
//
// Rather than a dedicated stop eventfd, the event loop re-checks its
// running flag every pollTimeoutMs between reactor waits, keeping Stop's
// delay bounded without an extra syscall-backed wakeup primitive.

package ifc

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/momentics/vfabric/api"
	"github.com/momentics/vfabric/core/concurrency"
	"github.com/momentics/vfabric/internal/ethernet"
	"github.com/momentics/vfabric/internal/xlog"
	"github.com/momentics/vfabric/observer"
	"github.com/momentics/vfabric/pool"
	"github.com/momentics/vfabric/reactor"
)

// linkEngine is the subset of transport.LinkEngine the Interface needs;
// declared locally so ifc never imports the platform-specific transport
// package directly.
type linkEngine interface {
	Send(frame []byte) error
	Recv(buf []byte) (int, error)
	FD() int
	MAC() api.MAC
	Close() error
}

// localEngine is the subset of shm.LocalEngine the Interface needs.
// AckReady consumes whatever readiness signal FD carries (the real
// engine's periodic timerfd expiration count) so the event loop's next
// wait actually sleeps instead of re-firing on a stale signal.
type localEngine interface {
	Send(protocol uint32, payload []byte) error
	Recv(buf []byte) (protocol uint32, n int, ok bool, err error)
	FD() int
	AckReady()
	Close() error
}

const (
	tagLink = iota
	tagLocal

	// pollTimeoutMs bounds how long the event loop can block before it
	// re-checks its running flag.
	pollTimeoutMs = 100
)

// Stats holds per-route packet counts split by whether a frame crossed
// the wire or stayed on-host, plus drop counters for the rejection
// paths in drainLink/drainLocal; a failed Send is reported to its
// caller, not counted.
type Stats struct {
	SentExternal   atomic.Int64
	SentInternal   atomic.Int64
	RecvExternal   atomic.Int64
	RecvInternal   atomic.Int64
	DropShort      atomic.Int64
	DropSelfLoop   atomic.Int64
	DropForeign    atomic.Int64
	DropNoObserver atomic.Int64
	DropExhausted  atomic.Int64
}

// Interface is the NIC layer: buffer pool plus dual-engine routing.
type Interface struct {
	link  linkEngine
	local localEngine

	selfMAC api.MAC

	freeList *concurrency.RingBuffer[*frameBuf]
	backing  []*frameBuf
	numaNode int

	observers *observer.ConcurrentObserved[Buffer, uint16]

	rx      reactor.Reactor
	running atomic.Bool
	wg      sync.WaitGroup

	// pinCPU, when >= 0, pins the event-loop goroutine's OS thread to
	// that CPU before the first wait.
	pinCPU int

	stats Stats
}

// New constructs an Interface over the given engines with a pool of
// poolSize pre-allocated frame buffers drawn from the NUMA-aware slab
// pool for numaNode (-1 for system default). Either engine may be nil
// (e.g. no LinkEngine on a host with no configured NIC); Send then
// fails for destinations that would have required it.
func New(link linkEngine, local localEngine, poolSize, numaNode int) (*Interface, error) {
	if poolSize < 2 {
		poolSize = 2
	}
	rx, err := reactor.NewReactor()
	if err != nil {
		return nil, fmt.Errorf("ifc: %w", err)
	}

	i := &Interface{
		link:      link,
		local:     local,
		freeList:  concurrency.NewRingBuffer[*frameBuf](uint64(poolSize)),
		backing:   make([]*frameBuf, poolSize),
		observers: observer.NewConcurrentObserved[Buffer, uint16](),
		rx:        rx,
		numaNode:  numaNode,
		pinCPU:    -1,
	}
	if link != nil {
		i.selfMAC = link.MAC()
	}
	slab := pool.DefaultPool(numaNode)
	for n := 0; n < poolSize; n++ {
		apiBuf := slab.Get(frameBufSize, numaNode)
		fb := &frameBuf{raw: apiBuf.Data, apiBuf: apiBuf}
		i.backing[n] = fb
		i.freeList.Enqueue(fb)
	}
	return i, nil
}

// releasePool returns every backing frameBuf's slab allocation to the
// pool it came from. Called once, from Stop.
func (i *Interface) releasePool() {
	slab := pool.DefaultPool(i.numaNode)
	for _, fb := range i.backing {
		slab.Put(fb.apiBuf)
	}
}

// SelfMAC returns the hardware address frames are routed against to
// decide internal vs. external delivery.
func (i *Interface) SelfMAC() api.MAC { return i.selfMAC }

// Attach registers an observer (typically the Protocol layer) for
// frames carrying the given EtherType.
func (i *Interface) Attach(o api.Observer[Buffer, uint16], rank uint16) {
	i.observers.Attach(o, rank)
}

// Detach removes a previously attached observer.
func (i *Interface) Detach(o api.Observer[Buffer, uint16], rank uint16) {
	i.observers.Detach(o, rank)
}

// Stats returns the interface's live counters.
func (i *Interface) Stats() *Stats { return &i.stats }

// FreeBuffers reports how many pooled frame buffers are currently on
// the free list. At rest this equals the pool size: every in-flight
// buffer is eventually freed by exactly one owner.
func (i *Interface) FreeBuffers() int { return i.freeList.Len() }

// SetEventLoopCPU pins the event-loop goroutine to cpu at its next
// start. Must be called before Start; -1 (the default) leaves the
// goroutine unpinned.
func (i *Interface) SetEventLoopCPU(cpu int) { i.pinCPU = cpu }

// Allocate reserves one pooled buffer addressed to dst under protocol,
// sized for size payload bytes, and writes the Ethernet header eagerly
// so EthernetFrame() is send-ready as soon as the caller fills Payload.
func (i *Interface) Allocate(dst api.MAC, protocol uint16, size int) (Buffer, error) {
	if size > ethernet.MTU {
		return Buffer{}, api.ErrOversizeMessage
	}
	if !i.running.Load() {
		return Buffer{}, api.ErrTransportDown
	}
	fb, ok := i.freeList.Dequeue()
	if !ok {
		i.stats.DropExhausted.Add(1)
		return Buffer{}, api.ErrBufferExhausted
	}
	// Recheck after acquiring a buffer in case Stop() raced us.
	if !i.running.Load() {
		i.freeList.Enqueue(fb)
		return Buffer{}, api.ErrTransportDown
	}
	fb.dst = dst
	fb.src = i.selfMAC
	fb.n = ethernet.HeaderSize + size
	copy(fb.raw[0:api.MACSize], dst[:])
	copy(fb.raw[api.MACSize:2*api.MACSize], i.selfMAC[:])
	binary.BigEndian.PutUint16(fb.raw[2*api.MACSize:ethernet.HeaderSize], protocol)
	return Buffer{fb: fb, ifc: i}, nil
}

func (i *Interface) reclaim(fb *frameBuf) {
	fb.n = 0
	i.freeList.Enqueue(fb)
}

// Send routes buf via LocalEngine if its destination is this host's own
// address, otherwise via LinkEngine. On success the Interface reclaims
// the buffer; on failure it remains the caller's to free.
func (i *Interface) Send(buf Buffer) (int, error) {
	if !buf.Valid() {
		return 0, api.ErrInvalidArgument
	}
	if buf.DstMAC() == i.selfMAC {
		if i.local == nil {
			return 0, api.ErrTransportDown
		}
		protoNum := binary.BigEndian.Uint16(buf.fb.raw[2*api.MACSize : ethernet.HeaderSize])
		payload := buf.Payload()
		n := len(payload)
		if err := i.local.Send(uint32(protoNum), payload); err != nil {
			return 0, err
		}
		i.stats.SentInternal.Add(1)
		buf.Free()
		return n, nil
	}
	if i.link == nil {
		return 0, api.ErrTransportDown
	}
	frame := buf.EthernetFrame()
	n := len(frame)
	if err := i.link.Send(frame); err != nil {
		return 0, err
	}
	i.stats.SentExternal.Add(1)
	buf.Free()
	return n, nil
}

// Start launches the event-loop goroutine.
func (i *Interface) Start() error {
	if !i.running.CompareAndSwap(false, true) {
		return nil
	}
	if i.link != nil {
		if err := i.rx.Register(i.link.FD(), reactor.EventRead, tagLink); err != nil {
			i.running.Store(false)
			return fmt.Errorf("ifc: register link fd: %w", err)
		}
	}
	if i.local != nil {
		if err := i.rx.Register(i.local.FD(), reactor.EventRead, tagLocal); err != nil {
			i.running.Store(false)
			return fmt.Errorf("ifc: register local fd: %w", err)
		}
	}
	i.wg.Add(1)
	go i.loop()
	return nil
}

// Stop halts the event loop and closes both engines. Safe to call more
// than once.
func (i *Interface) Stop() error {
	if !i.running.CompareAndSwap(true, false) {
		return nil
	}
	i.wg.Wait()
	var firstErr error
	if err := i.rx.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if i.link != nil {
		if err := i.link.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if i.local != nil {
		if err := i.local.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	i.releasePool()
	return firstErr
}

func (i *Interface) loop() {
	defer i.wg.Done()
	if i.pinCPU >= 0 {
		concurrency.PinCurrentThread(i.numaNode, i.pinCPU)
	}
	var events []reactor.Event
	for i.running.Load() {
		var err error
		events, err = i.rx.Wait(events[:0], pollTimeoutMs)
		if err != nil {
			xlog.Warn("ifc: reactor wait: %v", err)
			continue
		}
		for _, ev := range events {
			switch ev.UserData {
			case tagLink:
				i.drainLink()
			case tagLocal:
				i.drainLocal()
			}
		}
	}
}

// drainLink reads frames off the LinkEngine until none remain, dropping
// self-looped frames and anything not addressed to this host or the
// broadcast address, before handing each remaining frame up to the
// Protocol layer.
func (i *Interface) drainLink() {
	var scratch [ethernet.HeaderSize + ethernet.MTU]byte
	for {
		n, err := i.link.Recv(scratch[:])
		if err != nil {
			xlog.Warn("ifc: link recv: %v", err)
			return
		}
		if n == 0 {
			return
		}
		if n < ethernet.HeaderSize {
			i.stats.DropShort.Add(1)
			continue
		}
		frame, err := ethernet.Decode(scratch[:n])
		if err != nil {
			i.stats.DropShort.Add(1)
			continue
		}
		if frame.Src == i.selfMAC {
			i.stats.DropSelfLoop.Add(1)
			continue
		}
		if frame.Dst != i.selfMAC && frame.Dst != api.BroadcastMAC {
			i.stats.DropForeign.Add(1)
			continue
		}
		fb, ok := i.freeList.Dequeue()
		if !ok {
			i.stats.DropExhausted.Add(1)
			continue
		}
		fb.dst = frame.Dst
		fb.src = frame.Src
		fb.n = n
		copy(fb.raw[:n], scratch[:n])
		i.stats.RecvExternal.Add(1)
		buf := Buffer{fb: fb, ifc: i}
		if i.observers.Notify(frame.EthType, buf) == 0 {
			i.stats.DropNoObserver.Add(1)
			buf.Free()
		}
	}
}

// drainLocal drains the LocalEngine's ring until empty, synthesizing a
// self-to-self frame for each payload.
func (i *Interface) drainLocal() {
	i.local.AckReady()
	var scratch [ethernet.MTU]byte
	for {
		proto, n, ok, err := i.local.Recv(scratch[:])
		if err != nil {
			xlog.Warn("ifc: local recv: %v", err)
			return
		}
		if !ok {
			return
		}
		fb, okFree := i.freeList.Dequeue()
		if !okFree {
			i.stats.DropExhausted.Add(1)
			continue
		}
		fb.dst = i.selfMAC
		fb.src = i.selfMAC
		copy(fb.raw[ethernet.HeaderSize:ethernet.HeaderSize+n], scratch[:n])
		fb.n = ethernet.HeaderSize + n
		i.stats.RecvInternal.Add(1)
		buf := Buffer{fb: fb, ifc: i}
		if i.observers.Notify(uint16(proto), buf) == 0 {
			i.stats.DropNoObserver.Add(1)
			buf.Free()
		}
	}
}

var _ api.GracefulStop = (*Interface)(nil)
