package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// hammer drives producers+consumers goroutines through enqueue/dequeue
// and checks that the sum of everything sent equals the sum of
// everything received, i.e. nothing was lost or duplicated under
// contention.
func hammer(t *testing.T, enqueue func(int) bool, dequeue func() (int, bool)) {
	t.Helper()
	const (
		producers        = 10
		consumers        = 10
		itemsPerProducer = 10000
	)

	var producerWg sync.WaitGroup
	var sentSum, receivedSum, receivedCount int64
	totalItems := int64(producers * itemsPerProducer)

	for p := 0; p < producers; p++ {
		producerWg.Add(1)
		go func(pid int) {
			defer producerWg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				val := pid*itemsPerProducer + i + 1
				for !enqueue(val) {
					runtime.Gosched()
				}
				atomic.AddInt64(&sentSum, int64(val))
			}
		}(p)
	}

	var consumerWg sync.WaitGroup
	for c := 0; c < consumers; c++ {
		consumerWg.Add(1)
		go func() {
			defer consumerWg.Done()
			for {
				if val, ok := dequeue(); ok {
					atomic.AddInt64(&receivedSum, int64(val))
					if atomic.AddInt64(&receivedCount, 1) == totalItems {
						return
					}
				} else {
					if atomic.LoadInt64(&receivedCount) >= totalItems {
						return
					}
					runtime.Gosched()
				}
			}
		}()
	}

	producerWg.Wait()

	done := make(chan struct{})
	go func() {
		consumerWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		if sentSum != receivedSum {
			t.Errorf("checksum mismatch: sent %d, received %d", sentSum, receivedSum)
		}
	case <-time.After(5 * time.Second):
		t.Errorf("timed out: received %d/%d items", atomic.LoadInt64(&receivedCount), totalItems)
	}
}

func TestLockFreeQueueMPMC(t *testing.T) {
	q := NewLockFreeQueue[int](1024)
	hammer(t, q.Enqueue, q.Dequeue)
}

func TestRingBufferMPMC(t *testing.T) {
	r := NewRingBuffer[int](1024)
	hammer(t, r.Enqueue, r.Dequeue)
}

func TestRingBufferRoundsCapacityToPowerOfTwo(t *testing.T) {
	r := NewRingBuffer[int](100)
	if r.Cap() != 128 {
		t.Fatalf("Cap() = %d, want 128", r.Cap())
	}
	for i := 0; i < 128; i++ {
		if !r.Enqueue(i) {
			t.Fatalf("Enqueue %d failed below capacity", i)
		}
	}
	if r.Enqueue(999) {
		t.Fatal("Enqueue succeeded on a full ring")
	}
	if r.Len() != 128 {
		t.Fatalf("Len() = %d, want 128", r.Len())
	}
}

func TestExecutorRunsSubmittedTasks(t *testing.T) {
	e := NewExecutor(2, -1)
	defer e.Close()

	var ran atomic.Int64
	for i := 0; i < 50; i++ {
		if err := e.Submit(func() { ran.Add(1) }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for ran.Load() < 50 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if ran.Load() != 50 {
		t.Fatalf("ran %d tasks, want 50", ran.Load())
	}
}

func TestExecutorSubmitAfterClose(t *testing.T) {
	e := NewExecutor(1, -1)
	e.Close()
	if err := e.Submit(func() {}); err != ErrExecutorClosed {
		t.Fatalf("Submit after Close: got %v, want ErrExecutorClosed", err)
	}
}
