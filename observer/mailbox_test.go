package observer

import (
	"testing"
	"time"
)

func TestMailboxPushPop(t *testing.T) {
	m := NewMailbox[int]()
	m.Push(1)
	m.Push(2)
	if v, ok := m.Pop(); !ok || v != 1 {
		t.Fatalf("Pop = %d, %v; want 1, true", v, ok)
	}
	if v, ok := m.Pop(); !ok || v != 2 {
		t.Fatalf("Pop = %d, %v; want 2, true", v, ok)
	}
}

func TestMailboxBlocksUntilPush(t *testing.T) {
	m := NewMailbox[int]()
	done := make(chan struct{})
	go func() {
		v, ok := m.Pop()
		if !ok || v != 7 {
			t.Errorf("Pop = %d, %v; want 7, true", v, ok)
		}
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Pop returned before Push")
	case <-time.After(20 * time.Millisecond):
	}
	m.Push(7)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Pop never woke after Push")
	}
}

func TestMailboxCloseWakesBlockedPop(t *testing.T) {
	m := NewMailbox[int]()
	done := make(chan bool, 1)
	go func() {
		_, ok := m.Pop()
		done <- ok
	}()
	time.Sleep(20 * time.Millisecond)
	m.Close()
	select {
	case ok := <-done:
		if ok {
			t.Fatal("Pop reported ok after Close with no pending items")
		}
	case <-time.After(time.Second):
		t.Fatal("Close never woke blocked Pop")
	}
}

func TestMailboxDrainsBeforeClosedReturnsFalse(t *testing.T) {
	m := NewMailbox[int]()
	m.Push(1)
	m.Close()
	if v, ok := m.Pop(); !ok || v != 1 {
		t.Fatalf("Pop after Close = %d, %v; want 1, true (drain pending)", v, ok)
	}
	if _, ok := m.Pop(); ok {
		t.Fatal("Pop after drain should report false")
	}
}

func TestConcurrentMailboxPushPop(t *testing.T) {
	m := NewConcurrentMailbox[int]()
	var wg = make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			m.Push(i)
		}
		close(wg)
	}()
	<-wg
	seen := 0
	for seen < 100 {
		if _, ok := m.Pop(); ok {
			seen++
		}
	}
}

func TestConcurrentMailboxCloseWakesBlockedPop(t *testing.T) {
	m := NewConcurrentMailbox[int]()
	done := make(chan bool, 1)
	go func() {
		_, ok := m.Pop()
		done <- ok
	}()
	time.Sleep(20 * time.Millisecond)
	m.Close()
	select {
	case ok := <-done:
		if ok {
			t.Fatal("Pop reported ok after Close with no pending items")
		}
	case <-time.After(time.Second):
		t.Fatal("Close never woke blocked Pop")
	}
}
