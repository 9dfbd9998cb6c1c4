package observer

import (
	"testing"
)

type recordObserver struct {
	rank int
	got  []string
}

func (r *recordObserver) Update(_ int, v string)  { r.got = append(r.got, v) }
func (r *recordObserver) Updated() (string, bool) { return "", false }
func (r *recordObserver) Rank() int               { return r.rank }
func (r *recordObserver) Close()                  {}

func TestNotifyReachesOnlyMatchingRank(t *testing.T) {
	o := NewConditionallyObserved[string, int]()
	a := &recordObserver{rank: 1}
	b := &recordObserver{rank: 2}
	o.Attach(a, 1)
	o.Attach(b, 2)

	if n := o.Notify(1, "x"); n != 1 {
		t.Fatalf("Notify delivered to %d observers, want 1", n)
	}
	if len(a.got) != 1 || len(b.got) != 0 {
		t.Fatalf("a=%v b=%v", a.got, b.got)
	}
}

func TestDetachStopsDelivery(t *testing.T) {
	o := NewConditionallyObserved[string, int]()
	a := &recordObserver{rank: 1}
	o.Attach(a, 1)
	o.Detach(a, 1)
	if n := o.Notify(1, "x"); n != 0 {
		t.Fatalf("Notify after Detach delivered to %d observers", n)
	}
}

func TestNotifyBroadcastSuppressesSourceAndClonesAllButLast(t *testing.T) {
	o := NewConcurrentObserved[string, int]()
	source := &recordObserver{rank: 10}
	first := &recordObserver{rank: 20}
	second := &recordObserver{rank: 30}
	o.Attach(source, 1)
	o.Attach(first, 1)
	o.Attach(second, 1)

	clones := 0
	n := o.NotifyBroadcast(1, "orig", 10, func(s string) string {
		clones++
		return s + "-clone"
	})
	if n != 2 {
		t.Fatalf("delivered to %d observers, want 2", n)
	}
	if len(source.got) != 0 {
		t.Fatalf("source observer received its own broadcast: %v", source.got)
	}
	if clones != 1 {
		t.Fatalf("cloneFn invoked %d times, want 1 (original goes to exactly one recipient)", clones)
	}
	// The original must be handed out after every clone is cut.
	if got := first.got[0]; got != "orig-clone" {
		t.Fatalf("first recipient got %q, want the clone", got)
	}
	if got := second.got[0]; got != "orig" {
		t.Fatalf("last recipient got %q, want the original", got)
	}
}

func TestNotifyBroadcastSingleRecipientGetsOriginal(t *testing.T) {
	o := NewConcurrentObserved[string, int]()
	only := &recordObserver{rank: 5}
	o.Attach(only, 1)

	n := o.NotifyBroadcast(1, "orig", 9, func(s string) string {
		t.Fatal("cloneFn must not run for a single recipient")
		return s
	})
	if n != 1 || only.got[0] != "orig" {
		t.Fatalf("n=%d got=%v", n, only.got)
	}
}
