package guard

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestTryAcquireIsExclusivePerJob(t *testing.T) {
	g := NewSingleFlight()
	if g.Held("voucher_reconcile") {
		t.Fatalf("unused job must not be held")
	}

	release, ok := g.TryAcquire("voucher_reconcile")
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if _, ok := g.TryAcquire("voucher_reconcile"); ok {
		t.Fatalf("expected second acquire to fail while held")
	}
	if _, ok := g.TryAcquire("subscriber_isolate"); !ok {
		t.Fatalf("other jobs must not be blocked")
	}

	release()
	release()
	if g.Held("voucher_reconcile") {
		t.Fatalf("expected flag to be cleared")
	}
	if _, ok := g.TryAcquire("voucher_reconcile"); !ok {
		t.Fatalf("expected acquire after release to succeed")
	}
}

func TestTryAcquireConcurrent(t *testing.T) {
	g := NewSingleFlight()
	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := g.TryAcquire("reminder_dispatch"); ok {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := winners.Load(); got != 1 {
		t.Fatalf("expected exactly one winner, got %d", got)
	}
}
