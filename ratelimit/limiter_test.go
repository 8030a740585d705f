package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock returns a limiter whose clock only moves when advanced.
func fakeClock(l *Limiter) func(time.Duration) {
	var (
		mu  sync.Mutex
		now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	)
	l.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	return func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
}

func TestAllow_Unlimited(t *testing.T) {
	l := New(0)
	for i := 0; i < 100; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatal("Allow should always return true when disabled")
		}
	}
	if l.Len() != 0 {
		t.Fatalf("expected no buckets, got %d", l.Len())
	}
}

func TestAllow_NilLimiter(t *testing.T) {
	var l *Limiter
	if !l.Allow("10.0.0.1") {
		t.Fatal("nil limiter should allow")
	}
}

func TestAllow_RateLimited(t *testing.T) {
	l := New(2)
	fakeClock(l)

	if !l.Allow("10.0.0.1") {
		t.Fatal("first call should be allowed")
	}
	if !l.Allow("10.0.0.1") {
		t.Fatal("second call should be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("third call should be denied")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("other clients have their own bucket")
	}
}

func TestAllow_Refills(t *testing.T) {
	l := New(10)
	advance := fakeClock(l)

	for i := 0; i < 10; i++ {
		l.Allow("10.0.0.1")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("should be denied after exhausting bucket")
	}

	advance(200 * time.Millisecond)

	if !l.Allow("10.0.0.1") {
		t.Fatal("should be allowed after refill")
	}
}

func TestPrune(t *testing.T) {
	l := New(5)
	advance := fakeClock(l)

	l.Allow("idle")
	l.Allow("busy")
	advance(2 * time.Second)
	for i := 0; i < 3; i++ {
		l.Allow("busy")
	}

	if n := l.Prune(); n != 1 {
		t.Fatalf("expected 1 pruned bucket, got %d", n)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 remaining bucket, got %d", l.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	l := New(1000)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				l.Allow("10.0.0.1")
			}
		}()
	}
	wg.Wait()
}
