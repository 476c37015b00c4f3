package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func testLimiter(start time.Time) (*Limiter, *time.Time) {
	now := start
	l := New()
	l.clock = func() time.Time { return now }
	return l, &now
}

func TestAllowWithinWindow(t *testing.T) {
	l, _ := testLimiter(time.Now())

	for i := 0; i < 3; i++ {
		if !l.Allow("api", 3, time.Second) {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	if l.Allow("api", 3, time.Second) {
		t.Error("fourth call within window should be denied")
	}
}

func TestWindowResets(t *testing.T) {
	l, now := testLimiter(time.Now())

	for i := 0; i < 3; i++ {
		l.Allow("api", 3, time.Second)
	}
	if l.Allow("api", 3, time.Second) {
		t.Fatal("window should be exhausted")
	}

	*now = now.Add(1100 * time.Millisecond)
	if !l.Allow("api", 3, time.Second) {
		t.Error("call after window elapsed should be allowed")
	}
}

func TestDenialHasNoSideEffects(t *testing.T) {
	l, now := testLimiter(time.Now())

	l.Allow("api", 1, time.Second)
	for i := 0; i < 5; i++ {
		l.Allow("api", 1, time.Second)
	}

	// Denials must not have extended or restarted the window.
	*now = now.Add(1100 * time.Millisecond)
	if !l.Allow("api", 1, time.Second) {
		t.Error("denials should not reset the window")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := testLimiter(time.Now())

	l.Allow("a", 1, time.Second)
	if l.Allow("a", 1, time.Second) {
		t.Fatal("key a should be exhausted")
	}
	if !l.Allow("b", 1, time.Second) {
		t.Error("key b should have its own window")
	}
}

func TestRemaining(t *testing.T) {
	l, _ := testLimiter(time.Now())

	if got := l.Remaining("api", 3); got != 3 {
		t.Errorf("expected 3 remaining before any call, got %d", got)
	}
	l.Allow("api", 3, time.Second)
	if got := l.Remaining("api", 3); got != 2 {
		t.Errorf("expected 2 remaining, got %d", got)
	}
}

func TestConcurrentAllow(t *testing.T) {
	l := New()

	const workers = 50
	var wg sync.WaitGroup
	granted := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted <- l.Allow("api", 10, time.Minute)
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for ok := range granted {
		if ok {
			count++
		}
	}
	if count != 10 {
		t.Errorf("expected exactly 10 grants under contention, got %d", count)
	}
}
