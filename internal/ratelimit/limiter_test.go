package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests advance time manually
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(limit int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	l := New(limit, window)
	l.now = clock.Now
	return l, clock
}

func TestAdmitUnderLimit(t *testing.T) {
	l, _ := newTestLimiter(5, time.Minute)
	for i := 0; i < 5; i++ {
		if !l.Admit("user1") {
			t.Fatalf("Admission %d should succeed", i+1)
		}
	}
}

func TestRejectAtLimit(t *testing.T) {
	l, _ := newTestLimiter(5, time.Minute)
	for i := 0; i < 5; i++ {
		l.Admit("user1")
	}
	if l.Admit("user1") {
		t.Error("6th admission within the window should be rejected")
	}
}

func TestRejectionDoesNotMutate(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)
	l.Admit("user1")
	l.Admit("user1")
	// Repeated rejections must not extend the window
	for i := 0; i < 10; i++ {
		if l.Admit("user1") {
			t.Fatal("Expected rejection")
		}
	}
	clock.Advance(61 * time.Second)
	if !l.Admit("user1") {
		t.Error("Window should have fully expired despite rejected attempts")
	}
}

func TestWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)
	l.Admit("user1")
	clock.Advance(30 * time.Second)
	l.Admit("user1")
	if l.Admit("user1") {
		t.Fatal("Expected rejection at limit")
	}
	clock.Advance(31 * time.Second)
	// First stamp has aged out, one slot free
	if !l.Admit("user1") {
		t.Error("Expected admission after oldest stamp expired")
	}
	if l.Admit("user1") {
		t.Error("Expected rejection, window holds two stamps again")
	}
}

func TestEmptyUserRejected(t *testing.T) {
	l, _ := newTestLimiter(5, time.Minute)
	if l.Admit("") {
		t.Error("Empty user id must be rejected")
	}
}

func TestUsersIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	if !l.Admit("a") {
		t.Fatal("user a should be admitted")
	}
	if !l.Admit("b") {
		t.Error("user b should not be affected by user a's window")
	}
}

// TestNeverExceedsLimit walks a randomized-ish schedule and checks the
// invariant: no more than limit admissions within any trailing window.
func TestNeverExceedsLimit(t *testing.T) {
	const limit = 5
	window := time.Minute
	l, clock := newTestLimiter(limit, window)

	var admitted []time.Time
	steps := []time.Duration{0, time.Second, 7 * time.Second, 13 * time.Second, 100 * time.Millisecond, 29 * time.Second, time.Second, 3 * time.Second}
	for round := 0; round < 40; round++ {
		clock.Advance(steps[round%len(steps)])
		if l.Admit("user1") {
			admitted = append(admitted, clock.Now())
		}
	}

	for i, ts := range admitted {
		count := 0
		for _, other := range admitted[:i+1] {
			if other.After(ts.Add(-window)) {
				count++
			}
		}
		if count > limit {
			t.Fatalf("%d admissions within one window ending at %v", count, ts)
		}
	}
}

func TestSweep(t *testing.T) {
	l, clock := newTestLimiter(5, time.Minute)
	for i := 0; i < 20; i++ {
		l.Admit(fmt.Sprintf("user%d", i))
	}
	clock.Advance(2 * time.Minute)
	if removed := l.Sweep(); removed != 20 {
		t.Errorf("Expected 20 swept windows, got %d", removed)
	}
}

func TestConcurrentAdmit(t *testing.T) {
	l := New(50, time.Minute)
	var wg sync.WaitGroup
	admitted := make([]int, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if l.Admit("shared") {
					admitted[g]++
				}
			}
		}(g)
	}
	wg.Wait()
	total := 0
	for _, n := range admitted {
		total += n
	}
	if total != 50 {
		t.Errorf("Expected exactly 50 admissions across goroutines, got %d", total)
	}
}
