package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestStoreThenToggle(t *testing.T) {
	c := New(16, 0)
	if err := c.Store("m1", "hello", "ሰላም", SideSecondary); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	text, side, err := c.Toggle("m1")
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if text != "hello" {
		t.Errorf("Expected the non-displayed variant, got %q", text)
	}
	if side != SidePrimary {
		t.Errorf("Expected primary side, got %v", side)
	}
}

func TestTogglePairIsIdentity(t *testing.T) {
	c := New(16, 0)
	c.Store("m1", "hello", "ሰላም", SideSecondary)

	c.Toggle("m1")
	text, side, err := c.Toggle("m1")
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if text != "ሰላም" || side != SideSecondary {
		t.Errorf("Two toggles should return to the original: got %q %v", text, side)
	}
}

func TestToggleUnknownID(t *testing.T) {
	c := New(16, 0)
	c.Store("m1", "a", "b", SideSecondary)

	_, _, err := c.Toggle("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	// Existing entry must be untouched
	side, err := c.Showing("m1")
	if err != nil || side != SideSecondary {
		t.Errorf("Unrelated entry mutated: side=%v err=%v", side, err)
	}
}

func TestStoreRejectsEmptyVariant(t *testing.T) {
	c := New(16, 0)
	if err := c.Store("m1", "", "b", SidePrimary); !errors.Is(err, ErrEmptyVariant) {
		t.Errorf("Expected ErrEmptyVariant, got %v", err)
	}
	if err := c.Store("m1", "a", "", SidePrimary); !errors.Is(err, ErrEmptyVariant) {
		t.Errorf("Expected ErrEmptyVariant, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Rejected store must not insert, len=%d", c.Len())
	}
}

func TestDuplicateStoreLastWriteWins(t *testing.T) {
	c := New(16, 0)
	c.Store("m1", "old-a", "old-b", SidePrimary)
	c.Store("m1", "new-a", "new-b", SideSecondary)

	text, _, err := c.Toggle("m1")
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if text != "new-a" {
		t.Errorf("Expected the overwritten entry, got %q", text)
	}
}

func TestSizeBound(t *testing.T) {
	c := New(8, 0)
	for i := 0; i < 100; i++ {
		c.Store(fmt.Sprintf("m%d", i), "a", "b", SidePrimary)
	}
	if c.Len() > 8 {
		t.Errorf("Cache exceeded its bound: %d", c.Len())
	}
	// Oldest ids are gone, toggling them reports NotFound
	if _, _, err := c.Toggle("m0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected eviction of m0, got %v", err)
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New(16, 50*time.Millisecond)
	c.Store("m1", "a", "b", SidePrimary)
	time.Sleep(80 * time.Millisecond)
	if _, _, err := c.Toggle("m1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected TTL eviction, got %v", err)
	}
}

func TestConcurrentTogglesLinearize(t *testing.T) {
	c := New(16, 0)
	c.Store("m1", "a", "b", SideSecondary)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Toggle("m1")
		}()
	}
	wg.Wait()

	// Even number of flips returns to the initial side
	side, err := c.Showing("m1")
	if err != nil {
		t.Fatalf("Showing failed: %v", err)
	}
	if side != SideSecondary {
		t.Errorf("Expected %d flips to land on secondary, got %v", n, side)
	}
}
