// Package cache holds the bilingual reply cache backing the translation
// toggle. Each outgoing answer is stored under its transport message id with
// both language variants and which one is currently displayed.
package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var (
	// ErrNotFound means the message id was never cached or has been evicted
	ErrNotFound = errors.New("cached reply not found")
	// ErrEmptyVariant rejects a store with a missing language variant
	ErrEmptyVariant = errors.New("both language variants must be non-empty")
)

// Side names which of the two stored texts is displayed
type Side int

const (
	// SidePrimary is the language answers are generated in
	SidePrimary Side = iota
	// SideSecondary is the translated language
	SideSecondary
)

func (s Side) String() string {
	if s == SideSecondary {
		return "secondary"
	}
	return "primary"
}

type entry struct {
	mu        sync.Mutex
	primary   string
	secondary string
	showing   Side
}

// ReplyCache is a bounded LRU of bilingual replies. Entries expire after the
// TTL; a toggle against an evicted id reports ErrNotFound rather than failing
// the caller. Toggles on the same id are linearized by a per-entry lock.
type ReplyCache struct {
	lru *expirable.LRU[string, *entry]
}

// New creates a cache bounded to maxEntries with the given TTL. A ttl of zero
// disables expiry and leaves only the size bound.
func New(maxEntries int, ttl time.Duration) *ReplyCache {
	return &ReplyCache{
		lru: expirable.NewLRU[string, *entry](maxEntries, nil, ttl),
	}
}

// Store inserts both variants under the message id. Duplicate ids are
// overwritten whole (last write wins), never merged.
func (c *ReplyCache) Store(messageID, primary, secondary string, showing Side) error {
	if primary == "" || secondary == "" {
		return ErrEmptyVariant
	}
	c.lru.Add(messageID, &entry{
		primary:   primary,
		secondary: secondary,
		showing:   showing,
	})
	return nil
}

// Toggle flips the displayed side for the message and returns the text that
// should now be shown.
func (c *ReplyCache) Toggle(messageID string) (string, Side, error) {
	e, ok := c.lru.Get(messageID)
	if !ok {
		return "", SidePrimary, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.showing == SidePrimary {
		e.showing = SideSecondary
		return e.secondary, SideSecondary, nil
	}
	e.showing = SidePrimary
	return e.primary, SidePrimary, nil
}

// Showing reports the displayed side without flipping it
func (c *ReplyCache) Showing(messageID string) (Side, error) {
	e, ok := c.lru.Peek(messageID)
	if !ok {
		return SidePrimary, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.showing, nil
}

// Len returns the number of cached replies
func (c *ReplyCache) Len() int {
	return c.lru.Len()
}
