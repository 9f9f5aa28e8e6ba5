package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 16

// Limiter is a per-user sliding-window admission controller. Each user owns
// an ordered list of admission timestamps; timestamps older than the window
// are pruned lazily on the next Admit call for that user.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time
	shards [shardCount]*shard
}

type shard struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// New creates a limiter that admits at most limit requests per user within
// any trailing window.
func New(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for i := range l.shards {
		l.shards[i] = &shard{windows: make(map[string][]time.Time)}
	}
	return l
}

// Admit reports whether the user may proceed. On admission the current
// timestamp is appended; on rejection nothing is mutated beyond the prune.
func (l *Limiter) Admit(userID string) bool {
	if userID == "" {
		return false
	}

	s := l.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	stamps := s.windows[userID]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		s.windows[userID] = kept
		return false
	}

	s.windows[userID] = append(kept, now)
	return true
}

// Sweep drops users whose entire window has expired. Called periodically by
// the scheduler so idle users do not pin memory; Admit does not depend on it.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-l.window)
	removed := 0
	for _, s := range l.shards {
		s.mu.Lock()
		for user, stamps := range s.windows {
			live := false
			for _, ts := range stamps {
				if ts.After(cutoff) {
					live = true
					break
				}
			}
			if !live {
				delete(s.windows, user)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

func (l *Limiter) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return l.shards[h.Sum32()%shardCount]
}
