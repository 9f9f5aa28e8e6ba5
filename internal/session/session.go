package session

import (
	"errors"
	"hash/fnv"
	"sync"
	"time"
)

// ErrSubjectRequired is returned when a task is selected before any subject
var ErrSubjectRequired = errors.New("subject must be selected before a task")

// State is the position in the subject/task selection flow
type State int

const (
	StateNoSubject State = iota
	StateSubjectSelected
	StateTaskSelected
)

func (s State) String() string {
	switch s {
	case StateSubjectSelected:
		return "subject_selected"
	case StateTaskSelected:
		return "task_selected"
	default:
		return "no_subject"
	}
}

// Session represents a user's conversational state. Subject and PendingTask
// carry prompt context; PendingTask is only meaningful once Subject is set.
type Session struct {
	UserID      string
	Subject     string
	PendingTask string
	State       State
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const shardCount = 16

// Store holds sessions in a sharded map so unrelated users never contend on
// the same lock. All transitions are atomic per user.
type Store struct {
	now    func() time.Time
	shards [shardCount]*shard
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store
func NewStore() *Store {
	s := &Store{now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return s
}

// Get returns a snapshot of the user's session
func (s *Store) Get(userID string) (Session, bool) {
	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	sess, ok := sh.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Touch records activity for the user, creating the session on first contact
func (s *Store) Touch(userID string) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s.getOrCreate(sh, userID).UpdatedAt = s.now()
}

// SelectSubject sets the subject, clears any pending task and moves to
// SubjectSelected. Valid from any state.
func (s *Store) SelectSubject(userID, subject string) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess := s.getOrCreate(sh, userID)
	sess.Subject = subject
	sess.PendingTask = ""
	sess.State = StateSubjectSelected
	sess.UpdatedAt = s.now()
}

// SelectTask sets the pending task. Illegal from NoSubject: the session is
// left untouched and ErrSubjectRequired is returned.
func (s *Store) SelectTask(userID, task string) error {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess := s.getOrCreate(sh, userID)
	if sess.State == StateNoSubject {
		return ErrSubjectRequired
	}
	sess.PendingTask = task
	sess.State = StateTaskSelected
	sess.UpdatedAt = s.now()
	return nil
}

// ResetSubject returns the user to NoSubject from any state
func (s *Store) ResetSubject(userID string) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess := s.getOrCreate(sh, userID)
	sess.Subject = ""
	sess.PendingTask = ""
	sess.State = StateNoSubject
	sess.UpdatedAt = s.now()
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// Sweep removes sessions idle for longer than idleFor and returns the count
func (s *Store) Sweep(idleFor time.Duration) int {
	cutoff := s.now().Add(-idleFor)
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, sess := range sh.sessions {
			if sess.UpdatedAt.Before(cutoff) {
				delete(sh.sessions, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// getOrCreate must be called with the shard lock held
func (s *Store) getOrCreate(sh *shard, userID string) *Session {
	sess, ok := sh.sessions[userID]
	if !ok {
		now := s.now()
		sess = &Session{UserID: userID, State: StateNoSubject, CreatedAt: now, UpdatedAt: now}
		sh.sessions[userID] = sess
	}
	return sess
}

func (s *Store) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return s.shards[h.Sum32()%shardCount]
}
