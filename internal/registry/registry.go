// Package registry tracks the durable set of known user ids. The store is an
// external collaborator; the in-memory implementation serves tests and
// single-process deployments, the Redis one shared deployments.
package registry

import (
	"context"
	"sync"
)

// Registry is a durable append-only set of user identifiers
type Registry interface {
	// Register adds the user and reports whether it was previously unknown
	Register(ctx context.Context, userID string) (bool, error)

	// List returns all known user ids
	List(ctx context.Context) ([]string, error)

	// Health reports whether the backing store is reachable
	Health() error
}

// Memory is an in-process registry
type Memory struct {
	mu    sync.RWMutex
	users map[string]struct{}
}

// NewMemory creates an empty in-memory registry
func NewMemory() *Memory {
	return &Memory{users: make(map[string]struct{})}
}

func (m *Memory) Register(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; ok {
		return false, nil
	}
	m.users[userID] = struct{}{}
	return true, nil
}

func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]string, 0, len(m.users))
	for id := range m.users {
		users = append(users, id)
	}
	return users, nil
}

func (m *Memory) Health() error {
	return nil
}

var _ Registry = (*Memory)(nil)
