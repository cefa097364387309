// Package state remembers which resolved tickets have already been
// dispatched, keyed by ticket key and resolution timestamp. A ticket that
// is reopened and resolved again gets a new key and is processed again.
package state

import (
	"context"
	"sync"
)

// Key identifies one resolution of one ticket.
type Key struct {
	Ticket     string
	ResolvedAt string
}

// Store is the processed-ticket set.
type Store interface {
	Seen(ctx context.Context, k Key) (bool, error)
	Mark(ctx context.Context, k Key) error
	Close() error
}

// MemoryStore keeps the set for the lifetime of the process.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[Key]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[Key]struct{})}
}

func (m *MemoryStore) Seen(_ context.Context, k Key) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[k]
	return ok, nil
}

func (m *MemoryStore) Mark(_ context.Context, k Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[k] = struct{}{}
	return nil
}

// Len returns the number of marked keys.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

func (m *MemoryStore) Close() error { return nil }

// Open returns a SQLite store at path, or a MemoryStore when path is empty.
func Open(path string) (Store, error) {
	if path == "" {
		return NewMemoryStore(), nil
	}
	return NewSQLiteStore(path)
}
