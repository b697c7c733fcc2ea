package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      Session
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation for tests and development.
// It honours the same version-conditional write contract as the Redis store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[int64]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[int64]*memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the time source, letting tests force TTL expiry.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) live(userID int64) *memoryEntry {
	entry, ok := m.entries[userID]
	if !ok {
		return nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.entries, userID)
		return nil
	}
	return entry
}

// Get returns a copy of the stored session, or ErrNotFound when absent or expired.
func (m *MemoryStore) Get(_ context.Context, userID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.live(userID)
	if entry == nil {
		return nil, ErrNotFound
	}
	return entry.data.Clone(), nil
}

// PutIfVersion commits s when the stored version still matches expectedVersion.
func (m *MemoryStore) PutIfVersion(_ context.Context, s *Session, expectedVersion int64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.live(s.UserID)
	if entry == nil {
		if expectedVersion != 0 {
			return ErrVersionConflict
		}
	} else if entry.data.Version != expectedVersion {
		return ErrVersionConflict
	}

	m.entries[s.UserID] = &memoryEntry{
		data:      *s.Clone(),
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

// Delete removes the session for a user.
func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, userID)
	return nil
}
