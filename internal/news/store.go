package news

import (
	"context"
	"sync"
	"time"
)

// Store persists the news cache entry. There is exactly one entry: writes
// replace it wholesale, never merge. Implementations must honor the entry's
// generation counter — a Set carrying a generation older than the stored one
// is dropped so a slow stale fetch cannot clobber fresher data.
type Store interface {
	// Get returns the current entry, or false when nothing is stored or the
	// stored entry's TTL has lapsed.
	Get(ctx context.Context) (*Entry, bool)

	// Set replaces the entry with the given TTL. Returns false when the write
	// was rejected by the generation guard.
	Set(ctx context.Context, entry *Entry, ttl time.Duration) bool

	// Clear unconditionally removes the entry.
	Clear(ctx context.Context) error
}

// MemoryStore keeps the entry in process memory with expiration computed at
// write time.
type MemoryStore struct {
	mu         sync.RWMutex
	entry      *Entry
	expiration int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(ctx context.Context) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.entry == nil {
		return nil, false
	}
	if s.expiration > 0 && time.Now().UnixNano() > s.expiration {
		return nil, false
	}
	return s.entry, true
}

func (s *MemoryStore) Set(ctx context.Context, entry *Entry, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry != nil && entry.Generation < s.entry.Generation {
		return false
	}
	s.entry = entry
	s.expiration = time.Now().Add(ttl).UnixNano()
	return true
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = nil
	s.expiration = 0
	return nil
}
