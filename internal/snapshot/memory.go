package snapshot

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCapacity caps the number of entries an in-process store keeps.
const DefaultCapacity = 4096

// MemoryStore keeps snapshots in an expiring LRU inside the process.
type MemoryStore struct {
	entries  *expirable.LRU[string, Snapshot]
	pointers *expirable.LRU[string, string]
}

// NewMemoryStore returns a store whose entries expire after ttl. Non-positive
// arguments fall back to DefaultTTL and DefaultCapacity.
func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries:  expirable.NewLRU[string, Snapshot](capacity, nil, ttl),
		pointers: expirable.NewLRU[string, string](capacity, nil, ttl),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, owner string, snap Snapshot) error {
	snap.Values = snap.Values.Clone()
	key := snap.Key(owner)
	m.entries.Add(key, snap)
	m.pointers.Add(latestKey(owner), key)
	return nil
}

// Latest implements Store.
func (m *MemoryStore) Latest(ctx context.Context, owner string) (Snapshot, error) {
	key, ok := m.pointers.Get(latestKey(owner))
	if !ok {
		return Snapshot{}, ErrNoSnapshot
	}
	snap, ok := m.entries.Get(key)
	if !ok {
		return Snapshot{}, ErrNoSnapshot
	}
	snap.Values = snap.Values.Clone()
	return snap, nil
}

// Discard implements Store.
func (m *MemoryStore) Discard(ctx context.Context, owner string) error {
	pointer := latestKey(owner)
	if key, ok := m.pointers.Peek(pointer); ok {
		m.entries.Remove(key)
	}
	m.pointers.Remove(pointer)
	return nil
}
