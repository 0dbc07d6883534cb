// Package idgen produces row identifiers for the tabular store.
package idgen

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// UUID yields "<prefix>-<uuid v4>" identifiers. The zero value is ready to use.
type UUID struct{}

// NewID returns a random identifier carrying the prefix.
func (UUID) NewID(prefix string) string {
	id := uuid.NewString()
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		return id
	}
	return prefix + "-" + id
}

// Sequence yields "<prefix>-<n>" identifiers with one counter per prefix.
type Sequence struct {
	mu       sync.Mutex
	counters map[string]uint64
}

// NewSequence returns an empty sequence.
func NewSequence() *Sequence {
	return &Sequence{counters: make(map[string]uint64)}
}

// NewID returns the next identifier for the prefix.
func (s *Sequence) NewID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counters == nil {
		s.counters = make(map[string]uint64)
	}
	if prefix == "" {
		prefix = "id"
	}
	s.counters[prefix]++
	return fmt.Sprintf("%s-%d", prefix, s.counters[prefix])
}
