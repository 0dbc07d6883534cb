package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator produces deterministic identifiers for tests. It satisfies
// persistence.IDGenerator; one counter is shared by every table so ids also
// reveal global insertion order.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

// NewIDGenerator constructs a generator. A non-empty prefix replaces the
// table prefix passed to NewID.
func NewIDGenerator(prefix string) *IDGenerator {
	return &IDGenerator{prefix: prefix}
}

// NewID returns the next identifier, using tablePrefix unless the generator
// carries its own prefix. "id" is used when both are empty.
func (g *IDGenerator) NewID(tablePrefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	prefix := g.prefix
	if prefix == "" {
		prefix = tablePrefix
	}
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s-%d", prefix, g.counter)
}

// Next returns the next identifier without a table prefix.
func (g *IDGenerator) Next() string {
	return g.NewID("")
}

// SetPrefix updates the generator prefix.
func (g *IDGenerator) SetPrefix(prefix string) {
	g.mu.Lock()
	g.prefix = prefix
	g.mu.Unlock()
}

// SetCounter overrides the internal counter, enabling deterministic resets.
func (g *IDGenerator) SetCounter(counter uint64) {
	g.mu.Lock()
	g.counter = counter
	g.mu.Unlock()
}
