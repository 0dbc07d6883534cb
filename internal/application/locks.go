package application

import "sync"

// ResourceLocks serializes the check-then-append sequence of bookings per
// resource name. It only protects callers inside one process.
type ResourceLocks struct {
	mu    sync.Mutex
	locks map[string]*resourceLock
}

type resourceLock struct {
	mu   sync.Mutex
	refs int
}

// NewResourceLocks returns an empty lock table.
func NewResourceLocks() *ResourceLocks {
	return &ResourceLocks{locks: make(map[string]*resourceLock)}
}

// lock blocks until the named resource is free and returns its release func.
// A nil table never blocks.
func (l *ResourceLocks) lock(resource string) func() {
	if l == nil {
		return func() {}
	}

	l.mu.Lock()
	entry, ok := l.locks[resource]
	if !ok {
		entry = &resourceLock{}
		l.locks[resource] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, resource)
		}
		l.mu.Unlock()
	}
}

func (l *ResourceLocks) held() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
