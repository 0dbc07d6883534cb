package application

import (
	"testing"
	"time"
)

func TestResourceLocksSerializeSameResource(t *testing.T) {
	locks := NewResourceLocks()

	release := locks.lock("Room A")
	acquired := make(chan struct{})
	go func() {
		r := locks.lock("Room A")
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatalf("expected second lock to wait")
	case <-time.After(20 * time.Millisecond):
	}

	other := locks.lock("Room B")
	other()

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("expected second lock after release")
	}
}

func TestNilResourceLocksNeverBlock(t *testing.T) {
	var locks *ResourceLocks
	release := locks.lock("Room A")
	release()
	if locks.held() != 0 {
		t.Fatalf("expected nil table to hold nothing")
	}
}
