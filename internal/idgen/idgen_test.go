package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestUUIDNewID(t *testing.T) {
	t.Parallel()

	id := UUID{}.NewID("BKG")
	if !strings.HasPrefix(id, "BKG-") {
		t.Fatalf("expected BKG- prefix, got %q", id)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(id, "BKG-")); err != nil {
		t.Fatalf("expected uuid suffix, got %q: %v", id, err)
	}

	if bare := (UUID{}).NewID(""); strings.Contains(bare, "--") || len(bare) != 36 {
		t.Fatalf("expected bare uuid without prefix, got %q", bare)
	}
}

func TestUUIDNewIDIsUnique(t *testing.T) {
	t.Parallel()

	gen := UUID{}
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := gen.NewID("RES")
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d draws", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestSequenceCountsPerPrefix(t *testing.T) {
	t.Parallel()

	seq := NewSequence()
	if got := seq.NewID("BKG"); got != "BKG-1" {
		t.Fatalf("expected BKG-1, got %q", got)
	}
	if got := seq.NewID("RES"); got != "RES-1" {
		t.Fatalf("expected RES-1, got %q", got)
	}
	if got := seq.NewID("BKG"); got != "BKG-2" {
		t.Fatalf("expected BKG-2, got %q", got)
	}
	if got := seq.NewID(""); got != "id-1" {
		t.Fatalf("expected id-1 for empty prefix, got %q", got)
	}
}

func TestSequenceIsSafeForConcurrentUse(t *testing.T) {
	t.Parallel()

	var seq Sequence
	var wg sync.WaitGroup
	results := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- seq.NewID("MEM")
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]struct{})
	for id := range results {
		seen[id] = struct{}{}
	}
	if len(seen) != 50 {
		t.Fatalf("expected 50 unique ids, got %d", len(seen))
	}
}
