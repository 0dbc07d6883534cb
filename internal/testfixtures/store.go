package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/persistence/memory"
	"github.com/example/reservation-desk/internal/persistence/sqlite"
)

// ProvisionedStore is a store ready for the default tables.
type ProvisionedStore interface {
	persistence.TabularStore
	persistence.Provisioner
}

// NewMemoryStore returns a provisioned in-process store whose ids come from ids.
func NewMemoryStore(tb testing.TB, ids persistence.IDGenerator) *memory.Storage {
	tb.Helper()

	store := memory.Open(ids)
	provision(tb, store)
	tb.Cleanup(func() { _ = store.Close() })
	return store
}

// NewSQLiteStore returns a provisioned SQLite store backed by a temporary
// file. The file is removed with the test's temp dir.
func NewSQLiteStore(tb testing.TB, ids persistence.IDGenerator) *sqlite.Store {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "reservations.db")
	store, err := sqlite.Open(sqlite.TempFileTestConfig(path), ids)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })

	provision(tb, store)
	return store
}

func provision(tb testing.TB, store ProvisionedStore) {
	tb.Helper()
	if err := store.Provision(context.Background(), persistence.DefaultSchemas()...); err != nil {
		tb.Fatalf("failed to provision storage: %v", err)
	}
}
