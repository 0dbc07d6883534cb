// Package persistencetest holds the behavioural suite shared by every
// TabularStore backend.
package persistencetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/example/reservation-desk/internal/persistence"
)

// Store is what a backend must offer to run the suite.
type Store interface {
	persistence.TabularStore
	persistence.Provisioner
}

// Opener returns a fresh, unprovisioned store for a single subtest.
type Opener func(t *testing.T) Store

// Run exercises the TabularStore contract against the backend produced by open.
func Run(t *testing.T, open Opener) {
	t.Helper()

	t.Run("provisioned empty table lists no rows", func(t *testing.T) {
		ctx := context.Background()
		store := provisioned(t, open)

		rows, err := store.ListRows(ctx, persistence.TableReservations)
		if err != nil {
			t.Fatalf("expected empty table to list cleanly, got %v", err)
		}
		if rows == nil || len(rows) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", rows)
		}
	})

	t.Run("unknown table is distinct from unknown row", func(t *testing.T) {
		ctx := context.Background()
		store := provisioned(t, open)

		if _, err := store.ListRows(ctx, persistence.Table("ghosts")); !errors.Is(err, persistence.ErrTableNotFound) {
			t.Fatalf("expected ErrTableNotFound, got %v", err)
		}
		if err := store.DeleteRow(ctx, persistence.TableResources, "RES-missing"); !errors.Is(err, persistence.ErrRowNotFound) {
			t.Fatalf("expected ErrRowNotFound, got %v", err)
		}
		if err := store.UpdateRow(ctx, persistence.TableResources, "RES-missing", persistence.Row{"name": "x"}); !errors.Is(err, persistence.ErrRowNotFound) {
			t.Fatalf("expected ErrRowNotFound on update, got %v", err)
		}
	})

	t.Run("unprovisioned store reports missing tables", func(t *testing.T) {
		store := open(t)
		if _, err := store.ListRows(context.Background(), persistence.TableResources); !errors.Is(err, persistence.ErrTableNotFound) {
			t.Fatalf("expected ErrTableNotFound before provisioning, got %v", err)
		}
	})

	t.Run("append generates ids and preserves insertion order", func(t *testing.T) {
		ctx := context.Background()
		store := provisioned(t, open)

		var ids []string
		for i := 0; i < 3; i++ {
			id, err := store.AppendRow(ctx, persistence.TableResources, persistence.Row{
				"id":   "ignored",
				"name": fmt.Sprintf("Room %d", i),
			})
			if err != nil {
				t.Fatalf("append %d failed: %v", i, err)
			}
			if id == "" || id == "ignored" {
				t.Fatalf("expected generated id, got %q", id)
			}
			ids = append(ids, id)
		}

		rows, err := store.ListRows(ctx, persistence.TableResources)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(rows))
		}
		for i, row := range rows {
			if row[persistence.ColumnID] != ids[i] {
				t.Fatalf("row %d: expected id %s, got %s", i, ids[i], row[persistence.ColumnID])
			}
			if row["name"] != fmt.Sprintf("Room %d", i) {
				t.Fatalf("row %d: unexpected name %q", i, row["name"])
			}
			if _, ok := row["description"]; !ok {
				t.Fatalf("row %d: expected every schema column to be present", i)
			}
		}
	})

	t.Run("update patches named columns only", func(t *testing.T) {
		ctx := context.Background()
		store := provisioned(t, open)

		id, err := store.AppendRow(ctx, persistence.TableReservations, persistence.Row{
			"resource_name": "Room A",
			"status":        "Confirmed",
			"owner_email":   "owner@example.com",
		})
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}

		if err := store.UpdateRow(ctx, persistence.TableReservations, id, persistence.Row{"status": "Cancelled"}); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		rows, err := store.ListRows(ctx, persistence.TableReservations)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}
		if rows[0]["status"] != "Cancelled" || rows[0]["owner_email"] != "owner@example.com" {
			t.Fatalf("unexpected row after update: %#v", rows[0])
		}
	})

	t.Run("rejects unknown and immutable columns", func(t *testing.T) {
		ctx := context.Background()
		store := provisioned(t, open)

		if _, err := store.AppendRow(ctx, persistence.TableResources, persistence.Row{"colour": "red"}); !errors.Is(err, persistence.ErrUnknownColumn) {
			t.Fatalf("expected ErrUnknownColumn, got %v", err)
		}

		id, err := store.AppendRow(ctx, persistence.TableResources, persistence.Row{"name": "Room A"})
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}
		if err := store.UpdateRow(ctx, persistence.TableResources, id, persistence.Row{"id": "other"}); !errors.Is(err, persistence.ErrImmutableColumn) {
			t.Fatalf("expected ErrImmutableColumn, got %v", err)
		}
	})

	t.Run("delete removes exactly one row", func(t *testing.T) {
		ctx := context.Background()
		store := provisioned(t, open)

		keep, _ := store.AppendRow(ctx, persistence.TableMembers, persistence.Row{"name": "Ana"})
		drop, _ := store.AppendRow(ctx, persistence.TableMembers, persistence.Row{"name": "Ben"})

		if err := store.DeleteRow(ctx, persistence.TableMembers, drop); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := store.DeleteRow(ctx, persistence.TableMembers, drop); !errors.Is(err, persistence.ErrRowNotFound) {
			t.Fatalf("expected second delete to report ErrRowNotFound, got %v", err)
		}

		rows, _ := store.ListRows(ctx, persistence.TableMembers)
		if len(rows) != 1 || rows[0][persistence.ColumnID] != keep {
			t.Fatalf("unexpected rows after delete: %#v", rows)
		}
	})

	t.Run("delete where removes matching rows", func(t *testing.T) {
		ctx := context.Background()
		store := provisioned(t, open)

		for _, resource := range []string{"Room A", "Room B", "Room A"} {
			if _, err := store.AppendRow(ctx, persistence.TableReservations, persistence.Row{"resource_name": resource}); err != nil {
				t.Fatalf("append failed: %v", err)
			}
		}

		removed, err := persistence.DeleteWhere(ctx, store, persistence.TableReservations, "resource_name", "Room A")
		if err != nil {
			t.Fatalf("delete where failed: %v", err)
		}
		if removed != 2 {
			t.Fatalf("expected 2 rows removed, got %d", removed)
		}

		rows, _ := store.ListRows(ctx, persistence.TableReservations)
		if len(rows) != 1 || rows[0]["resource_name"] != "Room B" {
			t.Fatalf("unexpected rows after delete where: %#v", rows)
		}
	})

	t.Run("provisioning is idempotent and repairs columns", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)

		narrow := persistence.Schema{Table: persistence.TableMembers, IDPrefix: "MEM", Columns: []string{"name"}}
		if err := store.Provision(ctx, narrow); err != nil {
			t.Fatalf("initial provision failed: %v", err)
		}
		id, err := store.AppendRow(ctx, persistence.TableMembers, persistence.Row{"name": "Ana"})
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}

		if err := store.Provision(ctx, persistence.MembersSchema); err != nil {
			t.Fatalf("repair provision failed: %v", err)
		}
		if err := store.Provision(ctx, persistence.MembersSchema); err != nil {
			t.Fatalf("repeat provision failed: %v", err)
		}

		if err := store.UpdateRow(ctx, persistence.TableMembers, id, persistence.Row{"email": "ana@example.com"}); err != nil {
			t.Fatalf("expected repaired column to accept writes, got %v", err)
		}
		rows, _ := store.ListRows(ctx, persistence.TableMembers)
		if len(rows) != 1 || rows[0]["name"] != "Ana" || rows[0]["email"] != "ana@example.com" {
			t.Fatalf("unexpected rows after repair: %#v", rows)
		}
	})

	t.Run("concurrent appends yield unique ids", func(t *testing.T) {
		ctx := context.Background()
		store := provisioned(t, open)

		const writers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			seen = make(map[string]struct{})
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id, err := store.AppendRow(ctx, persistence.TableReservations, persistence.Row{"title": fmt.Sprintf("t%d", i)})
				if err != nil {
					t.Errorf("append %d failed: %v", i, err)
					return
				}
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		if len(seen) != writers {
			t.Fatalf("expected %d unique ids, got %d", writers, len(seen))
		}
	})
}

func provisioned(t *testing.T, open Opener) Store {
	t.Helper()
	store := open(t)
	if err := store.Provision(context.Background(), persistence.DefaultSchemas()...); err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	return store
}
