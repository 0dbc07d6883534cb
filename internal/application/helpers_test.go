package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/reservation-desk/internal/access"
	"github.com/example/reservation-desk/internal/idgen"
	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/persistence/memory"
)

const (
	adminEmail = "admin@example.com"
	aliceEmail = "alice@example.com"
	bobEmail   = "bob@example.com"
)

var fixedNow = time.Date(2024, time.May, 6, 8, 0, 0, 0, time.UTC)

func nowFunc() time.Time { return fixedNow }

func testGate() *access.Gate {
	return access.NewGate([]string{adminEmail})
}

func newTestStore(t *testing.T) *memory.Storage {
	t.Helper()
	store := memory.Open(idgen.NewSequence())
	if err := store.Provision(context.Background(), persistence.DefaultSchemas()...); err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	return store
}

func seedResource(t *testing.T, store persistence.TabularStore, name string, kind ResourceKind) string {
	t.Helper()
	id, err := store.AppendRow(context.Background(), persistence.TableResources, resourceToRow(Resource{
		Name:      name,
		Kind:      kind,
		CreatedAt: fixedNow,
	}))
	if err != nil {
		t.Fatalf("seed resource failed: %v", err)
	}
	return id
}

func seedSlot(t *testing.T, store persistence.TabularStore, resource, date, start, end, owner string, status Status) string {
	t.Helper()
	id, err := store.AppendRow(context.Background(), persistence.TableReservations, reservationToRow(Reservation{
		Kind:         KindSlot,
		ResourceName: resource,
		OwnerEmail:   owner,
		OwnerName:    owner,
		Status:       status,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
	}))
	if err != nil {
		t.Fatalf("seed slot failed: %v", err)
	}
	return id
}

func seedTask(t *testing.T, store persistence.TabularStore, project, title string, status Status) string {
	t.Helper()
	id, err := store.AppendRow(context.Background(), persistence.TableReservations, reservationToRow(Reservation{
		Kind:         KindTask,
		ResourceName: project,
		OwnerEmail:   aliceEmail,
		Status:       status,
		Title:        title,
		Priority:     defaultPriority,
	}))
	if err != nil {
		t.Fatalf("seed task failed: %v", err)
	}
	return id
}

func countRows(t *testing.T, store persistence.TabularStore, table persistence.Table) int {
	t.Helper()
	rows, err := store.ListRows(context.Background(), table)
	if err != nil {
		t.Fatalf("list %s failed: %v", table, err)
	}
	return len(rows)
}

var errStoreDown = errors.New("connection refused")

// brokenStore fails every call the way an unreachable backend would.
type brokenStore struct{}

func (brokenStore) ListRows(ctx context.Context, table persistence.Table) ([]persistence.Row, error) {
	return nil, errors.Join(persistence.ErrUnavailable, errStoreDown)
}

func (brokenStore) AppendRow(ctx context.Context, table persistence.Table, row persistence.Row) (string, error) {
	return "", errors.Join(persistence.ErrUnavailable, errStoreDown)
}

func (brokenStore) UpdateRow(ctx context.Context, table persistence.Table, id string, patch persistence.Row) error {
	return errors.Join(persistence.ErrUnavailable, errStoreDown)
}

func (brokenStore) DeleteRow(ctx context.Context, table persistence.Table, id string) error {
	return errors.Join(persistence.ErrUnavailable, errStoreDown)
}

func expectValidationField(t *testing.T, err error, field string) {
	t.Helper()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := vErr.FieldErrors[field]; !ok {
		t.Fatalf("expected field error for %q, got %v", field, vErr.FieldErrors)
	}
}
