package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/persistence/memory"
)

func TestAddResourceRequiresAdmin(t *testing.T) {
	store := newTestStore(t)
	svc := NewResourceService(store, testGate(), nowFunc)

	for _, caller := range []string{aliceEmail, ""} {
		if _, err := svc.AddResource(context.Background(), caller, ResourceInput{Name: "Room A"}); !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("expected ErrPermissionDenied for %q, got %v", caller, err)
		}
	}
	if got := countRows(t, store, persistence.TableResources); got != 0 {
		t.Fatalf("expected no resources, got %d", got)
	}
}

func TestAddResource(t *testing.T) {
	store := newTestStore(t)
	svc := NewResourceService(store, testGate(), nowFunc)
	ctx := context.Background()

	res, err := svc.AddResource(ctx, adminEmail, ResourceInput{Name: "  Room A ", Description: "Projector"})
	if err != nil {
		t.Fatalf("AddResource returned error: %v", err)
	}
	if res.ID != "RES-1" || res.Name != "Room A" || res.Kind != ResourceRoom {
		t.Fatalf("unexpected resource: %+v", res)
	}
	if !res.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected created at %v, got %v", fixedNow, res.CreatedAt)
	}

	if _, err := svc.AddResource(ctx, adminEmail, ResourceInput{Name: "Room A"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	project, err := svc.AddResource(ctx, adminEmail, ResourceInput{Name: "Apollo", Kind: ResourceProject})
	if err != nil {
		t.Fatalf("AddResource project returned error: %v", err)
	}
	if project.Kind != ResourceProject {
		t.Fatalf("expected project kind, got %s", project.Kind)
	}

	all, err := svc.ListResources(ctx)
	if err != nil {
		t.Fatalf("ListResources returned error: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Room A" || all[1].Name != "Apollo" {
		t.Fatalf("unexpected resources: %+v", all)
	}
}

func TestAddResourceValidation(t *testing.T) {
	svc := NewResourceService(newTestStore(t), testGate(), nowFunc)
	ctx := context.Background()

	_, err := svc.AddResource(ctx, adminEmail, ResourceInput{Name: "   "})
	expectValidationField(t, err, "name")

	_, err = svc.AddResource(ctx, adminEmail, ResourceInput{Name: "Desk", Kind: "desk"})
	expectValidationField(t, err, "kind")
}

func TestRemoveResourceCascades(t *testing.T) {
	store := newTestStore(t)
	seedResource(t, store, "Room A", ResourceRoom)
	seedResource(t, store, "Room B", ResourceRoom)
	seedSlot(t, store, "Room A", "2024-05-06", "09:00", "10:00", aliceEmail, StatusConfirmed)
	seedSlot(t, store, "Room A", "2024-05-07", "09:00", "10:00", bobEmail, StatusCancelled)
	seedSlot(t, store, "Room A", "2024-05-08", "09:00", "10:00", bobEmail, StatusConfirmed)
	other := seedSlot(t, store, "Room B", "2024-05-06", "09:00", "10:00", aliceEmail, StatusConfirmed)
	svc := NewResourceService(store, testGate(), nowFunc)
	ctx := context.Background()

	if _, err := svc.RemoveResource(ctx, aliceEmail, "Room A"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	removal, err := svc.RemoveResource(ctx, adminEmail, "Room A")
	if err != nil {
		t.Fatalf("RemoveResource returned error: %v", err)
	}
	if removal.CascadeCount != 3 {
		t.Fatalf("expected cascade count 3, got %d", removal.CascadeCount)
	}
	if removal.Resource.Name != "Room A" {
		t.Fatalf("expected removed resource Room A, got %q", removal.Resource.Name)
	}

	remaining, err := records{store: store}.reservations(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != other {
		t.Fatalf("expected only %s to remain, got %+v", other, remaining)
	}
	if got := countRows(t, store, persistence.TableResources); got != 1 {
		t.Fatalf("expected one resource left, got %d", got)
	}

	if _, err := svc.RemoveResource(ctx, adminEmail, "Room A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second removal, got %v", err)
	}
}

func TestRemoveProjectDropsTasksAndMembers(t *testing.T) {
	store := newTestStore(t)
	seedResource(t, store, "Apollo", ResourceProject)
	seedTask(t, store, "Apollo", "Write report", StatusToDo)
	svc := NewResourceService(store, testGate(), nowFunc)
	ctx := context.Background()

	if _, err := svc.AddMember(ctx, adminEmail, MemberInput{Project: "Apollo", Name: "Kim", Email: "kim@example.com"}); err != nil {
		t.Fatalf("AddMember returned error: %v", err)
	}

	removal, err := svc.RemoveResource(ctx, adminEmail, "Apollo")
	if err != nil {
		t.Fatalf("RemoveResource returned error: %v", err)
	}
	if removal.CascadeCount != 1 || removal.MembersRemoved != 1 {
		t.Fatalf("unexpected removal: %+v", removal)
	}
	if got := countRows(t, store, persistence.TableMembers); got != 0 {
		t.Fatalf("expected members to be removed, got %d", got)
	}
}

func TestAddMember(t *testing.T) {
	store := newTestStore(t)
	seedResource(t, store, "Apollo", ResourceProject)
	seedResource(t, store, "Room A", ResourceRoom)
	svc := NewResourceService(store, testGate(), nowFunc)
	ctx := context.Background()

	if _, err := svc.AddMember(ctx, aliceEmail, MemberInput{Project: "Apollo", Name: "Kim", Email: "kim@example.com"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	member, err := svc.AddMember(ctx, adminEmail, MemberInput{Project: "Apollo", Name: " Kim ", Email: "kim@example.com"})
	if err != nil {
		t.Fatalf("AddMember returned error: %v", err)
	}
	if member.ID != "MEM-1" || member.Name != "Kim" {
		t.Fatalf("unexpected member: %+v", member)
	}

	_, err = svc.AddMember(ctx, adminEmail, MemberInput{Project: "Room A", Name: "Kim", Email: "kim@example.com"})
	expectValidationField(t, err, "project")

	_, err = svc.AddMember(ctx, adminEmail, MemberInput{Project: "Apollo", Name: "Lee", Email: "lee"})
	expectValidationField(t, err, "email")

	members, err := svc.ListMembers(ctx, "Apollo")
	if err != nil {
		t.Fatalf("ListMembers returned error: %v", err)
	}
	if len(members) != 1 || members[0].Email != "kim@example.com" {
		t.Fatalf("unexpected members: %+v", members)
	}
}

func TestResourceServiceReportsBackendFailure(t *testing.T) {
	svc := NewResourceService(brokenStore{}, testGate(), nowFunc)

	if _, err := svc.ListResources(context.Background()); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if _, err := svc.AddResource(context.Background(), adminEmail, ResourceInput{Name: "Room A"}); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestSeedResourcesOnlyFillsEmptyCatalog(t *testing.T) {
	store := newTestStore(t)
	svc := NewResourceService(store, testGate(), nowFunc)
	ctx := context.Background()

	added, err := svc.SeedResources(ctx, DefaultRooms)
	if err != nil {
		t.Fatalf("SeedResources returned error: %v", err)
	}
	if added != len(DefaultRooms) {
		t.Fatalf("expected %d rooms, got %d", len(DefaultRooms), added)
	}

	added, err = svc.SeedResources(ctx, DefaultRooms)
	if err != nil || added != 0 {
		t.Fatalf("expected second seed to add nothing, got %d %v", added, err)
	}
	if got := countRows(t, store, persistence.TableResources); got != len(DefaultRooms) {
		t.Fatalf("expected %d resources, got %d", len(DefaultRooms), got)
	}
}

// slowListStore widens the gap between the name check and the append.
type slowListStore struct {
	*memory.Storage
}

func (s slowListStore) ListRows(ctx context.Context, table persistence.Table) ([]persistence.Row, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Storage.ListRows(ctx, table)
}

func TestConcurrentAddResourceKeepsNamesUnique(t *testing.T) {
	base := newTestStore(t)
	svc := NewResourceService(slowListStore{Storage: base}, testGate(), nowFunc)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddResource(ctx, adminEmail, ResourceInput{Name: "Room A", Kind: ResourceRoom})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		switch {
		case err == nil:
			created++
		case !errors.Is(err, ErrAlreadyExists):
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one creation, got %d", created)
	}
	if got := countRows(t, base, persistence.TableResources); got != 1 {
		t.Fatalf("expected one stored resource, got %d", got)
	}
}
