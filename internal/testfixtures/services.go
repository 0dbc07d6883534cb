package testfixtures

import (
	"testing"
	"time"

	"github.com/example/reservation-desk/internal/access"
	"github.com/example/reservation-desk/internal/desk"
	"github.com/example/reservation-desk/internal/snapshot"
)

// AdminEmail is on the allow-list of every factory built gate.
const AdminEmail = "admin@example.com"

// DeskFactory assists tests with constructing a desk over a fresh in-memory
// store using deterministic identifiers and clocks.
type DeskFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Admins      []string
}

// DeskFactoryOption configures a DeskFactory instance.
type DeskFactoryOption func(*DeskFactory)

// NewDeskFactory constructs a DeskFactory with defaults.
func NewDeskFactory(opts ...DeskFactoryOption) *DeskFactory {
	factory := &DeskFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator(""),
		Admins:      []string{AdminEmail},
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) DeskFactoryOption {
	return func(factory *DeskFactory) {
		factory.Clock = clock
	}
}

// WithAdmins overrides the administrator allow-list.
func WithAdmins(admins ...string) DeskFactoryOption {
	return func(factory *DeskFactory) {
		factory.Admins = admins
	}
}

// DeskHarness bundles a desk with the store and snapshot cache behind it.
type DeskHarness struct {
	Desk      *desk.Desk
	Store     ProvisionedStore
	Snapshots *snapshot.MemoryStore
	Gate      *access.Gate
}

// NewDesk builds a desk with serialized bookings over a fresh memory store.
func (f *DeskFactory) NewDesk(tb testing.TB) DeskHarness {
	tb.Helper()

	store := NewMemoryStore(tb, f.IDGenerator)
	snapshots := snapshot.NewMemoryStore(64, snapshot.DefaultTTL)
	gate := access.NewGate(f.Admins)

	d, err := desk.New(desk.Deps{
		Store:             store,
		Gate:              gate,
		Snapshots:         snapshots,
		Now:               f.Clock.NowFunc(),
		SerializeBookings: true,
	})
	if err != nil {
		tb.Fatalf("failed to build desk: %v", err)
	}
	return DeskHarness{Desk: d, Store: store, Snapshots: snapshots, Gate: gate}
}
