// Package snapshot keeps short-lived undo records.
//
// Each caller owns at most one "latest" pointer. Saving a new snapshot moves
// the pointer; the entry it used to reference simply ages out. Entries and
// pointers share one time to live.
package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/example/reservation-desk/internal/persistence"
)

// DefaultTTL bounds how long an undo stays available.
const DefaultTTL = 6 * time.Hour

// ErrNoSnapshot is returned when the caller has nothing left to undo.
var ErrNoSnapshot = errors.New("snapshot: no recent change to undo")

// Snapshot records the prior values of the columns a mutation touched.
type Snapshot struct {
	Table   persistence.Table `json:"table"`
	RowID   string            `json:"row_id"`
	Values  persistence.Row   `json:"values"`
	TakenAt time.Time         `json:"taken_at"`
}

// Key addresses the snapshot by owner and mutated row.
func (s Snapshot) Key(owner string) string {
	return "undo:" + owner + ":" + string(s.Table) + ":" + s.RowID
}

func latestKey(owner string) string {
	return "undo:" + owner + ":latest"
}

// Store persists snapshots.
type Store interface {
	// Save stores snap and points the owner's latest pointer at it.
	Save(ctx context.Context, owner string, snap Snapshot) error
	// Latest returns the snapshot the owner's pointer references.
	Latest(ctx context.Context, owner string) (Snapshot, error)
	// Discard removes the owner's latest snapshot and its pointer.
	Discard(ctx context.Context, owner string) error
}
