package application

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/reservation-desk/internal/scheduler"
)

// blockingSlots converts confirmed slot reservations into scheduler slots.
// Cancelled rows and tasks never block. Rows whose times no longer parse are
// skipped with a warning.
func blockingSlots(logger *slog.Logger, reservations []Reservation) []scheduler.Slot {
	slots := make([]scheduler.Slot, 0, len(reservations))
	for _, res := range reservations {
		if res.Kind != KindSlot || res.Status != StatusConfirmed {
			continue
		}
		interval, err := scheduler.ParseInterval(res.StartTime, res.EndTime)
		if err != nil {
			logger.Warn("skipping reservation with unreadable times", "reservation_id", res.ID, "error", err)
			continue
		}
		slots = append(slots, scheduler.Slot{
			ID:       res.ID,
			Resource: res.ResourceName,
			Date:     res.Date,
			Interval: interval,
		})
	}
	return slots
}

func conflictError(conflicts []scheduler.Conflict) error {
	ids := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		ids = append(ids, c.WithSlotID)
	}
	return fmt.Errorf("%w: overlaps %s", ErrConflict, strings.Join(ids, ", "))
}
