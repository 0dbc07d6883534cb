package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/reservation-desk/internal/access"
	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/scheduler"
)

// BookingService places conflict-checked time slots on rooms.
type BookingService struct {
	records records
	gate    *access.Gate
	locks   *ResourceLocks
	now     func() time.Time
	logger  *slog.Logger
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(store persistence.TabularStore, gate *access.Gate, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(store, gate, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(store persistence.TabularStore, gate *access.Gate, now func() time.Time, logger *slog.Logger) *BookingService {
	if now == nil {
		now = time.Now
	}
	return &BookingService{records: records{store: store}, gate: gate, now: now, logger: defaultLogger(logger)}
}

// UseResourceLocks makes Book hold a per-resource lock across the conflict
// check and the append. Without it two concurrent bookings of the same slot
// may both succeed.
func (s *BookingService) UseResourceLocks(locks *ResourceLocks) *BookingService {
	if s != nil {
		s.locks = locks
	}
	return s
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// Book stores a confirmed slot when it overlaps no confirmed slot on the same
// resource and date.
func (s *BookingService) Book(ctx context.Context, caller string, req BookingRequest) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Book",
		"caller", caller,
		"resource_name", req.ResourceName,
		"date", req.Date,
		"start_time", req.StartTime,
		"end_time", req.EndTime,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to book slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "slot booked")
	}()

	if err = s.gate.Authorize(caller, access.RoleIdentified, ""); err != nil {
		return
	}

	req, interval, vErr := normalizeBookingRequest(req)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	res, lookupErr := s.records.resourceByName(ctx, req.ResourceName)
	switch {
	case errors.Is(lookupErr, ErrNotFound):
		err = fieldError("resourceName", "resource does not exist")
		return
	case lookupErr != nil:
		err = lookupErr
		return
	case res.Kind != ResourceRoom:
		err = fieldError("resourceName", "resource does not accept bookings")
		return
	}

	release := s.locks.lock(req.ResourceName)
	defer release()

	existing, err := s.records.reservations(ctx)
	if err != nil {
		return
	}
	candidate := scheduler.Slot{Resource: req.ResourceName, Date: req.Date, Interval: interval}
	if conflicts := scheduler.DetectConflicts(blockingSlots(logger, existing), candidate); len(conflicts) > 0 {
		err = conflictError(conflicts)
		return
	}

	reservation = Reservation{
		Kind:         KindSlot,
		ResourceName: req.ResourceName,
		OwnerEmail:   caller,
		OwnerName:    req.OwnerName,
		Status:       StatusConfirmed,
		CreatedAt:    s.now(),
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	}
	if reservation.OwnerName == "" {
		reservation.OwnerName = caller
	}
	reservation.ID, err = s.records.append(ctx, persistence.TableReservations, reservationToRow(reservation))
	return
}

// ListReservationsForDate returns every slot, in any status, whose date
// string equals date exactly.
func (s *BookingService) ListReservationsForDate(ctx context.Context, date string) (reservations []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListReservationsForDate", "date", date)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(reservations)).DebugContext(ctx, "reservations listed")
	}()

	all, err := s.records.reservations(ctx)
	if err != nil {
		return nil, err
	}
	reservations = make([]Reservation, 0, len(all))
	for _, res := range all {
		if res.Kind == KindSlot && res.Date == date {
			reservations = append(reservations, res)
		}
	}
	return reservations, nil
}

func normalizeBookingRequest(req BookingRequest) (BookingRequest, scheduler.Interval, *ValidationError) {
	vErr := &ValidationError{}

	req.ResourceName = strings.TrimSpace(req.ResourceName)
	req.Date = strings.TrimSpace(req.Date)
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.EndTime = strings.TrimSpace(req.EndTime)
	req.OwnerName = strings.TrimSpace(req.OwnerName)

	if req.ResourceName == "" {
		vErr.add("resourceName", "resource name is required")
	}
	if req.Date == "" {
		vErr.add("date", "date is required")
	} else if _, err := time.Parse(dateLayout, req.Date); err != nil {
		vErr.add("date", "date must use YYYY-MM-DD")
	}

	var start, end time.Duration
	var startErr, endErr error
	if req.StartTime == "" {
		vErr.add("startTime", "start time is required")
	} else if start, startErr = scheduler.ParseClock(req.StartTime); startErr != nil {
		vErr.add("startTime", "start time must use HH:MM")
	}
	if req.EndTime == "" {
		vErr.add("endTime", "end time is required")
	} else if end, endErr = scheduler.ParseClock(req.EndTime); endErr != nil {
		vErr.add("endTime", "end time must use HH:MM")
	}
	if !vErr.HasErrors() && end < start {
		vErr.add("endTime", "end time must not be before start time")
	}

	return req, scheduler.Interval{Start: start, End: end}, vErr
}
