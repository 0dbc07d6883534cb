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
	"github.com/example/reservation-desk/internal/snapshot"
)

// LifecycleService moves existing reservations between states: cancel, hard
// delete, task status changes and undo of the last change.
type LifecycleService struct {
	records   records
	gate      *access.Gate
	snapshots snapshot.Store
	locks     *ResourceLocks
	now       func() time.Time
	logger    *slog.Logger
}

// NewLifecycleService constructs a lifecycle service. snapshots may be nil,
// in which case nothing can be undone.
func NewLifecycleService(store persistence.TabularStore, gate *access.Gate, snapshots snapshot.Store, now func() time.Time) *LifecycleService {
	return NewLifecycleServiceWithLogger(store, gate, snapshots, now, nil)
}

// NewLifecycleServiceWithLogger constructs a lifecycle service with a specified logger.
func NewLifecycleServiceWithLogger(store persistence.TabularStore, gate *access.Gate, snapshots snapshot.Store, now func() time.Time, logger *slog.Logger) *LifecycleService {
	if now == nil {
		now = time.Now
	}
	return &LifecycleService{
		records:   records{store: store},
		gate:      gate,
		snapshots: snapshots,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

// UseResourceLocks shares the booking lock table so that an undo which
// re-confirms a slot cannot race a concurrent booking.
func (s *LifecycleService) UseResourceLocks(locks *ResourceLocks) *LifecycleService {
	if s != nil {
		s.locks = locks
	}
	return s
}

func (s *LifecycleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LifecycleService", operation, attrs...)
}

// Cancel marks a confirmed slot as cancelled. The row stays queryable. Only
// the owner or an administrator may cancel.
func (s *LifecycleService) Cancel(ctx context.Context, caller, id string) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("LifecycleService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Cancel", "caller", caller, "reservation_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation cancelled")
	}()

	reservation, err = s.records.reservation(ctx, id)
	if err != nil {
		return
	}
	if err = s.gate.Authorize(caller, access.RoleOwnerOrAdmin, reservation.OwnerEmail); err != nil {
		return
	}
	if reservation.Kind != KindSlot {
		err = fmt.Errorf("%w: only time slots can be cancelled", ErrInvalidTransition)
		return
	}
	if reservation.Status == StatusCancelled {
		err = ErrAlreadyCancelled
		return
	}

	if err = s.records.update(ctx, persistence.TableReservations, id, persistence.Row{"status": string(StatusCancelled)}); err != nil {
		return
	}
	s.remember(ctx, logger, caller, reservation)
	reservation.Status = StatusCancelled
	return
}

// HardDelete physically removes one reservation. Administrators only. There
// is no undo.
func (s *LifecycleService) HardDelete(ctx context.Context, caller, id string) (err error) {
	if s == nil {
		return fmt.Errorf("LifecycleService is nil")
	}

	logger := s.loggerWith(ctx, "HardDelete", "caller", caller, "reservation_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation deleted")
	}()

	if err = s.gate.Authorize(caller, access.RoleAdmin, ""); err != nil {
		return
	}
	return s.records.delete(ctx, persistence.TableReservations, id)
}

// SetStatus moves a task to any of the task states. Any caller may do so,
// including an anonymous one; only identified callers get an undo entry.
func (s *LifecycleService) SetStatus(ctx context.Context, caller, id string, status Status) (task Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("LifecycleService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SetStatus", "caller", caller, "reservation_id", id, "status", string(status))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to set status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "status updated")
	}()

	status = Status(strings.TrimSpace(string(status)))
	if !isTaskStatus(status) {
		err = fieldError("status", "status must be To Do, In Progress or Done")
		return
	}

	task, err = s.records.reservation(ctx, id)
	if err != nil {
		return
	}
	if task.Kind != KindTask {
		err = fieldError("status", "only tasks have a workflow status")
		return
	}
	if task.Status == status {
		return
	}

	if err = s.records.update(ctx, persistence.TableReservations, id, persistence.Row{"status": string(status)}); err != nil {
		return
	}
	if caller != "" {
		s.remember(ctx, logger, caller, task)
	}
	task.Status = status
	return
}

// Undo restores the caller's most recent change and forgets it. Restoring a
// slot to confirmed re-runs the overlap check.
func (s *LifecycleService) Undo(ctx context.Context, caller string) (restored Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("LifecycleService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Undo", "caller", caller)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to undo", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", restored.ID, "status", string(restored.Status)).InfoContext(ctx, "change undone")
	}()

	if err = s.gate.Authorize(caller, access.RoleIdentified, ""); err != nil {
		return
	}
	if s.snapshots == nil {
		err = ErrNothingToUndo
		return
	}

	snap, err := s.snapshots.Latest(ctx, caller)
	switch {
	case errors.Is(err, snapshot.ErrNoSnapshot):
		err = ErrNothingToUndo
		return
	case err != nil:
		err = fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		return
	}
	if snap.Table != persistence.TableReservations {
		s.forget(ctx, logger, caller)
		err = fmt.Errorf("%w: unsupported snapshot table %q", ErrNothingToUndo, snap.Table)
		return
	}

	restored, err = s.records.reservation(ctx, snap.RowID)
	if errors.Is(err, ErrNotFound) {
		s.forget(ctx, logger, caller)
		return
	}
	if err != nil {
		return
	}

	prior := Status(snap.Values["status"])
	if restored.Kind == KindSlot && prior == StatusConfirmed {
		release := s.locks.lock(restored.ResourceName)
		defer release()

		if err = s.checkRestorable(ctx, logger, restored); err != nil {
			return
		}
	}

	if err = s.records.update(ctx, snap.Table, snap.RowID, snap.Values); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.forget(ctx, logger, caller)
		}
		return
	}
	s.forget(ctx, logger, caller)

	restored.Status = prior
	return
}

func (s *LifecycleService) checkRestorable(ctx context.Context, logger *slog.Logger, res Reservation) error {
	interval, err := scheduler.ParseInterval(res.StartTime, res.EndTime)
	if err != nil {
		return fieldError("startTime", "stored times are unreadable")
	}
	existing, err := s.records.reservations(ctx)
	if err != nil {
		return err
	}
	candidate := scheduler.Slot{ID: res.ID, Resource: res.ResourceName, Date: res.Date, Interval: interval}
	if conflicts := scheduler.DetectConflicts(blockingSlots(logger, existing), candidate); len(conflicts) > 0 {
		return conflictError(conflicts)
	}
	return nil
}

// remember stores the prior status of res as the caller's undo entry. It runs
// only after the write has landed. A snapshot failure never fails the mutation.
func (s *LifecycleService) remember(ctx context.Context, logger *slog.Logger, caller string, res Reservation) {
	if s.snapshots == nil {
		return
	}
	snap := snapshot.Snapshot{
		Table:   persistence.TableReservations,
		RowID:   res.ID,
		Values:  persistence.Row{"status": string(res.Status)},
		TakenAt: s.now(),
	}
	if err := s.snapshots.Save(ctx, caller, snap); err != nil {
		logger.WarnContext(ctx, "failed to save undo snapshot", "error", err)
	}
}

func (s *LifecycleService) forget(ctx context.Context, logger *slog.Logger, caller string) {
	if err := s.snapshots.Discard(ctx, caller); err != nil {
		logger.WarnContext(ctx, "failed to discard undo snapshot", "error", err)
	}
}
