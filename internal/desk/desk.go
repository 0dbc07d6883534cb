// Package desk is the operation boundary of the reservation store. Every
// operation returns a structured Result; only an unavailable backend also
// yields a Go error.
package desk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/reservation-desk/internal/access"
	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/logging"
	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/snapshot"
)

// Deps collects what a Desk needs. Store and Gate are required.
type Deps struct {
	Store     persistence.TabularStore
	Gate      *access.Gate
	Snapshots snapshot.Store
	Now       func() time.Time
	Logger    *slog.Logger

	// SerializeBookings holds a per-resource lock across the overlap check
	// and the append of a booking.
	SerializeBookings bool
}

// Desk wires the application services behind the result-shaped API.
type Desk struct {
	resources *application.ResourceService
	bookings  *application.BookingService
	tasks     *application.TaskService
	lifecycle *application.LifecycleService
	gate      *access.Gate
	logger    *slog.Logger
}

// New builds a Desk from deps.
func New(deps Deps) (*Desk, error) {
	if deps.Store == nil {
		return nil, errors.New("desk: store is required")
	}
	if deps.Gate == nil {
		return nil, errors.New("desk: gate is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var locks *application.ResourceLocks
	if deps.SerializeBookings {
		locks = application.NewResourceLocks()
	}

	return &Desk{
		resources: application.NewResourceServiceWithLogger(deps.Store, deps.Gate, deps.Now, logger),
		bookings:  application.NewBookingServiceWithLogger(deps.Store, deps.Gate, deps.Now, logger).UseResourceLocks(locks),
		tasks:     application.NewTaskServiceWithLogger(deps.Store, deps.Gate, deps.Now, logger),
		lifecycle: application.NewLifecycleServiceWithLogger(deps.Store, deps.Gate, deps.Snapshots, deps.Now, logger).UseResourceLocks(locks),
		gate:      deps.Gate,
		logger:    logger,
	}, nil
}

func (d *Desk) loggerFor(ctx context.Context, operation string) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = d.logger
	}
	return logger.With("component", "desk", "operation", operation)
}

// fail converts err into a failed Result. The error is logged first.
// notFound is the message used when err is ErrNotFound.
func (d *Desk) fail(ctx context.Context, operation string, err error, notFound string) (Result, error) {
	kind := application.ErrorKind(err)
	logger := d.loggerFor(ctx, operation)

	result := Result{OK: false, Kind: kind}
	var hard error
	switch {
	case errors.Is(err, application.ErrBackendUnavailable):
		result.Message = MsgUnavailable
		hard = fmt.Errorf("desk: %s: %w", operation, err)
	case errors.Is(err, application.ErrPermissionDenied):
		result.Message = MsgPermissionDenied
	case errors.Is(err, application.ErrNotFound):
		result.Message = notFound
	case errors.Is(err, application.ErrConflict):
		result.Message = MsgConflict
	case errors.Is(err, application.ErrAlreadyExists):
		result.Message = MsgAlreadyExists
	case errors.Is(err, application.ErrAlreadyCancelled):
		result.Message = MsgAlreadyCancelled
	case errors.Is(err, application.ErrInvalidTransition):
		result.Message = MsgNotCancellable
	case errors.Is(err, application.ErrNothingToUndo):
		result.Message = MsgNothingToUndo
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			result.Message = invalidInputPrefix + vErr.Summary()
			result.Errors = vErr.FieldErrors
		} else {
			result.Message = MsgUnexpected
		}
	}

	if hard != nil {
		logger.ErrorContext(ctx, "operation failed", "error", err, "error_kind", kind)
	} else {
		logger.WarnContext(ctx, "operation rejected", "error", err, "error_kind", kind)
	}
	return result, hard
}

// WhoAmI reports the caller identity and whether the gate treats it as an
// administrator.
func (d *Desk) WhoAmI(caller string) Identity {
	return Identity{Email: caller, IsAdmin: d.gate.IsAdmin(caller)}
}

// GetResources lists every resource.
func (d *Desk) GetResources(ctx context.Context) (ResourcesResult, error) {
	resources, err := d.resources.ListResources(ctx)
	if err != nil {
		res, hard := d.fail(ctx, "GetResources", err, MsgResourceNotFound)
		return ResourcesResult{Result: res, Resources: []ResourceView{}}, hard
	}
	views := make([]ResourceView, 0, len(resources))
	for _, r := range resources {
		views = append(views, toResourceView(r))
	}
	return ResourcesResult{Result: succeeded(""), Resources: views}, nil
}

// AddResource creates a room or project. Administrators only.
func (d *Desk) AddResource(ctx context.Context, caller, name, description, kind string) (Result, error) {
	resource, err := d.resources.AddResource(ctx, caller, application.ResourceInput{
		Name:        name,
		Description: description,
		Kind:        application.ResourceKind(kind),
	})
	if err != nil {
		return d.fail(ctx, "AddResource", err, MsgResourceNotFound)
	}
	result := succeeded(MsgResourceAdded)
	view := toResourceView(resource)
	result.Resource = &view
	return result, nil
}

// RemoveResource deletes a resource and its dependents, reporting how many
// reservations went with it. Administrators only.
func (d *Desk) RemoveResource(ctx context.Context, caller, name string) (Result, error) {
	removal, err := d.resources.RemoveResource(ctx, caller, name)
	if err != nil {
		return d.fail(ctx, "RemoveResource", err, MsgResourceNotFound)
	}
	result := succeeded(fmt.Sprintf("%s %d related reservation(s) deleted.", MsgResourceRemoved, removal.CascadeCount))
	count := removal.CascadeCount
	result.CascadeCount = &count
	return result, nil
}

// ListReservationsForDate lists every slot on date, in any status.
func (d *Desk) ListReservationsForDate(ctx context.Context, date string) (ReservationsResult, error) {
	reservations, err := d.bookings.ListReservationsForDate(ctx, date)
	if err != nil {
		res, hard := d.fail(ctx, "ListReservationsForDate", err, MsgBookingNotFound)
		return ReservationsResult{Result: res, Reservations: []ReservationView{}}, hard
	}
	return ReservationsResult{Result: succeeded(""), Reservations: toReservationViews(reservations)}, nil
}

// BookRequest is the caller supplied part of a booking.
type BookRequest struct {
	ResourceName string `json:"resourceName"`
	Date         string `json:"date"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	OwnerName    string `json:"ownerName"`
}

// Book places a slot. An overlap yields ok=false with MsgConflict.
func (d *Desk) Book(ctx context.Context, caller string, req BookRequest) (Result, error) {
	reservation, err := d.bookings.Book(ctx, caller, application.BookingRequest{
		ResourceName: req.ResourceName,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		OwnerName:    req.OwnerName,
	})
	if err != nil {
		return d.fail(ctx, "Book", err, MsgResourceNotFound)
	}
	result := succeeded(MsgBooked)
	view := toReservationView(reservation)
	result.Reservation = &view
	return result, nil
}

// Cancel marks a slot cancelled. Owner or administrator only.
func (d *Desk) Cancel(ctx context.Context, caller, id string) (Result, error) {
	reservation, err := d.lifecycle.Cancel(ctx, caller, id)
	if err != nil {
		return d.fail(ctx, "Cancel", err, MsgBookingNotFound)
	}
	result := succeeded(MsgCancelled)
	view := toReservationView(reservation)
	result.Reservation = &view
	return result, nil
}

// HardDelete removes a reservation for good. Administrators only.
func (d *Desk) HardDelete(ctx context.Context, caller, id string) (Result, error) {
	if err := d.lifecycle.HardDelete(ctx, caller, id); err != nil {
		return d.fail(ctx, "HardDelete", err, MsgBookingNotFound)
	}
	return succeeded(MsgDeleted), nil
}

// SetStatus moves a task between To Do, In Progress and Done.
func (d *Desk) SetStatus(ctx context.Context, caller, id, status string) (Result, error) {
	task, err := d.lifecycle.SetStatus(ctx, caller, id, application.Status(status))
	if err != nil {
		return d.fail(ctx, "SetStatus", err, MsgBookingNotFound)
	}
	result := succeeded(MsgStatusUpdated)
	view := toReservationView(task)
	result.Reservation = &view
	return result, nil
}

// TaskRequest is the caller supplied part of a task.
type TaskRequest struct {
	Project     string `json:"project"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Assignee    string `json:"assignee"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
}

// CreateTask adds a task to a project.
func (d *Desk) CreateTask(ctx context.Context, caller string, req TaskRequest) (Result, error) {
	task, err := d.tasks.CreateTask(ctx, caller, application.TaskInput{
		Project:     req.Project,
		Title:       req.Title,
		Description: req.Description,
		Assignee:    req.Assignee,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return d.fail(ctx, "CreateTask", err, MsgResourceNotFound)
	}
	result := succeeded(MsgTaskCreated)
	view := toReservationView(task)
	result.Reservation = &view
	return result, nil
}

// ListTasks lists the tasks of project, or all tasks when project is empty.
func (d *Desk) ListTasks(ctx context.Context, project string) (ReservationsResult, error) {
	tasks, err := d.tasks.ListTasks(ctx, project)
	if err != nil {
		res, hard := d.fail(ctx, "ListTasks", err, MsgResourceNotFound)
		return ReservationsResult{Result: res, Reservations: []ReservationView{}}, hard
	}
	return ReservationsResult{Result: succeeded(""), Reservations: toReservationViews(tasks)}, nil
}

// AddMember adds a person to a project team. Administrators only.
func (d *Desk) AddMember(ctx context.Context, caller, project, name, email string) (Result, error) {
	member, err := d.resources.AddMember(ctx, caller, application.MemberInput{Project: project, Name: name, Email: email})
	if err != nil {
		return d.fail(ctx, "AddMember", err, MsgResourceNotFound)
	}
	result := succeeded(MsgMemberAdded)
	view := toMemberView(member)
	result.Member = &view
	return result, nil
}

// ListMembers lists the team of project.
func (d *Desk) ListMembers(ctx context.Context, project string) (MembersResult, error) {
	members, err := d.resources.ListMembers(ctx, project)
	if err != nil {
		res, hard := d.fail(ctx, "ListMembers", err, MsgResourceNotFound)
		return MembersResult{Result: res, Members: []MemberView{}}, hard
	}
	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, toMemberView(m))
	}
	return MembersResult{Result: succeeded(""), Members: views}, nil
}

// Undo reverts the caller's most recent cancel or status change.
func (d *Desk) Undo(ctx context.Context, caller string) (Result, error) {
	restored, err := d.lifecycle.Undo(ctx, caller)
	if err != nil {
		return d.fail(ctx, "Undo", err, MsgBookingNotFound)
	}
	result := succeeded(MsgUndone)
	view := toReservationView(restored)
	result.Reservation = &view
	return result, nil
}
