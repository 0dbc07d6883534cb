package desk

import (
	"time"

	"github.com/example/reservation-desk/internal/application"
)

// Outcome messages shown to callers.
const (
	MsgConflict         = "Time slot is already booked."
	MsgPermissionDenied = "Permission denied."
	MsgResourceNotFound = "Resource not found."
	MsgBookingNotFound  = "Reservation not found."
	MsgAlreadyCancelled = "Reservation is already cancelled."
	MsgNotCancellable   = "Only time slot reservations can be cancelled."
	MsgAlreadyExists    = "A resource with that name already exists."
	MsgNothingToUndo    = "Nothing to undo."
	MsgUnavailable      = "Storage is unavailable."
	MsgUnexpected       = "Something went wrong."
	MsgResourceAdded    = "Resource added successfully."
	MsgResourceRemoved  = "Resource removed."
	MsgBooked           = "Reservation confirmed."
	MsgCancelled        = "Reservation cancelled."
	MsgDeleted          = "Reservation permanently deleted."
	MsgStatusUpdated    = "Status updated."
	MsgTaskCreated      = "Task created."
	MsgMemberAdded      = "Member added."
	MsgUndone           = "Last change undone."
	invalidInputPrefix  = "Invalid input: "
)

// Result is the structured outcome of every mutating operation. Callers never
// receive a raw error for expected failures; Kind carries the failure class.
type Result struct {
	OK           bool              `json:"ok"`
	Message      string            `json:"message"`
	Kind         string            `json:"kind,omitempty"`
	Errors       map[string]string `json:"errors,omitempty"`
	CascadeCount *int              `json:"cascadeCount,omitempty"`
	Reservation  *ReservationView  `json:"reservation,omitempty"`
	Resource     *ResourceView     `json:"resource,omitempty"`
	Member       *MemberView       `json:"member,omitempty"`
}

// ResourcesResult answers GetResources.
type ResourcesResult struct {
	Result
	Resources []ResourceView `json:"resources"`
}

// ReservationsResult answers ListReservationsForDate and ListTasks.
type ReservationsResult struct {
	Result
	Reservations []ReservationView `json:"reservations"`
}

// MembersResult answers ListMembers.
type MembersResult struct {
	Result
	Members []MemberView `json:"members"`
}

// Identity describes the caller as the gate sees them.
type Identity struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// ResourceView is the external shape of a resource.
type ResourceView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
}

// ReservationView is the external shape of a slot or task.
type ReservationView struct {
	ID           string     `json:"id"`
	Kind         string     `json:"kind"`
	ResourceName string     `json:"resourceName"`
	OwnerEmail   string     `json:"ownerEmail"`
	OwnerName    string     `json:"ownerName,omitempty"`
	Status       string     `json:"status"`
	Date         string     `json:"date,omitempty"`
	StartTime    string     `json:"startTime,omitempty"`
	EndTime      string     `json:"endTime,omitempty"`
	Title        string     `json:"title,omitempty"`
	Description  string     `json:"description,omitempty"`
	Assignee     string     `json:"assignee,omitempty"`
	Priority     string     `json:"priority,omitempty"`
	DueDate      string     `json:"dueDate,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// MemberView is the external shape of a project member.
type MemberView struct {
	ID      string `json:"id"`
	Project string `json:"project"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

func toResourceView(r application.Resource) ResourceView {
	return ResourceView{ID: r.ID, Name: r.Name, Description: r.Description, Kind: string(r.Kind)}
}

func toReservationView(r application.Reservation) ReservationView {
	view := ReservationView{
		ID:           r.ID,
		Kind:         string(r.Kind),
		ResourceName: r.ResourceName,
		OwnerEmail:   r.OwnerEmail,
		OwnerName:    r.OwnerName,
		Status:       string(r.Status),
		Date:         r.Date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Title:        r.Title,
		Description:  r.Description,
		Assignee:     r.Assignee,
		Priority:     r.Priority,
		DueDate:      r.DueDate,
	}
	if !r.CreatedAt.IsZero() {
		created := r.CreatedAt
		view.CreatedAt = &created
	}
	return view
}

func toReservationViews(in []application.Reservation) []ReservationView {
	out := make([]ReservationView, 0, len(in))
	for _, r := range in {
		out = append(out, toReservationView(r))
	}
	return out
}

func toMemberView(m application.Member) MemberView {
	return MemberView{ID: m.ID, Project: m.ResourceName, Name: m.Name, Email: m.Email}
}

func succeeded(message string) Result {
	return Result{OK: true, Message: message}
}
