package application

import "time"

// ResourceKind separates bookable rooms from tracked projects.
type ResourceKind string

const (
	ResourceRoom    ResourceKind = "room"
	ResourceProject ResourceKind = "project"
)

// Resource is a uniquely named room or project.
type Resource struct {
	ID          string
	Name        string
	Description string
	Kind        ResourceKind
	CreatedAt   time.Time
}

// ReservationKind separates time-slot bookings from project tasks.
type ReservationKind string

const (
	KindSlot ReservationKind = "slot"
	KindTask ReservationKind = "task"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusConfirmed  Status = "Confirmed"
	StatusCancelled  Status = "Cancelled"
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// TaskStatuses lists the states a task may move between, in workflow order.
func TaskStatuses() []Status {
	return []Status{StatusToDo, StatusInProgress, StatusDone}
}

func isTaskStatus(status Status) bool {
	for _, s := range TaskStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// Reservation is either a time slot on a room or a task in a project. The
// resource is referenced by name.
type Reservation struct {
	ID           string
	Kind         ReservationKind
	ResourceName string
	OwnerEmail   string
	OwnerName    string
	Status       Status
	CreatedAt    time.Time

	// Slot fields. Date and times keep the caller's formatting.
	Date      string
	StartTime string
	EndTime   string

	// Task fields.
	Title       string
	Description string
	Assignee    string
	Priority    string
	DueDate     string
}

// Member ties a named person on a project to an email address.
type Member struct {
	ID           string
	ResourceName string
	Name         string
	Email        string
}

// ResourceInput captures caller provided resource fields.
type ResourceInput struct {
	Name        string
	Description string
	Kind        ResourceKind
}

// BookingRequest captures caller provided slot fields.
type BookingRequest struct {
	ResourceName string
	Date         string
	StartTime    string
	EndTime      string
	OwnerName    string
}

// TaskInput captures caller provided task fields.
type TaskInput struct {
	Project     string
	Title       string
	Description string
	Assignee    string
	Priority    string
	DueDate     string
}

// MemberInput captures caller provided member fields.
type MemberInput struct {
	Project string
	Name    string
	Email   string
}

// Removal reports what a resource removal deleted.
type Removal struct {
	Resource       Resource
	CascadeCount   int
	MembersRemoved int
}

const (
	dateLayout      = "2006-01-02"
	defaultPriority = "Medium"
)

var priorities = map[string]bool{"Low": true, "Medium": true, "High": true}
