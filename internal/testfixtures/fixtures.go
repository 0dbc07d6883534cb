package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/reservation-desk/internal/persistence"
)

var (
	resourceCounter uint64
	taskCounter     uint64
	memberCounter   uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate is ReferenceTime formatted as a booking date.
func ReferenceDate() string {
	return referenceTime.Format("2006-01-02")
}

// --------------------------- Resource fixtures ---------------------------

// ResourceFixture is a deterministic resources row.
type ResourceFixture struct {
	Name        string
	Description string
	Kind        string
	CreatedAt   time.Time
}

// ResourceOption configures the generated resource fixture.
type ResourceOption func(*ResourceFixture)

// NewResourceFixture returns a room fixture with optional overrides.
func NewResourceFixture(opts ...ResourceOption) ResourceFixture {
	idx := atomic.AddUint64(&resourceCounter, 1)
	fixture := ResourceFixture{
		Name:        fmt.Sprintf("Room %03d", idx),
		Description: "Main office",
		Kind:        "room",
		CreatedAt:   referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithResourceName overrides the generated name.
func WithResourceName(name string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Name = name
	}
}

// WithResourceDescription overrides the generated description.
func WithResourceDescription(description string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Description = description
	}
}

// AsProject turns the fixture into a project.
func AsProject() ResourceOption {
	return func(f *ResourceFixture) {
		f.Kind = "project"
	}
}

// Row returns the fixture as a store row.
func (f ResourceFixture) Row() persistence.Row {
	return persistence.Row{
		"name":        f.Name,
		"description": f.Description,
		"kind":        f.Kind,
		"created_at":  f.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ----------------------------- Slot fixtures -----------------------------

// SlotFixture is a deterministic time-slot reservations row.
type SlotFixture struct {
	Resource   string
	Date       string
	StartTime  string
	EndTime    string
	OwnerEmail string
	Status     string
}

// SlotOption configures the generated slot fixture.
type SlotOption func(*SlotFixture)

// NewSlotFixture returns a confirmed one-hour slot on resource.
func NewSlotFixture(resource string, opts ...SlotOption) SlotFixture {
	fixture := SlotFixture{
		Resource:   resource,
		Date:       ReferenceDate(),
		StartTime:  "09:00",
		EndTime:    "10:00",
		OwnerEmail: "owner@example.com",
		Status:     "Confirmed",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSlotTimes overrides the start and end times.
func WithSlotTimes(start, end string) SlotOption {
	return func(f *SlotFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithSlotDate overrides the date.
func WithSlotDate(date string) SlotOption {
	return func(f *SlotFixture) {
		f.Date = date
	}
}

// WithSlotOwner overrides the owner email.
func WithSlotOwner(email string) SlotOption {
	return func(f *SlotFixture) {
		f.OwnerEmail = email
	}
}

// Cancelled marks the slot as cancelled.
func Cancelled() SlotOption {
	return func(f *SlotFixture) {
		f.Status = "Cancelled"
	}
}

// Row returns the fixture as a store row.
func (f SlotFixture) Row() persistence.Row {
	return persistence.Row{
		"kind":          "slot",
		"resource_name": f.Resource,
		"owner_email":   f.OwnerEmail,
		"owner_name":    f.OwnerEmail,
		"status":        f.Status,
		"date":          f.Date,
		"start_time":    f.StartTime,
		"end_time":      f.EndTime,
		"created_at":    referenceTime.Format(time.RFC3339Nano),
	}
}

// ----------------------------- Task fixtures -----------------------------

// TaskFixture is a deterministic task reservations row.
type TaskFixture struct {
	Project  string
	Title    string
	Assignee string
	Priority string
	DueDate  string
	Status   string
}

// TaskOption configures the generated task fixture.
type TaskOption func(*TaskFixture)

// NewTaskFixture returns a "To Do" task in project due on the reference date.
func NewTaskFixture(project string, opts ...TaskOption) TaskFixture {
	idx := atomic.AddUint64(&taskCounter, 1)
	fixture := TaskFixture{
		Project:  project,
		Title:    fmt.Sprintf("Task %03d", idx),
		Priority: "Medium",
		DueDate:  ReferenceDate(),
		Status:   "To Do",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithTaskAssignee overrides the assignee name.
func WithTaskAssignee(name string) TaskOption {
	return func(f *TaskFixture) {
		f.Assignee = name
	}
}

// WithTaskDueDate overrides the due date.
func WithTaskDueDate(date string) TaskOption {
	return func(f *TaskFixture) {
		f.DueDate = date
	}
}

// WithTaskStatus overrides the workflow status.
func WithTaskStatus(status string) TaskOption {
	return func(f *TaskFixture) {
		f.Status = status
	}
}

// Row returns the fixture as a store row.
func (f TaskFixture) Row() persistence.Row {
	return persistence.Row{
		"kind":          "task",
		"resource_name": f.Project,
		"owner_email":   "owner@example.com",
		"status":        f.Status,
		"title":         f.Title,
		"assignee":      f.Assignee,
		"priority":      f.Priority,
		"due_date":      f.DueDate,
		"created_at":    referenceTime.Format(time.RFC3339Nano),
	}
}

// ---------------------------- Member fixtures ----------------------------

// MemberFixture is a deterministic members row.
type MemberFixture struct {
	Project string
	Name    string
	Email   string
}

// NewMemberFixture returns a member of project with a generated name and email.
func NewMemberFixture(project string) MemberFixture {
	idx := atomic.AddUint64(&memberCounter, 1)
	return MemberFixture{
		Project: project,
		Name:    fmt.Sprintf("Member %03d", idx),
		Email:   fmt.Sprintf("member-%03d@example.com", idx),
	}
}

// Row returns the fixture as a store row.
func (f MemberFixture) Row() persistence.Row {
	return persistence.Row{
		"resource_name": f.Project,
		"name":          f.Name,
		"email":         f.Email,
	}
}

// Seed appends row to table and returns the generated id.
func Seed(tb testing.TB, store persistence.TabularStore, table persistence.Table, row persistence.Row) string {
	tb.Helper()
	id, err := store.AppendRow(context.Background(), table, row)
	if err != nil {
		tb.Fatalf("failed to seed %s: %v", table, err)
	}
	return id
}
