// Package reminder emails assignees about tasks that fall due soon. It is run
// from a scheduler outside the request path.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/example/reservation-desk/internal/application"
)

// DefaultWindowDays is how far ahead a due date triggers a reminder.
const DefaultWindowDays = 2

const dateLayout = "2006-01-02"

// TaskLister returns the tasks of a project, or of all projects for "".
type TaskLister interface {
	ListTasks(ctx context.Context, project string) ([]application.Reservation, error)
}

// MemberLister returns the team of a project.
type MemberLister interface {
	ListMembers(ctx context.Context, project string) ([]application.Member, error)
}

// Reminder is one message about one task.
type Reminder struct {
	TaskID   string
	Title    string
	Project  string
	Assignee string
	Email    string
	DueDate  string
	DaysLeft int
}

// Subject is the plain-text subject line.
func (r Reminder) Subject() string {
	return "Task due soon: " + r.Title
}

// Body is the plain-text message body.
func (r Reminder) Body() string {
	unit := "days"
	if r.DaysLeft == 1 {
		unit = "day"
	}
	return fmt.Sprintf("Hi %s,\n\nYour task %q in project %s is due on %s (%d %s remaining).\n",
		r.Assignee, r.Title, r.Project, r.DueDate, r.DaysLeft, unit)
}

// Notifier delivers reminders.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// Report summarises one scan.
type Report struct {
	Scanned int
	Due     int
	Sent    int
	// Unaddressed counts due tasks whose assignee has no member email.
	Unaddressed int
	Failed      int
}

// Scanner finds due tasks and notifies their assignees.
type Scanner struct {
	tasks      TaskLister
	members    MemberLister
	notifier   Notifier
	windowDays int
	now        func() time.Time
	logger     *slog.Logger
}

// NewScanner builds a scanner. windowDays below zero falls back to
// DefaultWindowDays.
func NewScanner(tasks TaskLister, members MemberLister, notifier Notifier, windowDays int, now func() time.Time, logger *slog.Logger) *Scanner {
	if windowDays < 0 {
		windowDays = DefaultWindowDays
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		tasks:      tasks,
		members:    members,
		notifier:   notifier,
		windowDays: windowDays,
		now:        now,
		logger:     logger.With("component", "reminder"),
	}
}

// Run scans every task once. A failure to notify one task is logged and the
// scan continues; only a failure to list tasks aborts it.
func (s *Scanner) Run(ctx context.Context) (Report, error) {
	var report Report

	tasks, err := s.tasks.ListTasks(ctx, "")
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list tasks", "error", err, "error_kind", application.ErrorKind(err))
		return report, err
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	teams := make(map[string][]application.Member)

	for _, task := range tasks {
		report.Scanned++
		if task.Status == application.StatusDone || task.DueDate == "" {
			continue
		}
		due, err := time.ParseInLocation(dateLayout, task.DueDate, now.Location())
		if err != nil {
			s.logger.WarnContext(ctx, "skipping task with unreadable due date", "task_id", task.ID, "due_date", task.DueDate)
			continue
		}
		days := int(math.Round(due.Sub(today).Hours() / 24))
		if days < 0 || days > s.windowDays {
			continue
		}
		report.Due++

		team, ok := teams[task.ResourceName]
		if !ok {
			team, err = s.members.ListMembers(ctx, task.ResourceName)
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to list members", "project", task.ResourceName, "error", err)
				report.Failed++
				continue
			}
			teams[task.ResourceName] = team
		}

		email := assigneeEmail(team, task.Assignee)
		if email == "" {
			report.Unaddressed++
			s.logger.InfoContext(ctx, "no email for assignee", "task_id", task.ID, "assignee", task.Assignee)
			continue
		}

		r := Reminder{
			TaskID:   task.ID,
			Title:    task.Title,
			Project:  task.ResourceName,
			Assignee: task.Assignee,
			Email:    email,
			DueDate:  task.DueDate,
			DaysLeft: days,
		}
		if err := s.notifier.Notify(ctx, r); err != nil {
			report.Failed++
			s.logger.ErrorContext(ctx, "failed to send reminder", "task_id", task.ID, "email", email, "error", err)
			continue
		}
		report.Sent++
	}

	s.logger.InfoContext(ctx, "reminder scan finished",
		"scanned", report.Scanned,
		"due", report.Due,
		"sent", report.Sent,
		"unaddressed", report.Unaddressed,
		"failed", report.Failed,
	)
	return report, nil
}

func assigneeEmail(team []application.Member, assignee string) string {
	if assignee == "" {
		return ""
	}
	for _, m := range team {
		if m.Name == assignee {
			return m.Email
		}
	}
	return ""
}
