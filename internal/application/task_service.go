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
)

// TaskService records project tasks. Tasks share the reservations table with
// slots but are never conflict checked.
type TaskService struct {
	records records
	gate    *access.Gate
	now     func() time.Time
	logger  *slog.Logger
}

// NewTaskService constructs a task service with the provided dependencies.
func NewTaskService(store persistence.TabularStore, gate *access.Gate, now func() time.Time) *TaskService {
	return NewTaskServiceWithLogger(store, gate, now, nil)
}

// NewTaskServiceWithLogger constructs a task service with a specified logger.
func NewTaskServiceWithLogger(store persistence.TabularStore, gate *access.Gate, now func() time.Time, logger *slog.Logger) *TaskService {
	if now == nil {
		now = time.Now
	}
	return &TaskService{records: records{store: store}, gate: gate, now: now, logger: defaultLogger(logger)}
}

func (s *TaskService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TaskService", operation, attrs...)
}

// CreateTask adds a task in the "To Do" state to an existing project.
func (s *TaskService) CreateTask(ctx context.Context, caller string, input TaskInput) (task Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("TaskService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateTask", "caller", caller, "project", input.Project)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create task", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("task_id", task.ID).InfoContext(ctx, "task created")
	}()

	if err = s.gate.Authorize(caller, access.RoleIdentified, ""); err != nil {
		return
	}

	input, vErr := normalizeTaskInput(input)
	if input.Project != "" {
		res, lookupErr := s.records.resourceByName(ctx, input.Project)
		switch {
		case errors.Is(lookupErr, ErrNotFound):
			vErr.add("project", "project does not exist")
		case lookupErr != nil:
			err = lookupErr
			return
		case res.Kind != ResourceProject:
			vErr.add("project", "resource is not a project")
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	task = Reservation{
		Kind:         KindTask,
		ResourceName: input.Project,
		OwnerEmail:   caller,
		OwnerName:    caller,
		Status:       StatusToDo,
		CreatedAt:    s.now(),
		Title:        input.Title,
		Description:  input.Description,
		Assignee:     input.Assignee,
		Priority:     input.Priority,
		DueDate:      input.DueDate,
	}
	task.ID, err = s.records.append(ctx, persistence.TableReservations, reservationToRow(task))
	return
}

// ListTasks returns the tasks of project, or of every project when project is
// empty.
func (s *TaskService) ListTasks(ctx context.Context, project string) (tasks []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("TaskService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListTasks", "project", project)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list tasks", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	all, err := s.records.reservations(ctx)
	if err != nil {
		return nil, err
	}
	tasks = make([]Reservation, 0, len(all))
	for _, res := range all {
		if res.Kind != KindTask {
			continue
		}
		if project != "" && res.ResourceName != project {
			continue
		}
		tasks = append(tasks, res)
	}
	return tasks, nil
}

func normalizeTaskInput(input TaskInput) (TaskInput, *ValidationError) {
	vErr := &ValidationError{}

	input.Project = strings.TrimSpace(input.Project)
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Assignee = strings.TrimSpace(input.Assignee)
	input.Priority = strings.TrimSpace(input.Priority)
	input.DueDate = strings.TrimSpace(input.DueDate)

	if input.Project == "" {
		vErr.add("project", "project is required")
	}
	if input.Title == "" {
		vErr.add("title", "title is required")
	}
	if input.Priority == "" {
		input.Priority = defaultPriority
	} else if !priorities[input.Priority] {
		vErr.add("priority", "priority must be Low, Medium or High")
	}
	if input.DueDate != "" {
		if _, err := time.Parse(dateLayout, input.DueDate); err != nil {
			vErr.add("dueDate", "due date must use YYYY-MM-DD")
		}
	}
	return input, vErr
}
