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

// ResourceService manages rooms, projects and project members.
type ResourceService struct {
	records records
	gate    *access.Gate
	names   *ResourceLocks
	now     func() time.Time
	logger  *slog.Logger
}

// NewResourceService constructs a resource service with the provided dependencies.
func NewResourceService(store persistence.TabularStore, gate *access.Gate, now func() time.Time) *ResourceService {
	return NewResourceServiceWithLogger(store, gate, now, nil)
}

// NewResourceServiceWithLogger constructs a resource service with a specified logger.
func NewResourceServiceWithLogger(store persistence.TabularStore, gate *access.Gate, now func() time.Time, logger *slog.Logger) *ResourceService {
	if now == nil {
		now = time.Now
	}
	return &ResourceService{
		records: records{store: store},
		gate:    gate,
		names:   NewResourceLocks(),
		now:     now,
		logger:  defaultLogger(logger),
	}
}

func (s *ResourceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ResourceService", operation, attrs...)
}

// ListResources returns every resource in insertion order.
func (s *ResourceService) ListResources(ctx context.Context) (resources []Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListResources")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list resources", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(resources)).DebugContext(ctx, "resources listed")
	}()

	resources, err = s.records.resources(ctx)
	return
}

// AddResource creates a uniquely named resource. Administrators only.
func (s *ResourceService) AddResource(ctx context.Context, caller string, input ResourceInput) (resource Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AddResource", "caller", caller)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_id", resource.ID, "resource_name", resource.Name).InfoContext(ctx, "resource added")
	}()

	if err = s.gate.Authorize(caller, access.RoleAdmin, ""); err != nil {
		return
	}

	input, vErr := normalizeResourceInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	release := s.names.lock(input.Name)
	defer release()

	_, err = s.records.resourceByName(ctx, input.Name)
	switch {
	case err == nil:
		err = fmt.Errorf("%w: resource %q", ErrAlreadyExists, input.Name)
		return
	case !errors.Is(err, ErrNotFound):
		return
	}
	err = nil

	resource = Resource{
		Name:        input.Name,
		Description: input.Description,
		Kind:        input.Kind,
		CreatedAt:   s.now(),
	}
	resource.ID, err = s.records.append(ctx, persistence.TableResources, resourceToRow(resource))
	return
}

// DefaultRooms are seeded into an empty catalog.
var DefaultRooms = []ResourceInput{
	{Name: "Conference Room A", Description: "Seats 10, has a projector", Kind: ResourceRoom},
	{Name: "Focus Room B", Description: "Seats 2, has a whiteboard", Kind: ResourceRoom},
}

// SeedResources adds defaults when the catalog is empty and reports how many
// were added. It runs at start-up, outside any caller, so no gate applies.
func (s *ResourceService) SeedResources(ctx context.Context, defaults []ResourceInput) (added int, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SeedResources")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed resources", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("added", added).InfoContext(ctx, "resources seeded")
	}()

	existing, err := s.records.resources(ctx)
	if err != nil || len(existing) > 0 {
		return
	}

	for _, input := range defaults {
		normalized, vErr := normalizeResourceInput(input)
		if vErr.HasErrors() {
			err = vErr
			return
		}
		resource := Resource{
			Name:        normalized.Name,
			Description: normalized.Description,
			Kind:        normalized.Kind,
			CreatedAt:   s.now(),
		}
		if _, err = s.records.append(ctx, persistence.TableResources, resourceToRow(resource)); err != nil {
			return
		}
		added++
	}
	return
}

// RemoveResource deletes the named resource and, regardless of status, every
// reservation and member that references it. Administrators only.
func (s *ResourceService) RemoveResource(ctx context.Context, caller, name string) (removal Removal, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RemoveResource", "caller", caller, "resource_name", name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to remove resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"resource_id", removal.Resource.ID,
			"cascade_count", removal.CascadeCount,
			"members_removed", removal.MembersRemoved,
		).InfoContext(ctx, "resource removed")
	}()

	if err = s.gate.Authorize(caller, access.RoleAdmin, ""); err != nil {
		return
	}
	if strings.TrimSpace(name) == "" {
		err = fieldError("name", "name is required")
		return
	}

	removal.Resource, err = s.records.resourceByName(ctx, name)
	if err != nil {
		return
	}
	if err = s.records.delete(ctx, persistence.TableResources, removal.Resource.ID); err != nil {
		return
	}

	removal.CascadeCount, err = s.records.deleteWhere(ctx, persistence.TableReservations, "resource_name", name)
	if err != nil {
		return
	}
	removal.MembersRemoved, err = s.records.deleteWhere(ctx, persistence.TableMembers, "resource_name", name)
	return
}

// AddMember adds a named person to a project team. Administrators only.
func (s *ResourceService) AddMember(ctx context.Context, caller string, input MemberInput) (member Member, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AddMember", "caller", caller, "project", input.Project)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("member_id", member.ID).InfoContext(ctx, "member added")
	}()

	if err = s.gate.Authorize(caller, access.RoleAdmin, ""); err != nil {
		return
	}

	member = Member{
		ResourceName: strings.TrimSpace(input.Project),
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.TrimSpace(input.Email),
	}

	vErr := &ValidationError{}
	if member.Name == "" {
		vErr.add("name", "name is required")
	}
	if member.Email == "" {
		vErr.add("email", "email is required")
	} else if !strings.Contains(member.Email, "@") {
		vErr.add("email", "email is invalid")
	}
	if member.ResourceName == "" {
		vErr.add("project", "project is required")
	} else if projErr := s.requireProject(ctx, member.ResourceName); projErr != nil {
		if !errors.Is(projErr, ErrNotFound) {
			err = projErr
			return
		}
		vErr.add("project", "project does not exist")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	member.ID, err = s.records.append(ctx, persistence.TableMembers, memberToRow(member))
	return
}

// ListMembers returns the team of a project in insertion order.
func (s *ResourceService) ListMembers(ctx context.Context, project string) (members []Member, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListMembers", "project", project)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list members", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	all, err := s.records.members(ctx)
	if err != nil {
		return nil, err
	}
	members = make([]Member, 0, len(all))
	for _, m := range all {
		if m.ResourceName == project {
			members = append(members, m)
		}
	}
	return members, nil
}

func (s *ResourceService) requireProject(ctx context.Context, name string) error {
	res, err := s.records.resourceByName(ctx, name)
	if err != nil {
		return err
	}
	if res.Kind != ResourceProject {
		return ErrNotFound
	}
	return nil
}

func normalizeResourceInput(input ResourceInput) (ResourceInput, *ValidationError) {
	vErr := &ValidationError{}

	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if input.Kind == "" {
		input.Kind = ResourceRoom
	}

	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Kind != ResourceRoom && input.Kind != ResourceProject {
		vErr.add("kind", "kind must be room or project")
	}
	return input, vErr
}
