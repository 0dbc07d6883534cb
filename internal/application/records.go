package application

import (
	"context"
	"time"

	"github.com/example/reservation-desk/internal/persistence"
)

// records gives the services typed access to the tabular store.
type records struct {
	store persistence.TabularStore
}

func (r records) resources(ctx context.Context) ([]Resource, error) {
	rows, err := r.store.ListRows(ctx, persistence.TableResources)
	if err != nil {
		return nil, mapStoreError(err)
	}
	out := make([]Resource, 0, len(rows))
	for _, row := range rows {
		out = append(out, resourceFromRow(row))
	}
	return out, nil
}

func (r records) resourceByName(ctx context.Context, name string) (Resource, error) {
	resources, err := r.resources(ctx)
	if err != nil {
		return Resource{}, err
	}
	for _, res := range resources {
		if res.Name == name {
			return res, nil
		}
	}
	return Resource{}, ErrNotFound
}

func (r records) reservations(ctx context.Context) ([]Reservation, error) {
	rows, err := r.store.ListRows(ctx, persistence.TableReservations)
	if err != nil {
		return nil, mapStoreError(err)
	}
	out := make([]Reservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, reservationFromRow(row))
	}
	return out, nil
}

func (r records) reservation(ctx context.Context, id string) (Reservation, error) {
	all, err := r.reservations(ctx)
	if err != nil {
		return Reservation{}, err
	}
	for _, res := range all {
		if res.ID == id {
			return res, nil
		}
	}
	return Reservation{}, ErrNotFound
}

func (r records) members(ctx context.Context) ([]Member, error) {
	rows, err := r.store.ListRows(ctx, persistence.TableMembers)
	if err != nil {
		return nil, mapStoreError(err)
	}
	out := make([]Member, 0, len(rows))
	for _, row := range rows {
		out = append(out, memberFromRow(row))
	}
	return out, nil
}

func (r records) append(ctx context.Context, table persistence.Table, row persistence.Row) (string, error) {
	id, err := r.store.AppendRow(ctx, table, row)
	return id, mapStoreError(err)
}

func (r records) update(ctx context.Context, table persistence.Table, id string, patch persistence.Row) error {
	return mapStoreError(r.store.UpdateRow(ctx, table, id, patch))
}

func (r records) delete(ctx context.Context, table persistence.Table, id string) error {
	return mapStoreError(r.store.DeleteRow(ctx, table, id))
}

func (r records) deleteWhere(ctx context.Context, table persistence.Table, column, value string) (int, error) {
	n, err := persistence.DeleteWhere(ctx, r.store, table, column, value)
	return n, mapStoreError(err)
}

func resourceFromRow(row persistence.Row) Resource {
	return Resource{
		ID:          row[persistence.ColumnID],
		Name:        row["name"],
		Description: row["description"],
		Kind:        ResourceKind(row["kind"]),
		CreatedAt:   parseTimestamp(row["created_at"]),
	}
}

func resourceToRow(res Resource) persistence.Row {
	return persistence.Row{
		"name":        res.Name,
		"description": res.Description,
		"kind":        string(res.Kind),
		"created_at":  formatTimestamp(res.CreatedAt),
	}
}

func reservationFromRow(row persistence.Row) Reservation {
	return Reservation{
		ID:           row[persistence.ColumnID],
		Kind:         ReservationKind(row["kind"]),
		ResourceName: row["resource_name"],
		OwnerEmail:   row["owner_email"],
		OwnerName:    row["owner_name"],
		Status:       Status(row["status"]),
		CreatedAt:    parseTimestamp(row["created_at"]),
		Date:         row["date"],
		StartTime:    row["start_time"],
		EndTime:      row["end_time"],
		Title:        row["title"],
		Description:  row["description"],
		Assignee:     row["assignee"],
		Priority:     row["priority"],
		DueDate:      row["due_date"],
	}
}

func reservationToRow(res Reservation) persistence.Row {
	return persistence.Row{
		"kind":          string(res.Kind),
		"resource_name": res.ResourceName,
		"owner_email":   res.OwnerEmail,
		"owner_name":    res.OwnerName,
		"status":        string(res.Status),
		"created_at":    formatTimestamp(res.CreatedAt),
		"date":          res.Date,
		"start_time":    res.StartTime,
		"end_time":      res.EndTime,
		"title":         res.Title,
		"description":   res.Description,
		"assignee":      res.Assignee,
		"priority":      res.Priority,
		"due_date":      res.DueDate,
	}
}

func memberFromRow(row persistence.Row) Member {
	return Member{
		ID:           row[persistence.ColumnID],
		ResourceName: row["resource_name"],
		Name:         row["name"],
		Email:        row["email"],
	}
}

func memberToRow(m Member) persistence.Row {
	return persistence.Row{
		"resource_name": m.ResourceName,
		"name":          m.Name,
		"email":         m.Email,
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
