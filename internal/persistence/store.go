package persistence

import (
	"context"
	"fmt"
)

// TabularStore is the row level contract every backend satisfies.
type TabularStore interface {
	// ListRows returns every row of the table in insertion order. A provisioned
	// table without rows yields an empty slice.
	ListRows(ctx context.Context, table Table) ([]Row, error)
	// AppendRow stores the row under a freshly generated id and returns it.
	AppendRow(ctx context.Context, table Table, row Row) (string, error)
	// UpdateRow overwrites the named columns of an existing row.
	UpdateRow(ctx context.Context, table Table, id string, patch Row) error
	// DeleteRow physically removes a row.
	DeleteRow(ctx context.Context, table Table, id string) error
}

// BulkDeleter is implemented by backends that can remove every row matching a
// column value in one atomic step.
type BulkDeleter interface {
	DeleteWhere(ctx context.Context, table Table, column, value string) (int, error)
}

// Provisioner creates missing tables and repairs missing columns.
type Provisioner interface {
	Provision(ctx context.Context, schemas ...Schema) error
}

// IDGenerator produces unique row identifiers.
type IDGenerator interface {
	NewID(prefix string) string
}

// DeleteWhere removes every row whose column equals value. Backends that do not
// implement BulkDeleter fall back to a scan followed by per-row deletes.
func DeleteWhere(ctx context.Context, store TabularStore, table Table, column, value string) (int, error) {
	if bulk, ok := store.(BulkDeleter); ok {
		return bulk.DeleteWhere(ctx, table, column, value)
	}

	rows, err := store.ListRows(ctx, table)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, row := range rows {
		if row[ColumnID] == "" || row[column] != value {
			continue
		}
		if err := store.DeleteRow(ctx, table, row[ColumnID]); err != nil {
			return removed, fmt.Errorf("delete %s row %s: %w", table, row[ColumnID], err)
		}
		removed++
	}
	return removed, nil
}
