// Package memory keeps tables in process memory. It backs tests and
// single-process deployments that do not need durability.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/reservation-desk/internal/idgen"
	"github.com/example/reservation-desk/internal/persistence"
)

type table struct {
	schema persistence.Schema
	rows   []persistence.Row
}

func (t *table) indexOf(id string) int {
	for i, row := range t.rows {
		if row[persistence.ColumnID] == id {
			return i
		}
	}
	return -1
}

// Storage is an in-memory TabularStore.
type Storage struct {
	mu     sync.RWMutex
	ids    persistence.IDGenerator
	tables map[persistence.Table]*table
	closed bool
}

// Open returns an empty, unprovisioned storage. A nil generator falls back to
// random uuids.
func Open(ids persistence.IDGenerator) *Storage {
	if ids == nil {
		ids = idgen.UUID{}
	}
	return &Storage{ids: ids, tables: make(map[persistence.Table]*table)}
}

// Close marks the storage unavailable. Later calls fail with ErrUnavailable.
func (s *Storage) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Provision creates absent tables and adds missing columns to existing rows.
func (s *Storage) Provision(ctx context.Context, schemas ...persistence.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return persistence.ErrUnavailable
	}

	for _, schema := range schemas {
		existing, ok := s.tables[schema.Table]
		if !ok {
			s.tables[schema.Table] = &table{schema: cloneSchema(schema), rows: []persistence.Row{}}
			continue
		}

		for _, column := range schema.Columns {
			if existing.schema.HasColumn(column) {
				continue
			}
			existing.schema.Columns = append(existing.schema.Columns, column)
			for _, row := range existing.rows {
				row[column] = ""
			}
		}
		if schema.IDPrefix != "" {
			existing.schema.IDPrefix = schema.IDPrefix
		}
	}
	return nil
}

// ListRows returns copies of the rows in insertion order.
func (s *Storage) ListRows(ctx context.Context, name persistence.Table) ([]persistence.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.tableLocked(name)
	if err != nil {
		return nil, err
	}

	rows := make([]persistence.Row, 0, len(t.rows))
	for _, row := range t.rows {
		rows = append(rows, row.Clone())
	}
	return rows, nil
}

// AppendRow stores a copy of the row under a generated id.
func (s *Storage) AppendRow(ctx context.Context, name persistence.Table, row persistence.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tableLocked(name)
	if err != nil {
		return "", err
	}
	if err := t.schema.CheckRow(row); err != nil {
		return "", err
	}

	id := s.ids.NewID(t.schema.IDPrefix)
	if t.indexOf(id) >= 0 {
		return "", fmt.Errorf("memory: generated id %s already present in %s", id, name)
	}

	stored := make(persistence.Row, len(t.schema.Columns)+1)
	for _, column := range t.schema.Columns {
		stored[column] = row[column]
	}
	stored[persistence.ColumnID] = id
	t.rows = append(t.rows, stored)
	return id, nil
}

// UpdateRow applies the patch to the row carrying id.
func (s *Storage) UpdateRow(ctx context.Context, name persistence.Table, id string, patch persistence.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tableLocked(name)
	if err != nil {
		return err
	}
	if err := t.schema.CheckPatch(patch); err != nil {
		return err
	}

	idx := t.indexOf(id)
	if idx < 0 {
		return persistence.ErrRowNotFound
	}
	for column, value := range patch {
		t.rows[idx][column] = value
	}
	return nil
}

// DeleteRow removes the row carrying id.
func (s *Storage) DeleteRow(ctx context.Context, name persistence.Table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tableLocked(name)
	if err != nil {
		return err
	}

	idx := t.indexOf(id)
	if idx < 0 {
		return persistence.ErrRowNotFound
	}
	t.rows = append(t.rows[:idx], t.rows[idx+1:]...)
	return nil
}

// DeleteWhere removes every row whose column equals value under one lock.
func (s *Storage) DeleteWhere(ctx context.Context, name persistence.Table, column, value string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tableLocked(name)
	if err != nil {
		return 0, err
	}
	if !t.schema.HasColumn(column) {
		return 0, fmt.Errorf("%w: %s.%s", persistence.ErrUnknownColumn, name, column)
	}

	kept := t.rows[:0]
	removed := 0
	for _, row := range t.rows {
		if row[column] == value {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	t.rows = kept
	return removed, nil
}

func (s *Storage) tableLocked(name persistence.Table) (*table, error) {
	if s.closed {
		return nil, persistence.ErrUnavailable
	}
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", persistence.ErrTableNotFound, name)
	}
	return t, nil
}

func cloneSchema(schema persistence.Schema) persistence.Schema {
	columns := make([]string, len(schema.Columns))
	copy(columns, schema.Columns)
	schema.Columns = columns
	return schema
}
