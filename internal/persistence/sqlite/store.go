package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/example/reservation-desk/internal/idgen"
	"github.com/example/reservation-desk/internal/persistence"
)

// Store is a TabularStore persisted in a SQLite database. Every table carries
// a hidden autoincrement seq column that fixes insertion order.
type Store struct {
	pool   *ConnectionPool
	retry  *RetryHelper
	mapper *ErrorMapper
	ids    persistence.IDGenerator

	mu      sync.RWMutex
	schemas map[persistence.Table]persistence.Schema
}

// Open connects to the database described by cfg. Tables are not touched
// until Provision runs.
func Open(cfg Config, ids persistence.IDGenerator) (*Store, error) {
	pool, err := NewConnectionPool(cfg)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = idgen.UUID{}
	}
	return &Store{
		pool:    pool,
		retry:   NewRetryHelper(DefaultRetryConfig()),
		mapper:  NewErrorMapper(),
		ids:     ids,
		schemas: make(map[persistence.Table]persistence.Schema),
	}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.mapper.MapError(s.pool.Ping(ctx))
}

// Provision creates absent tables and adds missing columns.
func (s *Store) Provision(ctx context.Context, schemas ...persistence.Schema) error {
	for _, schema := range schemas {
		err := s.retry.WithRetry(ctx, func() error {
			return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
				return provisionTable(ctx, tx, schema)
			})
		})
		if err != nil {
			return fmt.Errorf("provision %s: %w", schema.Table, err)
		}
		s.register(schema)
	}
	return nil
}

func provisionTable(ctx context.Context, tx *sql.Tx, schema persistence.Schema) error {
	table := quoteIdent(string(schema.Table))

	defs := make([]string, 0, len(schema.Columns)+2)
	defs = append(defs, "seq INTEGER PRIMARY KEY AUTOINCREMENT", "id TEXT NOT NULL UNIQUE")
	for _, column := range schema.Columns {
		defs = append(defs, quoteIdent(column)+" TEXT NOT NULL DEFAULT ''")
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return err
	}

	existing, err := tableColumns(ctx, tx, table)
	if err != nil {
		return err
	}
	for _, column := range schema.Columns {
		if existing[column] {
			continue
		}
		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT NOT NULL DEFAULT ''", table, quoteIdent(column))
		if _, err := tx.ExecContext(ctx, alter); err != nil {
			return err
		}
	}
	return nil
}

func tableColumns(ctx context.Context, tx *sql.Tx, quotedTable string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, "PRAGMA table_info("+quotedTable+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		columns[name] = true
	}
	return columns, rows.Err()
}

func (s *Store) register(schema persistence.Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.schemas[schema.Table]
	if !ok {
		columns := make([]string, len(schema.Columns))
		copy(columns, schema.Columns)
		schema.Columns = columns
		s.schemas[schema.Table] = schema
		return
	}
	for _, column := range schema.Columns {
		if !current.HasColumn(column) {
			current.Columns = append(current.Columns, column)
		}
	}
	if schema.IDPrefix != "" {
		current.IDPrefix = schema.IDPrefix
	}
	s.schemas[schema.Table] = current
}

func (s *Store) schema(table persistence.Table) (persistence.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.schemas[table]
	if !ok {
		return persistence.Schema{}, fmt.Errorf("%w: %s", persistence.ErrTableNotFound, table)
	}
	return schema, nil
}

// ListRows returns every row ordered by insertion.
func (s *Store) ListRows(ctx context.Context, table persistence.Table) ([]persistence.Row, error) {
	schema, err := s.schema(table)
	if err != nil {
		return nil, err
	}

	selected := make([]string, 0, len(schema.Columns)+1)
	selected = append(selected, "id")
	for _, column := range schema.Columns {
		selected = append(selected, quoteIdent(column))
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY seq", strings.Join(selected, ", "), quoteIdent(string(table)))

	rows, err := s.pool.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	defer rows.Close()

	out := []persistence.Row{}
	for rows.Next() {
		values := make([]sql.NullString, len(selected))
		dest := make([]any, len(selected))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, s.mapper.MapError(err)
		}

		row := make(persistence.Row, len(selected))
		row[persistence.ColumnID] = values[0].String
		for i, column := range schema.Columns {
			row[column] = values[i+1].String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapper.MapError(err)
	}
	return out, nil
}

// AppendRow inserts the row under a generated id.
func (s *Store) AppendRow(ctx context.Context, table persistence.Table, row persistence.Row) (string, error) {
	schema, err := s.schema(table)
	if err != nil {
		return "", err
	}
	if err := schema.CheckRow(row); err != nil {
		return "", err
	}

	id := s.ids.NewID(schema.IDPrefix)
	columns := []string{"id"}
	placeholders := []string{"?"}
	args := []any{id}
	for _, column := range schema.Columns {
		columns = append(columns, quoteIdent(column))
		placeholders = append(placeholders, "?")
		args = append(args, row[column])
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(string(table)), strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	err = s.retry.WithRetry(ctx, func() error {
		_, execErr := s.pool.DB().ExecContext(ctx, stmt, args...)
		return execErr
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateRow overwrites the patched columns of the row carrying id.
func (s *Store) UpdateRow(ctx context.Context, table persistence.Table, id string, patch persistence.Row) error {
	schema, err := s.schema(table)
	if err != nil {
		return err
	}
	if err := schema.CheckPatch(patch); err != nil {
		return err
	}

	columns := make([]string, 0, len(patch))
	for column := range patch {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	var stmt string
	args := make([]any, 0, len(columns)+1)
	if len(columns) == 0 {
		stmt = fmt.Sprintf("UPDATE %s SET id = id WHERE id = ?", quoteIdent(string(table)))
	} else {
		sets := make([]string, 0, len(columns))
		for _, column := range columns {
			sets = append(sets, quoteIdent(column)+" = ?")
			args = append(args, patch[column])
		}
		stmt = fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", quoteIdent(string(table)), strings.Join(sets, ", "))
	}
	args = append(args, id)

	return s.execAffecting(ctx, stmt, args...)
}

// DeleteRow removes the row carrying id.
func (s *Store) DeleteRow(ctx context.Context, table persistence.Table, id string) error {
	if _, err := s.schema(table); err != nil {
		return err
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = ?", quoteIdent(string(table)))
	return s.execAffecting(ctx, stmt, id)
}

// DeleteWhere removes every row whose column equals value in one statement.
func (s *Store) DeleteWhere(ctx context.Context, table persistence.Table, column, value string) (int, error) {
	schema, err := s.schema(table)
	if err != nil {
		return 0, err
	}
	if !schema.HasColumn(column) {
		return 0, fmt.Errorf("%w: %s.%s", persistence.ErrUnknownColumn, table, column)
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(string(table)), quoteIdent(column))
	var affected int64
	err = s.retry.WithRetry(ctx, func() error {
		res, execErr := s.pool.DB().ExecContext(ctx, stmt, value)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *Store) execAffecting(ctx context.Context, stmt string, args ...any) error {
	var affected int64
	err := s.retry.WithRetry(ctx, func() error {
		res, execErr := s.pool.DB().ExecContext(ctx, stmt, args...)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrRowNotFound
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
