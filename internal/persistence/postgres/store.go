// Package postgres stores tables in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/reservation-desk/internal/idgen"
	"github.com/example/reservation-desk/internal/persistence"
)

const (
	codeUndefinedTable  = "42P01"
	codeUndefinedColumn = "42703"
)

// Options tune the pool. Zero values keep pgx defaults.
type Options struct {
	// SearchPath pins every connection to one schema.
	SearchPath      string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// Store is a TabularStore backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	ids  persistence.IDGenerator

	mu      sync.RWMutex
	schemas map[persistence.Table]persistence.Schema
}

// Open creates and pings a pool for the connection url.
func Open(ctx context.Context, url string, ids persistence.IDGenerator, opts Options) (*Store, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	if opts.SearchPath != "" {
		config.ConnConfig.RuntimeParams["search_path"] = opts.SearchPath
	}
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MaxConnLifetime > 0 {
		config.MaxConnLifetime = opts.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping database: %v", persistence.ErrUnavailable, err)
	}

	if ids == nil {
		ids = idgen.UUID{}
	}
	return &Store{pool: pool, ids: ids, schemas: make(map[persistence.Table]persistence.Schema)}, nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks that the server answers.
func (s *Store) Ping(ctx context.Context) error {
	return mapError(s.pool.Ping(ctx))
}

// Provision creates absent tables and adds missing columns.
func (s *Store) Provision(ctx context.Context, schemas ...persistence.Schema) error {
	for _, schema := range schemas {
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			table := ident(string(schema.Table))

			defs := []string{"seq BIGSERIAL PRIMARY KEY", "id TEXT NOT NULL UNIQUE"}
			for _, column := range schema.Columns {
				defs = append(defs, ident(column)+" TEXT NOT NULL DEFAULT ''")
			}
			if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))); err != nil {
				return err
			}
			for _, column := range schema.Columns {
				alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s TEXT NOT NULL DEFAULT ''", table, ident(column))
				if _, err := tx.Exec(ctx, alter); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("provision %s: %w", schema.Table, mapError(err))
		}
		s.register(schema)
	}
	return nil
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

	selected := []string{"id"}
	for _, column := range schema.Columns {
		selected = append(selected, ident(column))
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY seq", strings.Join(selected, ", "), ident(string(table)))

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []persistence.Row{}
	for rows.Next() {
		values := make([]string, len(selected))
		dest := make([]any, len(selected))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, mapError(err)
		}
		row := make(persistence.Row, len(selected))
		row[persistence.ColumnID] = values[0]
		for i, column := range schema.Columns {
			row[column] = values[i+1]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
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
	placeholders := []string{"$1"}
	args := []any{id}
	for i, column := range schema.Columns {
		columns = append(columns, ident(column))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, row[column])
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ident(string(table)), strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	if _, err := s.pool.Exec(ctx, q, args...); err != nil {
		return "", mapError(err)
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

	sets := []string{"id = id"}
	args := make([]any, 0, len(columns)+1)
	for i, column := range columns {
		sets = append(sets, fmt.Sprintf("%s = $%d", ident(column), i+1))
		args = append(args, patch[column])
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", ident(string(table)), strings.Join(sets, ", "), len(args))

	return s.execAffecting(ctx, q, args...)
}

// DeleteRow removes the row carrying id.
func (s *Store) DeleteRow(ctx context.Context, table persistence.Table, id string) error {
	if _, err := s.schema(table); err != nil {
		return err
	}
	return s.execAffecting(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", ident(string(table))), id)
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

	tag, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = $1", ident(string(table)), ident(column)), value)
	if err != nil {
		return 0, mapError(err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) execAffecting(ctx context.Context, q string, args ...any) error {
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrRowNotFound
	}
	return nil
}

// mapError turns server errors into persistence sentinels. Anything that is not
// a server-side error means the pool could not reach the database.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUndefinedTable:
			return fmt.Errorf("%w: %v", persistence.ErrTableNotFound, err)
		case codeUndefinedColumn:
			return fmt.Errorf("%w: %v", persistence.ErrUnknownColumn, err)
		}
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", persistence.ErrRowNotFound, err)
	}
	return fmt.Errorf("%w: %v", persistence.ErrUnavailable, err)
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
