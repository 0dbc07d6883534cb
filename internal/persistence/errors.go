package persistence

import "errors"

var (
	// ErrTableNotFound is returned when the named table has not been provisioned.
	ErrTableNotFound = errors.New("persistence: table not found")
	// ErrRowNotFound is returned when no row carries the requested id.
	ErrRowNotFound = errors.New("persistence: row not found")
	// ErrUnknownColumn is returned when a row or patch names a column outside the table schema.
	ErrUnknownColumn = errors.New("persistence: unknown column")
	// ErrImmutableColumn is returned when a patch attempts to rewrite the id column.
	ErrImmutableColumn = errors.New("persistence: id column is immutable")
	// ErrUnavailable wraps backend failures such as a closed pool or an unreachable server.
	ErrUnavailable = errors.New("persistence: backend unavailable")
)
