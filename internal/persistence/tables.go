package persistence

import "fmt"

// Table names a provisioned table.
type Table string

const (
	TableResources    Table = "resources"
	TableReservations Table = "reservations"
	TableMembers      Table = "members"
)

// ColumnID is the generated primary key present on every table.
const ColumnID = "id"

// Row is a record addressed by column name. Every value is stored as text.
type Row map[string]string

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Schema describes the columns of one table. Columns excludes the id column.
type Schema struct {
	Table    Table
	IDPrefix string
	Columns  []string
}

// HasColumn reports whether the column belongs to the schema, id included.
func (s Schema) HasColumn(column string) bool {
	if column == ColumnID {
		return true
	}
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// CheckRow rejects rows naming columns outside the schema. The id column is
// tolerated on appends and ignored by every backend.
func (s Schema) CheckRow(row Row) error {
	for column := range row {
		if !s.HasColumn(column) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, s.Table, column)
		}
	}
	return nil
}

// CheckPatch is CheckRow plus the id immutability rule.
func (s Schema) CheckPatch(patch Row) error {
	if _, ok := patch[ColumnID]; ok {
		return fmt.Errorf("%w: %s", ErrImmutableColumn, s.Table)
	}
	return s.CheckRow(patch)
}

// ResourcesSchema lists bookable rooms and tracked projects.
var ResourcesSchema = Schema{
	Table:    TableResources,
	IDPrefix: "RES",
	Columns:  []string{"name", "description", "kind", "created_at"},
}

// ReservationsSchema holds both time-slot bookings and project tasks.
var ReservationsSchema = Schema{
	Table:    TableReservations,
	IDPrefix: "BKG",
	Columns: []string{
		"kind",
		"resource_name",
		"owner_email",
		"owner_name",
		"title",
		"description",
		"assignee",
		"priority",
		"date",
		"start_time",
		"end_time",
		"due_date",
		"status",
		"created_at",
	},
}

// MembersSchema maps project team members to their email addresses.
var MembersSchema = Schema{
	Table:    TableMembers,
	IDPrefix: "MEM",
	Columns:  []string{"resource_name", "name", "email"},
}

// DefaultSchemas returns every table the reservation desk relies on.
func DefaultSchemas() []Schema {
	return []Schema{ResourcesSchema, ReservationsSchema, MembersSchema}
}
