// Package query constructs SQL queries through a fluent builder with
// automatic parameter numbering and field-to-column projection.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap binds logical field names to table columns so builders
// and filters can reference fields without knowing the schema.
type ProjectionMap struct {
	schema string
	table  string
	alias  string
	order  []string
	fields map[string]string
}

// NewProjectionMap creates a projection for the given schema-qualified
// table with a column alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema: schema,
		table:  table,
		alias:  alias,
		fields: make(map[string]string),
	}
}

// Project registers a column under a logical field name and returns
// the map for chaining.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	if _, exists := p.fields[field]; !exists {
		p.order = append(p.order, field)
	}
	p.fields[field] = column
	return p
}

// Table returns the aliased table reference for FROM clauses.
func (p *ProjectionMap) Table() string {
	return fmt.Sprintf("%s.%s %s", p.schema, p.table, p.alias)
}

// Column returns the alias-qualified column for a logical field.
// Unknown fields panic: they indicate a programming error, not input.
func (p *ProjectionMap) Column(field string) string {
	col, ok := p.fields[field]
	if !ok {
		panic(fmt.Sprintf("query: unknown field %q for table %s", field, p.table))
	}
	return fmt.Sprintf("%s.%s", p.alias, col)
}

// Columns returns the full projection list for SELECT clauses,
// in registration order.
func (p *ProjectionMap) Columns() string {
	cols := make([]string, len(p.order))
	for i, field := range p.order {
		cols[i] = p.Column(field)
	}
	return strings.Join(cols, ", ")
}

// Has reports whether the projection contains the logical field.
func (p *ProjectionMap) Has(field string) bool {
	_, ok := p.fields[field]
	return ok
}
