package query

import "slices"

// Descriptor is the structured shape of one statement as seen by the cache.
// Descriptors are built once per statement and never modified afterwards.
type Descriptor struct {
	Operation Operation
	// Table is the primary target: the FROM table of a read, the written table of a write.
	Table string
	// Joins lists tables joined into a read.
	Joins []string
	// Subqueries are nested reads appearing in predicates or join conditions.
	Subqueries []*Descriptor
	// Referenced lists tables named in raw SQL fragments that the builder could not attribute.
	Referenced []string
	SQL        string
	Bindings   []any
}

type DescriptorBuilder struct {
	d Descriptor
}

func NewDescriptor(op Operation, table string) *DescriptorBuilder {
	return &DescriptorBuilder{d: Descriptor{Operation: op, Table: table}}
}

func Read(table string) *DescriptorBuilder {
	return NewDescriptor(OperationRead, table)
}

func (b *DescriptorBuilder) Join(tables ...string) *DescriptorBuilder {
	b.d.Joins = append(b.d.Joins, tables...)
	return b
}

func (b *DescriptorBuilder) Subquery(sub *Descriptor) *DescriptorBuilder {
	if sub != nil {
		b.d.Subqueries = append(b.d.Subqueries, sub)
	}
	return b
}

func (b *DescriptorBuilder) Reference(tables ...string) *DescriptorBuilder {
	b.d.Referenced = append(b.d.Referenced, tables...)
	return b
}

func (b *DescriptorBuilder) SQL(sql string, bindings ...any) *DescriptorBuilder {
	b.d.SQL = sql
	b.d.Bindings = bindings
	return b
}

// Build returns a copy so later builder calls cannot reach the returned descriptor.
func (b *DescriptorBuilder) Build() *Descriptor {
	d := b.d
	d.Joins = slices.Clone(b.d.Joins)
	d.Subqueries = slices.Clone(b.d.Subqueries)
	d.Referenced = slices.Clone(b.d.Referenced)
	d.Bindings = slices.Clone(b.d.Bindings)
	return &d
}
