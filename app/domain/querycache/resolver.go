package querycache

import (
	"slices"
	"strings"

	"menlo.ai/query-cache/app/domain/query"
)

// TableResolver computes the tag set of a statement. Under-resolution lets stale
// reads survive writes, so every place a table can hide is walked; over-resolution
// only costs hit rate.
type TableResolver struct{}

func NewTableResolver() *TableResolver {
	return &TableResolver{}
}

// Resolve returns the sorted, distinct, normalized table names touched by desc.
func (r *TableResolver) Resolve(desc *query.Descriptor) ([]string, error) {
	if desc == nil {
		return nil, &ResolutionError{Reason: "missing descriptor"}
	}

	set := make(map[string]struct{})
	switch {
	case desc.Operation.IsRead():
		r.collectRead(desc, set)
		if len(set) == 0 {
			return nil, &ResolutionError{Operation: desc.Operation, Reason: "read references no table"}
		}
	case desc.Operation == query.OperationTruncate:
		target := NormalizeTable(desc.Table)
		if target == "" {
			for _, ref := range desc.Referenced {
				if target = NormalizeTable(ref); target != "" {
					break
				}
			}
		}
		if target == "" {
			return nil, &ResolutionError{Operation: desc.Operation, Reason: "no target table"}
		}
		set[target] = struct{}{}
	case desc.Operation.IsWrite():
		target := NormalizeTable(desc.Table)
		if target == "" {
			return nil, &ResolutionError{Operation: desc.Operation, Reason: "no target table"}
		}
		set[target] = struct{}{}
		add(set, desc.Referenced...)
		for _, sub := range desc.Subqueries {
			r.collectRead(sub, set)
		}
	default:
		return nil, &ResolutionError{Operation: desc.Operation, Reason: "unknown operation"}
	}

	tables := make([]string, 0, len(set))
	for table := range set {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	return tables, nil
}

// collectRead adds every table a nested statement reads, whatever its declared operation.
func (r *TableResolver) collectRead(desc *query.Descriptor, set map[string]struct{}) {
	if desc == nil {
		return
	}
	add(set, desc.Table)
	add(set, desc.Joins...)
	add(set, desc.Referenced...)
	for _, sub := range desc.Subqueries {
		r.collectRead(sub, set)
	}
}

func add(set map[string]struct{}, tables ...string) {
	for _, table := range tables {
		if name := NormalizeTable(table); name != "" {
			set[name] = struct{}{}
		}
	}
}

// NormalizeTable turns `"public"."Orders" AS o` into orders: quoting, schema
// qualifier and alias are dropped and the name is lower-cased.
func NormalizeTable(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if fields := strings.Fields(name); len(fields) > 0 {
		name = fields[0]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Trim(name, "\"`[]")
	return strings.ToLower(name)
}
