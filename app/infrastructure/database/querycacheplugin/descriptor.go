package querycacheplugin

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"menlo.ai/query-cache/app/domain/query"
)

// describe builds the descriptor of a statement whose SQL has already been rendered.
// raw marks statements whose SQL came from the caller rather than the clause builder;
// for those the model's table says nothing about what the SQL touches.
func describe(db *gorm.DB, op query.Operation, raw bool) *query.Descriptor {
	stmt := db.Statement
	sql := stmt.SQL.String()
	referenced := ScanTables(sql)

	b := query.NewDescriptor(op, primaryTable(stmt, raw, referenced)).
		SQL(sql, stmt.Vars...).
		Reference(referenced...).
		Reference(extraTables(db)...)
	if !raw {
		b.Join(relationJoins(stmt)...)
		for _, sub := range subqueries(stmt) {
			b.Subquery(sub)
		}
	}
	return b.Build()
}

func primaryTable(stmt *gorm.Statement, raw bool, referenced []string) string {
	aliased := stmt.TableExpr != nil && strings.ContainsAny(stmt.TableExpr.SQL, " (")
	if !raw && !aliased && stmt.Table != "" {
		return stmt.Table
	}
	if len(referenced) > 0 {
		return referenced[0]
	}
	return ""
}

// relationJoins maps Joins("Relation") names to the related model's table. Raw join
// strings are left to the scanner.
func relationJoins(stmt *gorm.Statement) []string {
	if stmt.Schema == nil {
		return nil
	}
	var tables []string
	for _, join := range stmt.Joins {
		if rel, ok := stmt.Schema.Relationships.Relations[join.Name]; ok && rel.FieldSchema != nil {
			tables = append(tables, rel.FieldSchema.Table)
		}
	}
	return tables
}

// subqueries finds *gorm.DB values nested in the WHERE clause and the table expression.
func subqueries(stmt *gorm.Statement) []*query.Descriptor {
	var subs []*query.Descriptor
	var visit func(v any)
	visitAll := func(values []any) {
		for _, v := range values {
			visit(v)
		}
	}
	visitExprs := func(exprs []clause.Expression) {
		for _, e := range exprs {
			visit(e)
		}
	}
	visit = func(v any) {
		switch e := v.(type) {
		case *gorm.DB:
			subs = append(subs, describeSubquery(e))
		case clause.Where:
			visitExprs(e.Exprs)
		case clause.Expr:
			visitAll(e.Vars)
		case *clause.Expr:
			visitAll(e.Vars)
		case clause.NamedExpr:
			visitAll(e.Vars)
		case clause.IN:
			visitAll(e.Values)
		case clause.Eq:
			visit(e.Value)
		case clause.Neq:
			visit(e.Value)
		case clause.Gt:
			visit(e.Value)
		case clause.Gte:
			visit(e.Value)
		case clause.Lt:
			visit(e.Value)
		case clause.Lte:
			visit(e.Value)
		case clause.AndConditions:
			visitExprs(e.Exprs)
		case clause.OrConditions:
			visitExprs(e.Exprs)
		case clause.NotConditions:
			visitExprs(e.Exprs)
		case []any:
			visitAll(e)
		}
	}

	if c, ok := stmt.Clauses["WHERE"]; ok {
		visit(c.Expression)
	}
	if stmt.TableExpr != nil {
		visit(stmt.TableExpr)
	}
	return subs
}

func describeSubquery(sub *gorm.DB) *query.Descriptor {
	stmt := sub.Statement
	table := stmt.Table
	if table == "" && stmt.Model != nil {
		// Parse into a scratch statement; sub may be shared with other goroutines.
		scratch := &gorm.Statement{DB: sub}
		if err := scratch.Parse(stmt.Model); err == nil {
			table = scratch.Table
		}
	}

	b := query.Read(table).Join(relationJoins(stmt)...)
	if stmt.TableExpr != nil {
		b.Reference(ScanTables("FROM " + stmt.TableExpr.SQL)...)
	}
	if stmt.SQL.Len() > 0 {
		b.Reference(ScanTables(stmt.SQL.String())...)
	}
	for _, nested := range subqueries(stmt) {
		b.Subquery(nested)
	}
	return b.Build()
}
