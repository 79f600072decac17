package querycache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"menlo.ai/query-cache/app/domain/query"
)

func TestResolve_ReadIncludesJoinsAndNestedSubqueries(t *testing.T) {
	inner := query.Read("banned_users").Build()
	middle := query.Read("users").Subquery(inner).Build()
	desc := query.Read(`"public"."Orders"`).
		Join("order_items oi").
		Subquery(middle).
		Reference("`products`").
		Build()

	tables, err := NewTableResolver().Resolve(desc)
	require.NoError(t, err)
	assert.Equal(t, []string{"banned_users", "order_items", "orders", "products", "users"}, tables)
}

func TestResolve_WriteIncludesPredicateTables(t *testing.T) {
	sub := query.NewDescriptor(query.OperationRead, "users").Build()
	desc := query.NewDescriptor(query.OperationDelete, "orders").
		Subquery(sub).
		Join("ignored_for_writes").
		Build()

	tables, err := NewTableResolver().Resolve(desc)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, tables)
}

func TestResolve_TruncateOnlyTarget(t *testing.T) {
	desc := query.NewDescriptor(query.OperationTruncate, "orders").Reference("users").Build()
	tables, err := NewTableResolver().Resolve(desc)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, tables)

	raw := query.NewDescriptor(query.OperationTruncate, "").Reference("", "Orders").Build()
	tables, err = NewTableResolver().Resolve(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, tables)
}

func TestResolve_Errors(t *testing.T) {
	r := NewTableResolver()
	for name, desc := range map[string]*query.Descriptor{
		"nil":            nil,
		"write no table": query.NewDescriptor(query.OperationUpdate, "").Reference("users").Build(),
		"read no table":  query.Read("").Build(),
		"unknown op":     query.NewDescriptor("merge", "orders").Build(),
		"truncate blank": query.NewDescriptor(query.OperationTruncate, " ").Build(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(desc)
			require.Error(t, err)
			var re *ResolutionError
			assert.ErrorAs(t, err, &re)
			assert.ErrorIs(t, err, ErrResolution)
		})
	}
}

func TestResolve_InsertGetIDBehavesLikeInsert(t *testing.T) {
	tables, err := NewTableResolver().Resolve(query.NewDescriptor(query.OperationInsertGetID, "orders").Build())
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, tables)
}

func TestNormalizeTable(t *testing.T) {
	assert.Equal(t, "orders", NormalizeTable(`"public"."orders" AS o`))
	assert.Equal(t, "orders", NormalizeTable("[dbo].[Orders]"))
	assert.Equal(t, "orders", NormalizeTable("orders o"))
	assert.Equal(t, "", NormalizeTable("   "))
}
