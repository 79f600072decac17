package querycacheplugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"menlo.ai/query-cache/app/domain/query"
)

func TestSubqueries(t *testing.T) {
	db, _ := setupDB(t)

	inner := db.Model(&Order{}).Select("user_id").Where("status = ?", "pending")
	sub := db.Model(&User{}).Select("id").Where("id IN (?)", inner)
	stmt := db.Model(&Order{}).Where("user_id IN (?)", sub).Or("id = ?", 1).Statement

	subs := subqueries(stmt)
	require.Len(t, subs, 1)
	assert.Equal(t, query.OperationRead, subs[0].Operation)
	assert.Equal(t, "users", subs[0].Table)
	require.Len(t, subs[0].Subqueries, 1)
	assert.Equal(t, "orders", subs[0].Subqueries[0].Table)
}

func TestDescribe_Write(t *testing.T) {
	db, _ := setupDB(t)

	sub := db.Model(&User{}).Select("id").Where("name = ?", "ann")
	tx := db.Session(&gorm.Session{DryRun: true}).
		Model(&Order{}).
		Where("user_id IN (?)", sub).
		Update("status", "shipped")
	require.NoError(t, tx.Error)

	desc := describe(tx, query.OperationUpdate, false)
	assert.Equal(t, "orders", desc.Table)
	assert.Contains(t, desc.Referenced, "`users`")
	require.Len(t, desc.Subqueries, 1)
	assert.Equal(t, "users", desc.Subqueries[0].Table)
	assert.NotEmpty(t, desc.SQL)
}

func TestDescribe_RawUsesScannedTable(t *testing.T) {
	db, _ := setupDB(t)

	tx := db.Session(&gorm.Session{DryRun: true}).Exec("TRUNCATE TABLE archive")
	desc := describe(tx, query.OperationTruncate, true)
	assert.Equal(t, "archive", desc.Table)
}

func TestDescribe_AliasedTable(t *testing.T) {
	db, _ := setupDB(t)

	var orders []Order
	tx := db.Session(&gorm.Session{DryRun: true}).Table("orders o").Where("o.user_id = ?", 5).Find(&orders)
	desc := describe(tx, query.OperationRead, false)
	assert.Equal(t, "orders", desc.Table)
}
