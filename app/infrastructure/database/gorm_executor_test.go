package database

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"menlo.ai/query-cache/app/domain/query"
	"menlo.ai/query-cache/app/domain/querycache"
	"menlo.ai/query-cache/app/infrastructure/cache"
	"menlo.ai/query-cache/config/environment_variables"
)

type product struct {
	ID    uint
	Name  string
	Price int
}

func setupExecutor(t *testing.T) (*gorm.DB, *querycache.CachingExecutor) {
	t.Helper()
	backend, err := cache.NewMemoryBackend(100)
	require.NoError(t, err)
	handler := querycache.NewQueryHandler(backend.Store, backend.Tags, querycache.DefaultConfig())

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&product{}))
	require.NoError(t, Install(db, handler))
	require.NoError(t, db.Create(&product{ID: 1, Name: "widget", Price: 10}).Error)

	return db, querycache.NewCachingExecutor(NewGormExecutor(db), handler)
}

func productsRead() *query.Descriptor {
	return query.Read("products").SQL("SELECT id, name, price FROM products ORDER BY id").Build()
}

func TestGormExecutor_ReadThroughCache(t *testing.T) {
	ctx := context.Background()
	db, executor := setupExecutor(t)

	var products []product
	require.NoError(t, executor.ExecuteRead(ctx, productsRead(), &products))
	require.Len(t, products, 1)

	require.NoError(t, NewGormExecutor(db).session(ctx).Exec("UPDATE products SET price = 99").Error)
	products = nil
	require.NoError(t, executor.ExecuteRead(ctx, productsRead(), &products))
	assert.Equal(t, 10, products[0].Price)

	products = nil
	require.NoError(t, executor.NoCache().ExecuteRead(ctx, productsRead(), &products))
	assert.Equal(t, 99, products[0].Price)
}

func TestGormExecutor_WriteInvalidates(t *testing.T) {
	ctx := context.Background()
	_, executor := setupExecutor(t)

	var products []product
	require.NoError(t, executor.ExecuteRead(ctx, productsRead(), &products))
	require.Len(t, products, 1)

	affected, err := executor.ExecuteWrite(ctx, query.NewDescriptor(query.OperationInsert, "products").
		SQL("INSERT INTO products (id, name, price) VALUES (?, ?, ?)", 2, "gadget", 20).
		Build())
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	products = nil
	require.NoError(t, executor.ExecuteRead(ctx, productsRead(), &products))
	assert.Len(t, products, 2)
}

func TestGormExecutor_StatementsBypassPlugin(t *testing.T) {
	ctx := context.Background()
	db, executor := setupExecutor(t)

	var products []product
	require.NoError(t, executor.ExecuteRead(ctx, productsRead(), &products))

	_, err := NewGormExecutor(db).ExecuteWrite(ctx, query.NewDescriptor(query.OperationUpdate, "products").
		SQL("UPDATE products SET name = ?", "renamed").
		Build())
	require.NoError(t, err)

	products = nil
	require.NoError(t, executor.ExecuteRead(ctx, productsRead(), &products))
	assert.Equal(t, "widget", products[0].Name)
}

func TestNewDB_WithoutPrimaryRunsAsSidecar(t *testing.T) {
	previous := environment_variables.EnvironmentVariables.DB_POSTGRESQL_WRITE_DSN
	environment_variables.EnvironmentVariables.DB_POSTGRESQL_WRITE_DSN = ""
	t.Cleanup(func() { environment_variables.EnvironmentVariables.DB_POSTGRESQL_WRITE_DSN = previous })

	backend := cache.NewNoOpBackend()
	db, err := NewDB(querycache.NewQueryHandler(backend.Store, backend.Tags, querycache.DefaultConfig()))
	require.NoError(t, err)
	assert.Nil(t, db)
}
