package infrastructure

import (
	"github.com/google/wire"
	"menlo.ai/query-cache/app/domain/cron"
	"menlo.ai/query-cache/app/infrastructure/cache"
	"menlo.ai/query-cache/app/infrastructure/database"
)

var InfrastructureProvider = wire.NewSet(
	cache.NewBackend,
	wire.FieldsOf(new(*cache.Backend), "Store", "Tags", "Sweeper"),
	cache.NewQueryCacheConfig,
	ProvideSweepLock,
	database.NewDB,
)

func ProvideSweepLock(backend *cache.Backend) cron.SweepLock {
	return backend.SweepLock
}
