package domain

import (
	"github.com/google/wire"
	"menlo.ai/query-cache/app/domain/cron"
	"menlo.ai/query-cache/app/domain/healthcheck"
	"menlo.ai/query-cache/app/domain/querycache"
)

var ServiceProvider = wire.NewSet(
	querycache.NewQueryHandler,
	cron.NewService,
	healthcheck.NewService,
	wire.Bind(new(healthcheck.StoreChecker), new(*querycache.QueryHandler)),
)
