package routes

import (
	"github.com/google/wire"
	v1 "menlo.ai/query-cache/app/interfaces/http/routes/v1"
	"menlo.ai/query-cache/app/interfaces/http/routes/v1/admin"
)

var RouteProvider = wire.NewSet(
	admin.NewCacheRoute,
	v1.NewV1Route,
)
