//go:build wireinject

package main

import (
	"github.com/google/wire"
	"menlo.ai/query-cache/app/domain"
	"menlo.ai/query-cache/app/infrastructure"
	"menlo.ai/query-cache/app/interfaces/http"
	"menlo.ai/query-cache/app/interfaces/http/routes"
)

func CreateApplication() (*Application, error) {
	wire.Build(
		infrastructure.InfrastructureProvider,
		domain.ServiceProvider,
		routes.RouteProvider,
		http.NewHttpServer,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil
}
