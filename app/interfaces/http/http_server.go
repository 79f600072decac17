package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"menlo.ai/query-cache/app/domain/querycache"
	"menlo.ai/query-cache/app/interfaces/http/middleware"
	v1 "menlo.ai/query-cache/app/interfaces/http/routes/v1"
	"menlo.ai/query-cache/app/utils/logger"
	"menlo.ai/query-cache/config/environment_variables"
)

type HttpServer struct {
	engine  *gin.Engine
	server  *http.Server
	v1Route *v1.V1Route
}

func NewHttpServer(v1Route *v1.V1Route, handler *querycache.QueryHandler) *HttpServer {
	gin.SetMode(gin.ReleaseMode)
	server := HttpServer{
		engine:  gin.New(),
		v1Route: v1Route,
	}
	server.engine.Use(gin.Recovery(), middleware.LoggerMiddleware(logger.GetLogger(), "/metrics", "/health-check"))
	server.engine.GET("/health-check", func(c *gin.Context) {
		if err := handler.HealthCheck(c.Request.Context()); err != nil {
			// The cache fails open, so a down store degrades rather than breaks the service.
			c.JSON(http.StatusOK, gin.H{"status": "degraded", "cache": err.Error()})
			return
		}
		c.JSON(http.StatusOK, "ok")
	})
	server.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	server.v1Route.RegisterRouter(server.engine.Group("/"))
	server.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", environment_variables.EnvironmentVariables.HttpPort()),
		Handler: server.engine,
	}
	return &server
}

func (httpServer *HttpServer) Handler() http.Handler {
	return httpServer.engine
}

func (httpServer *HttpServer) Run() error {
	if err := httpServer.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (httpServer *HttpServer) Shutdown(ctx context.Context) error {
	return httpServer.server.Shutdown(ctx)
}
