package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"menlo.ai/query-cache/app/domain/cron"
	"menlo.ai/query-cache/app/domain/querycache"
	"menlo.ai/query-cache/app/infrastructure/cache"
	"menlo.ai/query-cache/app/interfaces/http/middleware"
	"menlo.ai/query-cache/app/interfaces/http/responses"
	"menlo.ai/query-cache/app/utils/logger"
)

// CacheRoute exposes administrative cache operations.
type CacheRoute struct {
	handler     *querycache.QueryHandler
	backend     *cache.Backend
	cronService *cron.CronService
}

// NewCacheRoute constructs a CacheRoute instance.
func NewCacheRoute(handler *querycache.QueryHandler, backend *cache.Backend, cronService *cron.CronService) *CacheRoute {
	return &CacheRoute{
		handler:     handler,
		backend:     backend,
		cronService: cronService,
	}
}

// RegisterRouter wires the administrative cache endpoints.
func (route *CacheRoute) RegisterRouter(router gin.IRouter) {
	adminRouter := router.Group("/admin", middleware.AdminTokenMiddleware())

	adminRouter.POST("/cache/invalidate", route.InvalidateCache)
	adminRouter.POST("/cache/sweep", route.SweepCache)
}

type CacheInvalidateRequest struct {
	Tables []string `json:"tables"`
	// All drops every entry and tag bucket instead of invalidating tables.
	All bool `json:"all"`
}

// CacheInvalidateResponse represents the result of a cache invalidation request.
type CacheInvalidateResponse struct {
	Object  string   `json:"object"`
	Status  string   `json:"status"`
	Tables  []string `json:"tables,omitempty"`
	Removed int      `json:"removed"`
}

// InvalidateCache godoc
// @Summary     Invalidate cached query results
// @Description Removes every cached result read from the given tables, or everything when all is set.
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CacheInvalidateRequest true "tables to invalidate"
// @Success     200 {object} CacheInvalidateResponse
// @Failure     400 {object} responses.ErrorResponse
// @Failure     401 {object} responses.ErrorResponse
// @Failure     500 {object} responses.ErrorResponse
// @Router      /v1/admin/cache/invalidate [post]
func (route *CacheRoute) InvalidateCache(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()

	var req CacheInvalidateRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		reqCtx.AbortWithStatusJSON(http.StatusBadRequest, responses.ErrorResponse{
			Code:  "4e2d8a91-6b3f-4c07-a5d1-9f0e7c2b8a64",
			Error: err.Error(),
		})
		return
	}

	if req.All {
		if err := route.backend.FlushAll(ctx); err != nil {
			logger.GetLogger().Errorf("admin cache: failed to flush cache: %v", err)
			reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{
				Code:  "b0c4f1c8-2a3b-4ad4-8b1d-7a2124d7c7b1",
				Error: "failed to invalidate cache",
			})
			return
		}
		reqCtx.JSON(http.StatusOK, CacheInvalidateResponse{
			Object: "cache.invalidation",
			Status: "ok",
		})
		return
	}

	if len(req.Tables) == 0 {
		reqCtx.AbortWithStatusJSON(http.StatusBadRequest, responses.ErrorResponse{
			Code:  "c3a7f0d2-1e85-4b96-8d4c-5a2f9e6b0d17",
			Error: "tables is required unless all is set",
		})
		return
	}

	removed := route.handler.InvalidateTables(ctx, req.Tables...)
	reqCtx.JSON(http.StatusOK, CacheInvalidateResponse{
		Object:  "cache.invalidation",
		Status:  "ok",
		Tables:  req.Tables,
		Removed: removed,
	})
}

// CacheSweepResponse reports how many stale tag members a sweep removed.
type CacheSweepResponse struct {
	Object  string `json:"object"`
	Status  string `json:"status"`
	Removed int    `json:"removed"`
}

// SweepCache godoc
// @Summary     Sweep the tag index
// @Description Drops tag members whose cached entries have expired or been evicted.
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} CacheSweepResponse
// @Failure     401 {object} responses.ErrorResponse
// @Failure     500 {object} responses.ErrorResponse
// @Router      /v1/admin/cache/sweep [post]
func (route *CacheRoute) SweepCache(reqCtx *gin.Context) {
	removed, err := route.cronService.Sweep(reqCtx.Request.Context())
	if err != nil {
		logger.GetLogger().Errorf("admin cache: failed to sweep tag index: %v", err)
		reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{
			Code:  "7d5e1b3a-f920-4c68-b0a4-3e8c6d1f2a95",
			Error: "failed to sweep tag index",
		})
		return
	}
	reqCtx.JSON(http.StatusOK, CacheSweepResponse{
		Object:  "cache.sweep",
		Status:  "ok",
		Removed: removed,
	})
}
