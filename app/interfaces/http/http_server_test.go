package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"menlo.ai/query-cache/app/domain/cron"
	"menlo.ai/query-cache/app/domain/query"
	"menlo.ai/query-cache/app/domain/querycache"
	"menlo.ai/query-cache/app/infrastructure/cache"
	v1 "menlo.ai/query-cache/app/interfaces/http/routes/v1"
	"menlo.ai/query-cache/app/interfaces/http/routes/v1/admin"
	"menlo.ai/query-cache/config/environment_variables"
)

const testToken = "secret-token"

func newTestServer(t *testing.T) (*HttpServer, *querycache.QueryHandler) {
	t.Helper()
	previous := environment_variables.EnvironmentVariables.ADMIN_API_TOKEN
	environment_variables.EnvironmentVariables.ADMIN_API_TOKEN = testToken
	t.Cleanup(func() { environment_variables.EnvironmentVariables.ADMIN_API_TOKEN = previous })

	backend, err := cache.NewMemoryBackend(100)
	require.NoError(t, err)
	handler := querycache.NewQueryHandler(backend.Store, backend.Tags, querycache.DefaultConfig())
	cronService := &cron.CronService{Sweeper: backend.Sweeper, Lock: backend.SweepLock}
	route := v1.NewV1Route(admin.NewCacheRoute(handler, backend, cronService))
	return NewHttpServer(route, handler), handler
}

func populate(t *testing.T, handler *querycache.QueryHandler, table string) {
	t.Helper()
	var rows []int
	desc := query.Read(table).SQL("SELECT id FROM " + table).Build()
	require.NoError(t, handler.CacheQuery(t.Context(), desc, querycache.Pending{}, &rows, func(ctx context.Context) error {
		rows = []int{1}
		return nil
	}))
}

func do(server *HttpServer, method, path, token string, body any) *httptest.ResponseRecorder {
	var payload bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&payload).Encode(body)
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthCheckAndMetrics(t *testing.T) {
	server, handler := newTestServer(t)
	populate(t, handler, "orders")

	w := do(server, http.MethodGet, "/health-check", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"ok"`, w.Body.String())

	w = do(server, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "querycache_lookups_total")
}

func TestInvalidateCache(t *testing.T) {
	server, handler := newTestServer(t)
	populate(t, handler, "orders")
	populate(t, handler, "users")

	w := do(server, http.MethodPost, "/v1/admin/cache/invalidate", testToken, admin.CacheInvalidateRequest{Tables: []string{"orders"}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp admin.CacheInvalidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Removed)
	assert.Equal(t, []string{"orders"}, resp.Tables)

	w = do(server, http.MethodPost, "/v1/admin/cache/invalidate", testToken, admin.CacheInvalidateRequest{All: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, handler.InvalidateTables(t.Context(), "users"))
}

func TestInvalidateCache_Rejects(t *testing.T) {
	server, _ := newTestServer(t)

	w := do(server, http.MethodPost, "/v1/admin/cache/invalidate", "", admin.CacheInvalidateRequest{Tables: []string{"orders"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(server, http.MethodPost, "/v1/admin/cache/invalidate", "wrong", admin.CacheInvalidateRequest{Tables: []string{"orders"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(server, http.MethodPost, "/v1/admin/cache/invalidate", testToken, admin.CacheInvalidateRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSweepCache(t *testing.T) {
	server, handler := newTestServer(t)
	populate(t, handler, "orders")

	w := do(server, http.MethodPost, "/v1/admin/cache/sweep", testToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp admin.CacheSweepResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cache.sweep", resp.Object)
	assert.Equal(t, 0, resp.Removed)
}
