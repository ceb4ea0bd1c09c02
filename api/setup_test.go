package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"forrflow/internal/config"
	"forrflow/internal/logger"
	"forrflow/internal/process"
	"forrflow/internal/worker/tasks"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type nopQueue struct{}

func (nopQueue) EnqueueForrHandle(tasks.ForrHandlePayload) error              { return nil }
func (nopQueue) EnqueueForrCheck(tasks.ForrCheckPayload, time.Duration) error { return nil }
func (nopQueue) EnqueueStartCommand(tasks.StartCommandPayload) error          { return nil }
func (nopQueue) Close() error                                                 { return nil }

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Cleanup(func() { logger.Replace(zap.NewNop()) })
	logger.Replace(zaptest.NewLogger(t))

	dsn := fmt.Sprintf("file:api_setup_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(process.AllModels()...))

	cfg := config.Default()
	container := &AppContainer{DB: db, Config: cfg, QueueClient: nopQueue{}}
	container.initCoreServices(db, cfg)
	router := SetupRouter(container)
	t.Cleanup(container.Close)
	return router
}

func TestSetupRouterSystemEndpoints(t *testing.T) {
	router := setupTestRouter(t)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestSetupRouterForrRoutes(t *testing.T) {
	router := setupTestRouter(t)

	body := []byte(`{"parameters": {"listParameters": [{"name": "x", "value": "1,2", "separator": ","}]}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/forr/preview", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/forr/tasks/1/sub-instances", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRouterServesSwaggerDoc(t *testing.T) {
	router := setupTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Swagger string                    `json:"swagger"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "2.0", doc.Swagger)
	for _, route := range []string{"/api/forr/preview", "/api/forr/tasks/{id}/run", "/api/forr/tasks/{id}/sub-instances", "/api/forr/tasks/{id}/kill"} {
		assert.Contains(t, doc.Paths, route)
	}
	assert.Contains(t, doc.Paths["/api/forr/tasks/{id}/run"]["post"], "responses")
}

func TestCORSPreflightAnyOrigin(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/forr/preview", nil)
	req.Header.Set("Origin", "https://console.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "X-Request-ID, X-Trace-ID", w.Header().Get("Access-Control-Expose-Headers"))
}

func TestCORSAllowList(t *testing.T) {
	t.Setenv("CORS_ALLOW_ORIGINS", "https://console.example.com")
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://console.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://console.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/forr/preview", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNormalizeRedisConfig(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6380")

	resolved := normalizeRedisConfig(config.RedisConfig{})
	assert.Equal(t, "redis.internal", resolved.Host)
	assert.Equal(t, 6380, resolved.Port)
	assert.Equal(t, 10, resolved.PoolSize)

	explicit := normalizeRedisConfig(config.RedisConfig{Host: " cache ", Port: 7000, PoolSize: 3})
	assert.Equal(t, "cache", explicit.Host)
	assert.Equal(t, 7000, explicit.Port)
	assert.Equal(t, 3, explicit.PoolSize)
}
