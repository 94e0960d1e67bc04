package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bella-notte/ordering-backend/internal/config"
	redisdb "github.com/bella-notte/ordering-backend/internal/infrastructure/database/redis"
)

type stubRedis struct {
	err  error
	pool redisdb.PoolStatus
}

func (s *stubRedis) Health(context.Context) error { return s.err }
func (s *stubRedis) Pool() redisdb.PoolStatus     { return s.pool }

func newCheckServer(health RedisHealth) *Server {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	s := &Server{
		config:    &config.Config{App: config.AppConfig{Version: "1.0.0", Environment: "test"}},
		deps:      Dependencies{RedisHealth: health, Logger: logger},
		gin:       gin.New(),
		startedAt: time.Now(),
	}
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)
	return s
}

func get(t *testing.T, s *Server, path string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestReadyFollowsRedis(t *testing.T) {
	redis := &stubRedis{}
	s := newCheckServer(redis)

	code, body := get(t, s, "/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])

	redis.err = errors.New("connection refused")
	code, body = get(t, s, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", body["status"])
}

func TestHealthReportsPoolAndDisabledDatabase(t *testing.T) {
	s := newCheckServer(&stubRedis{pool: redisdb.PoolStatus{TotalConns: 3, IdleConns: 2}})

	code, body := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "disabled", body["database"])
	pool, ok := body["redisPool"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3, pool["totalConns"])

	s.deps.RedisHealth = &stubRedis{err: errors.New("timeout")}
	code, body = get(t, s, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body["status"])
}
