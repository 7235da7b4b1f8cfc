package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Check(t *testing.T) {
	r := NewRegistry("bloomlab")
	r.Register("ok", func(context.Context) error { return nil })
	r.Register("broken", func(context.Context) error { return errors.New("down") })

	report := r.Check(context.Background())
	assert.False(t, report.Healthy)
	require.Len(t, report.Checks, 2)
	assert.Equal(t, "ok", report.Checks[0].Name)
	assert.True(t, report.Checks[0].Healthy)
	assert.Equal(t, "down", report.Checks[1].Error)

	r.Register("broken", func(context.Context) error { return nil })
	report = r.Check(context.Background())
	assert.True(t, report.Healthy)
	assert.Len(t, report.Checks, 2)
}

func TestRegistry_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	n := 0
	r := NewRegistry("bloomlab")
	r.Register("sessions", CapacityChecker(func() int { return n }, 2))

	engine := gin.New()
	engine.GET("/healthz", r.Handler())

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	n = 2
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "bloomlab", report.Service)
	assert.Contains(t, report.Checks[0].Error, "2/2")
}

func TestRedisChecker(t *testing.T) {
	assert.Error(t, RedisChecker(nil)(context.Background()))

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	assert.Error(t, RedisChecker(client)(context.Background()))
}
