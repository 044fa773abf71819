package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/weather-line-bot/internal/metrics"
)

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	// Two instances in one process must not collide on registration.
	assert.NotPanics(t, func() {
		metrics.NewMetrics("a")
		metrics.NewMetrics("a")
	})
}

func TestHTTPMiddleware_CountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.NewMetrics("test")

	router := gin.New()
	router.Use(m.HTTPMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/ping", "4xx")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsInFlight))
}

func TestRecordRabbitPublish(t *testing.T) {
	m := metrics.NewMetrics("test")

	m.RecordRabbitPublish("push", nil)
	m.RecordRabbitPublish("push", errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RabbitPublishTotal.WithLabelValues("push", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RabbitPublishTotal.WithLabelValues("push", "error")))
}

func TestHandler_ServesRegistry(t *testing.T) {
	m := metrics.NewMetrics("botns")
	m.SubscriptionsStored.Inc()

	c := metrics.NewPromCollector("botns", m.Registerer())
	c.ObserveLatency("cache_get", time.Millisecond)
	c.IncrementCounter("cache_get_hits", "weather:current:Tokyo")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "botns_subscriptions_stored_total 1")
	assert.Contains(t, rec.Body.String(), `botns_cache_operations_total{operation="cache_get_hits"} 1`)
}
