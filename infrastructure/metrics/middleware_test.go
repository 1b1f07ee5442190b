package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/categorizer/infrastructure/metrics"
)

func TestHTTPMetrics_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := metrics.NewHTTPMetrics(reg, "categorizer")

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/records/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/records/a", "/records/b", "/nowhere"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `categorizer_http_requests_total{method="GET",route="/records/:id",status="404"} 2`)
	assert.Contains(t, body, `categorizer_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, body, "categorizer_http_requests_in_flight 0")
	assert.False(t, strings.Contains(body, "/records/a"), "raw paths are never used as labels")
}
