package bootstrap

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/categorizer/infrastructure/circuitbreaker"
	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/config"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
	"github.com/jonesrussell/north-cloud/categorizer/internal/telemetry"
	"github.com/jonesrussell/north-cloud/categorizer/internal/testhelpers"
)

func TestGuardSink_OpensAndReportsCircuit(t *testing.T) {
	cfg := config.Default()
	cfg.Processing.SinkFailures = 2
	tel := telemetry.NewIsolatedProvider()
	inner := &testhelpers.MemorySink{FailTimes: 10, Err: errors.New("connection refused")}

	sink := guardSink(inner, cfg, tel, infralogger.NewNop())
	record := &domain.Record{RequestID: "r-1"}
	for range 2 {
		require.Error(t, sink.Persist(context.Background(), record))
	}
	require.ErrorIs(t, sink.Persist(context.Background(), record), circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, 2, inner.Calls())

	rec := httptest.NewRecorder()
	tel.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `categorizer_sink_circuit_open{sink="memory"} 1`)
}
