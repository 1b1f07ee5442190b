package elasticsearch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraes "github.com/jonesrussell/north-cloud/categorizer/infrastructure/elasticsearch"
	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/infrastructure/retry"
)

func TestNewClient_RetriesPing(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client, err := infraes.NewClient(context.Background(), infraes.Config{
		URL:        srv.URL,
		MaxRetries: 1,
		Retry: &retry.Config{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			IsRetryable:  func(error) bool { return true },
		},
	}, infralogger.NewNop())

	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}
