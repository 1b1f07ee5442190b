package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/testhelpers"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	original, err := os.ReadFile(testhelpers.ConfigPath(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "categories.yml")
	require.NoError(t, os.WriteFile(path, original, 0o600))

	store := testhelpers.Store(t)
	w := catalog.NewWatcher(store, path, nil, nil).WithDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Start(ctx), "second start is a no-op")

	updated := strings.Replace(string(original), `version: "2026.10.1"`, `version: "2026.10.2"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	assert.Eventually(t, func() bool {
		return store.Current().Version == "2026.10.2"
	}, 5*time.Second, 20*time.Millisecond)

	// A broken file leaves the last good snapshot in place.
	require.NoError(t, os.WriteFile(path, []byte("categories: [unterminated"), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, "2026.10.2", store.Current().Version)

	w.Stop()
	w.Stop()
}
