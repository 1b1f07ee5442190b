package catalog_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/testhelpers"
	"github.com/jonesrussell/north-cloud/categorizer/internal/validation"
)

type recordingObserver struct {
	mu     sync.Mutex
	ok     int
	failed int
}

func (o *recordingObserver) RecordReload(_ *catalog.Snapshot, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.failed++
		return
	}
	o.ok++
}

func TestStore_ReloadSwapsSnapshot(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	store, err := catalog.NewStore(testhelpers.Configuration(t), validation.NewRegistry(), infralogger.NewNop(),
		catalog.WithReloadObserver(obs))
	require.NoError(t, err)

	first := store.Current()
	require.NotNil(t, first)
	assert.Equal(t, uint64(1), first.Generation)

	cfg := testhelpers.Configuration(t)
	cfg.Version = "next"
	cfg.Thresholds.Review = 0.9

	second, err := store.Reload(cfg)
	require.NoError(t, err)
	assert.Same(t, second, store.Current())
	assert.Equal(t, uint64(2), second.Generation)
	assert.Equal(t, 0.9, second.ReviewThreshold)

	// The earlier snapshot is untouched.
	assert.Equal(t, 0.8, first.ReviewThreshold)
	assert.Equal(t, 2, obs.ok)
}

func TestStore_InvalidReloadKeepsCurrent(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	store, err := catalog.NewStore(testhelpers.Configuration(t), validation.NewRegistry(), nil,
		catalog.WithReloadObserver(obs))
	require.NoError(t, err)
	before := store.Current()

	broken := testhelpers.Configuration(t)
	broken.Categories = nil

	_, err = store.Reload(broken)
	require.Error(t, err)
	assert.Same(t, before, store.Current())

	_, err = store.ReloadFrom(context.Background(), func(context.Context) (*catalog.Configuration, error) {
		return nil, errors.New("source unavailable")
	})
	require.Error(t, err)
	assert.Same(t, before, store.Current())
	assert.Equal(t, 2, obs.failed)
}

func TestStore_ConcurrentReadersSeeCompleteSnapshots(t *testing.T) {
	t.Parallel()

	store := testhelpers.Store(t)
	base := testhelpers.Configuration(t)

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg := base.Clone()
			if i%2 == 0 {
				delete(cfg.RuleSets, "items")
			}
			_, _ = store.Reload(cfg)
		}()
	}

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				snap := store.Current()
				// Every published snapshot is internally consistent.
				assert.Equal(t, len(snap.Categories), len(snap.Tables))
				assert.NotNil(t, snap.Keywords)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(5), store.Current().Generation)
}

func TestSnapshot_SourceIsACopy(t *testing.T) {
	t.Parallel()

	snap := testhelpers.Snapshot(t)
	src := snap.Source()
	src.Categories[0] = "mutated"
	src.Tables["items"] = "mutated"

	again := snap.Source()
	assert.Equal(t, "inventory_management", again.Categories[0])
	assert.Equal(t, "items", again.Tables["items"])
}
