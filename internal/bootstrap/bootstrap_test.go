package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/config"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
	"github.com/jonesrussell/north-cloud/categorizer/internal/processor"
	"github.com/jonesrussell/north-cloud/categorizer/internal/telemetry"
	"github.com/jonesrussell/north-cloud/categorizer/internal/testhelpers"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := bootstrap.LoadConfig(filepath.Join(t.TempDir(), "config.yml"))
	require.NoError(t, err)
	assert.Equal(t, "categorizer", cfg.Service.Name)
	assert.Equal(t, 8071, cfg.Server.Port)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))

	_, err := bootstrap.LoadConfig(path)
	assert.ErrorContains(t, err, "logging.level")
}

func TestConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/categorizer/config.yml")

	assert.Equal(t, "explicit.yml", bootstrap.ConfigPath("explicit.yml"))
	assert.Equal(t, "/etc/categorizer/config.yml", bootstrap.ConfigPath(""))
}

func TestNewEngine_ProcessesRequests(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	sink := &testhelpers.MemorySink{}

	engine, err := bootstrap.NewEngine(context.Background(), cfg,
		catalog.FileLoader(testhelpers.ConfigPath(t)), telemetry.NewIsolatedProvider(), sink, infralogger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "2026.10.1", engine.Store.Current().Version)

	record, err := engine.Pipeline.Process(context.Background(), processor.Request{
		Payload: map[string]any{"location_id": "A-01-B-03"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, record.State)
	assert.Equal(t, "locations", record.Bundle.Primary.Category)
	assert.Len(t, sink.Records(), 1)
}

func TestNewEngine_LoaderError(t *testing.T) {
	t.Parallel()

	_, err := bootstrap.NewEngine(context.Background(), config.Default(),
		catalog.FileLoader(filepath.Join(t.TempDir(), "missing.yml")), telemetry.NewIsolatedProvider(), nil, infralogger.NewNop())
	assert.ErrorContains(t, err, "load category configuration")
}
