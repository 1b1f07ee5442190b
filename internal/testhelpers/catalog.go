// Package testhelpers provides shared test utilities for the categorizer.
package testhelpers

import (
	"path/filepath"
	"runtime"
	"testing"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/validation"
)

// ConfigPath returns the path of the bundled configs/categories.yml.
func ConfigPath(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate testhelpers source file")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "configs", "categories.yml")
}

// Configuration loads the bundled warehouse configuration.
func Configuration(t testing.TB) *catalog.Configuration {
	t.Helper()
	cfg, err := catalog.LoadFile(ConfigPath(t))
	if err != nil {
		t.Fatalf("load configuration: %v", err)
	}
	return cfg
}

// Snapshot compiles the bundled configuration with the built-in predicates.
func Snapshot(t testing.TB) *catalog.Snapshot {
	t.Helper()
	snap, err := catalog.Compile(Configuration(t), validation.NewRegistry())
	if err != nil {
		t.Fatalf("compile configuration: %v", err)
	}
	return snap
}

// Store returns a Store seeded with the bundled configuration.
func Store(t testing.TB) *catalog.Store {
	t.Helper()
	store, err := catalog.NewStore(Configuration(t), validation.NewRegistry(), infralogger.NewNop())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}
