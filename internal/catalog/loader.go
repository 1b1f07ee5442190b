package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader produces a fresh Configuration from some source.
type Loader func(ctx context.Context) (*Configuration, error)

// Parse decodes a YAML (or JSON) configuration document.
func Parse(data []byte) (*Configuration, error) {
	var cfg Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	return &cfg, nil
}

// LoadFile reads and parses the configuration at path.
func LoadFile(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// FileLoader returns a Loader reading path on every call.
func FileLoader(path string) Loader {
	return func(context.Context) (*Configuration, error) {
		return LoadFile(path)
	}
}
