// Package config holds the categorizer service configuration.
package config

import (
	"time"

	infraconfig "github.com/jonesrussell/north-cloud/categorizer/infrastructure/config"
)

// Default configuration values.
const (
	defaultServiceName     = "categorizer"
	defaultServiceVersion  = "1.0.0"
	defaultCatalogPath     = "configs/categories.yml"
	defaultConcurrency     = 10
	defaultMaxBatchSize    = 100
	defaultPersistAttempts = 3
	defaultPersistDelay    = 200 * time.Millisecond
	defaultPersistMaxDelay = 2 * time.Second
	defaultWatchDebounce   = 250 * time.Millisecond
	defaultSinkFailures    = 5
	defaultSinkCooldown    = 30 * time.Second
)

// Config holds all configuration for the categorizer service.
type Config struct {
	Service       ServiceConfig                   `yaml:"service"`
	Server        infraconfig.ServerConfig        `yaml:"server"`
	Catalog       CatalogConfig                   `yaml:"catalog"`
	Processing    ProcessingConfig                `yaml:"processing"`
	Database      infraconfig.DatabaseConfig      `yaml:"database"`
	Elasticsearch infraconfig.ElasticsearchConfig `yaml:"elasticsearch"`
	Redis         infraconfig.RedisConfig         `yaml:"redis"`
	Logging       infraconfig.LoggingConfig       `yaml:"logging"`
	Auth          AuthConfig                      `yaml:"auth"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Debug   bool   `env:"APP_DEBUG" yaml:"debug"`
}

// CatalogConfig locates the category configuration and controls reloads.
type CatalogConfig struct {
	Path          string        `env:"CATEGORIZER_CATALOG"       yaml:"path"`
	Watch         bool          `env:"CATEGORIZER_CATALOG_WATCH" yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
	// DatabaseRules overlays enabled rules from the validation_rules table.
	DatabaseRules bool `yaml:"database_rules"`
}

// ProcessingConfig bounds batch work and persistence retries.
type ProcessingConfig struct {
	Concurrency     int           `env:"CATEGORIZER_CONCURRENCY" yaml:"concurrency"`
	RateLimit       int           `env:"CATEGORIZER_RATE_LIMIT"  yaml:"rate_limit"`
	MaxBatchSize    int           `yaml:"max_batch_size"`
	PersistAttempts int           `yaml:"persist_attempts"`
	PersistDelay    time.Duration `yaml:"persist_delay"`
	PersistMaxDelay time.Duration `yaml:"persist_max_delay"`
	// SinkFailures consecutive failures of an optional sink open its circuit
	// for SinkCooldown.
	SinkFailures int           `yaml:"sink_failures"`
	SinkCooldown time.Duration `yaml:"sink_cooldown"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

// Load loads configuration from the given path with defaults applied.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, setDefaults)
}

// Default returns a configuration built from defaults and the environment
// alone, for running without a config file.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	infraconfig.ApplyEnv(cfg)
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := infraconfig.ValidateRequired("catalog.path", c.Catalog.Path); err != nil {
		return err
	}
	if c.Catalog.DatabaseRules && !c.Database.Enabled {
		return &infraconfig.ValidationError{Field: "catalog.database_rules", Message: "requires database.enabled"}
	}
	if c.Processing.Concurrency < 1 {
		return &infraconfig.ValidationError{Field: "processing.concurrency", Message: "must be at least 1"}
	}
	if c.Processing.RateLimit < 0 {
		return &infraconfig.ValidationError{Field: "processing.rate_limit", Message: "must not be negative"}
	}
	if c.Processing.MaxBatchSize < 1 {
		return &infraconfig.ValidationError{Field: "processing.max_batch_size", Message: "must be at least 1"}
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Elasticsearch.Validate(); err != nil {
		return err
	}
	if c.Redis.Enabled {
		if err := infraconfig.ValidateRequired("redis.address", c.Redis.Address); err != nil {
			return err
		}
	}
	return c.Logging.Validate()
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	cfg.Server.SetDefaults()
	setCatalogDefaults(&cfg.Catalog)
	setProcessingDefaults(&cfg.Processing)
	cfg.Database.SetDefaults()
	cfg.Elasticsearch.SetDefaults()
	cfg.Redis.SetDefaults()
	cfg.Logging.SetDefaults()
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
}

func setCatalogDefaults(c *CatalogConfig) {
	if c.Path == "" {
		c.Path = defaultCatalogPath
	}
	if c.WatchDebounce == 0 {
		c.WatchDebounce = defaultWatchDebounce
	}
}

func setProcessingDefaults(p *ProcessingConfig) {
	if p.Concurrency == 0 {
		p.Concurrency = defaultConcurrency
	}
	if p.MaxBatchSize == 0 {
		p.MaxBatchSize = defaultMaxBatchSize
	}
	if p.PersistAttempts == 0 {
		p.PersistAttempts = defaultPersistAttempts
	}
	if p.PersistDelay == 0 {
		p.PersistDelay = defaultPersistDelay
	}
	if p.PersistMaxDelay == 0 {
		p.PersistMaxDelay = defaultPersistMaxDelay
	}
	if p.SinkFailures == 0 {
		p.SinkFailures = defaultSinkFailures
	}
	if p.SinkCooldown == 0 {
		p.SinkCooldown = defaultSinkCooldown
	}
}
