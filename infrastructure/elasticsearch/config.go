package elasticsearch

import (
	"time"

	"github.com/jonesrussell/north-cloud/categorizer/infrastructure/retry"
)

// Config describes how to reach the cluster.
type Config struct {
	URL         string
	Username    string
	Password    string
	APIKey      string
	MaxRetries  int
	PingTimeout time.Duration
	// Retry governs the startup ping. Nil uses five attempts from 2s.
	Retry *retry.Config
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.URL == "" {
		c.URL = "http://localhost:9200"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = 5 * time.Second
	}
	if c.Retry == nil {
		c.Retry = &retry.Config{
			MaxAttempts:  5,
			InitialDelay: 2 * time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2,
		}
	}
}
