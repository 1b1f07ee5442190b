// Package elasticsearch builds a verified go-elasticsearch client.
package elasticsearch

import (
	"context"
	"fmt"
	"io"
	"strings"

	es "github.com/elastic/go-elasticsearch/v8"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/infrastructure/retry"
)

// NewClient creates a client and pings the cluster, retrying with backoff
// until it answers or the retry budget is spent.
func NewClient(ctx context.Context, cfg Config, log infralogger.Logger) (*es.Client, error) {
	cfg.SetDefaults()
	url := normalizeURL(cfg.URL)

	esCfg := es.Config{
		Addresses:  []string{url},
		MaxRetries: cfg.MaxRetries,
	}
	switch {
	case cfg.APIKey != "":
		esCfg.APIKey = cfg.APIKey
	case cfg.Username != "":
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	client, err := es.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	log.Info("Verifying Elasticsearch connection", infralogger.String("url", url))

	if err = retry.Retry(ctx, *cfg.Retry, func() error {
		return ping(ctx, client, cfg)
	}); err != nil {
		return nil, fmt.Errorf("connect to elasticsearch: %w", err)
	}

	log.Info("Elasticsearch connection established", infralogger.String("url", url))
	return client, nil
}

func normalizeURL(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return "http://" + url
}

func ping(ctx context.Context, client *es.Client, cfg Config) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()

	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("ping returned %s: %s", res.Status(), body)
	}
	return nil
}
