package bootstrap

import (
	"context"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/categorizer/infrastructure/circuitbreaker"
	esclient "github.com/jonesrussell/north-cloud/categorizer/infrastructure/elasticsearch"
	infragin "github.com/jonesrussell/north-cloud/categorizer/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	infraredis "github.com/jonesrussell/north-cloud/categorizer/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/categorizer/internal/config"
	"github.com/jonesrussell/north-cloud/categorizer/internal/processor"
	"github.com/jonesrussell/north-cloud/categorizer/internal/storage"
	"github.com/jonesrussell/north-cloud/categorizer/internal/telemetry"
)

// SetupElasticsearch creates the optional Elasticsearch record sink.
// Returns nil if ES is disabled or unavailable (service can still run).
func SetupElasticsearch(ctx context.Context, cfg *config.Config, logger infralogger.Logger) (*es.Client, *storage.ElasticsearchSink) {
	if !cfg.Elasticsearch.Enabled {
		return nil, nil
	}

	client, err := esclient.NewClient(ctx, esclient.Config{
		URL:        cfg.Elasticsearch.URL,
		Username:   cfg.Elasticsearch.Username,
		Password:   cfg.Elasticsearch.Password,
		MaxRetries: cfg.Elasticsearch.MaxRetries,
	}, logger)
	if err != nil {
		logger.Warn("Failed to connect to Elasticsearch", infralogger.Error(err))
		logger.Info("Records will not be indexed into vector collections")
		return nil, nil
	}

	logger.Info("Elasticsearch connected successfully",
		infralogger.String("index_prefix", cfg.Elasticsearch.IndexPrefix),
	)
	return client, storage.NewElasticsearchSink(client, cfg.Elasticsearch.IndexPrefix)
}

// SetupRedis creates the optional Redis record event sink.
// Returns nil if Redis is disabled or unavailable.
func SetupRedis(ctx context.Context, cfg *config.Config, logger infralogger.Logger) (*redis.Client, *storage.RedisSink) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}

	client, err := infraredis.NewClient(ctx, infraredis.Config{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn("Failed to connect to Redis", infralogger.Error(err))
		logger.Info("Record events will not be published")
		return nil, nil
	}

	logger.Info("Redis connected successfully", infralogger.String("channel", cfg.Redis.Channel))
	return client, storage.NewRedisSink(client, cfg.Redis.Channel)
}

// guardSink wraps an optional sink in a circuit breaker so an outage fails
// requests fast instead of retrying against a dead backend.
func guardSink(sink processor.Sink, cfg *config.Config, tel *telemetry.Provider, logger infralogger.Logger) *storage.BreakerSink {
	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:             sink.Name(),
		FailureThreshold: cfg.Processing.SinkFailures,
		Cooldown:         cfg.Processing.SinkCooldown,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			tel.RecordCircuitState(name, from, to)
			logger.Warn("Sink circuit changed state",
				infralogger.String("sink", name),
				infralogger.String("from", from.String()),
				infralogger.String("to", to.String()),
			)
		},
	})
	return storage.NewBreakerSink(sink, breaker)
}

// elasticsearchChecker reports cluster reachability for /health.
func elasticsearchChecker(client *es.Client) infragin.HealthChecker {
	return infragin.PingChecker(func() error {
		res, err := client.Ping()
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("elasticsearch ping: %s", res.Status())
		}
		return nil
	})
}

// redisChecker reports Redis reachability for /health.
func redisChecker(client *redis.Client) infragin.HealthChecker {
	return infragin.PingChecker(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
		defer cancel()
		return client.Ping(ctx).Err()
	})
}
