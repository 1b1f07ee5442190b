package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	infragin "github.com/jonesrussell/north-cloud/categorizer/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/categorizer/internal/api"
	"github.com/jonesrussell/north-cloud/categorizer/internal/assignment"
	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/classifier"
	"github.com/jonesrussell/north-cloud/categorizer/internal/config"
	"github.com/jonesrussell/north-cloud/categorizer/internal/processor"
	"github.com/jonesrussell/north-cloud/categorizer/internal/storage"
	"github.com/jonesrussell/north-cloud/categorizer/internal/telemetry"
	"github.com/jonesrussell/north-cloud/categorizer/internal/validation"
)

const (
	healthCheckTimeout   = 3 * time.Second
	persistRetryMultiple = 2.0
	catalogLoadTimeout   = 30 * time.Second
)

// Engine is the categorization core: configuration store, pipeline and batch
// processor. It has no HTTP surface and is shared by the server and the CLI.
type Engine struct {
	Store     *catalog.Store
	Loader    catalog.Loader
	Pipeline  *processor.Pipeline
	Batch     *processor.BatchProcessor
	Telemetry *telemetry.Provider
}

// NewEngine loads the category configuration through loader and builds the
// pipeline. sink may be nil.
func NewEngine(
	ctx context.Context,
	cfg *config.Config,
	loader catalog.Loader,
	tel *telemetry.Provider,
	sink processor.Sink,
	logger infralogger.Logger,
) (*Engine, error) {
	loadCtx, cancel := context.WithTimeout(ctx, catalogLoadTimeout)
	defer cancel()

	catalogCfg, err := loader(loadCtx)
	if err != nil {
		return nil, fmt.Errorf("load category configuration: %w", err)
	}
	store, err := catalog.NewStore(catalogCfg, validation.NewRegistry(), logger, catalog.WithReloadObserver(tel))
	if err != nil {
		return nil, err
	}

	cls := classifier.New(logger, classifier.WithObserver(tel))
	pipeline := processor.NewPipeline(store, cls, validation.NewEngine(logger), assignment.New(logger), logger, processor.Config{
		Sink:     sink,
		Recorder: tel,
		Tracer:   tel.Tracer,
		Retry: retry.Config{
			MaxAttempts:  cfg.Processing.PersistAttempts,
			InitialDelay: cfg.Processing.PersistDelay,
			MaxDelay:     cfg.Processing.PersistMaxDelay,
			Multiplier:   persistRetryMultiple,
		},
	})
	batch := processor.NewBatchProcessor(pipeline, cfg.Processing.Concurrency, cfg.Processing.RateLimit, logger)

	snap := store.Current()
	logger.Info("Categorizer engine initialized",
		infralogger.String("config_version", snap.Version),
		infralogger.Int("categories", len(snap.Categories)),
		infralogger.Int("concurrency", cfg.Processing.Concurrency),
	)

	return &Engine{
		Store:     store,
		Loader:    loader,
		Pipeline:  pipeline,
		Batch:     batch,
		Telemetry: tel,
	}, nil
}

// Service is the fully wired HTTP service.
type Service struct {
	Config  *config.Config
	Engine  *Engine
	Server  *infragin.Server
	logger  infralogger.Logger
	watcher *catalog.Watcher
	closers []func() error
}

// NewService connects every configured backend and builds the HTTP server.
// Optional backends that are unreachable are logged and skipped.
func NewService(ctx context.Context, cfg *config.Config, logger infralogger.Logger) (*Service, error) {
	svc := &Service{Config: cfg, logger: logger}
	tel := telemetry.NewProvider(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	checks := make(map[string]infragin.HealthChecker)
	var sinks []processor.Sink

	dbComps, err := SetupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	if dbComps != nil {
		svc.closers = append(svc.closers, dbComps.DB.Close)
		checks["database"] = infragin.PingChecker(func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			defer cancel()
			return dbComps.DB.PingContext(pingCtx)
		})
		sinks = append(sinks, dbComps.RecordRepo)
	}

	if esClient, esSink := SetupElasticsearch(ctx, cfg, logger); esSink != nil {
		checks["elasticsearch"] = elasticsearchChecker(esClient)
		sinks = append(sinks, guardSink(esSink, cfg, tel, logger))
	}
	if redisClient, redisSink := SetupRedis(ctx, cfg, logger); redisSink != nil {
		svc.closers = append(svc.closers, redisClient.Close)
		checks["redis"] = redisChecker(redisClient)
		sinks = append(sinks, guardSink(redisSink, cfg, tel, logger))
	}

	var sink processor.Sink
	if multi := storage.NewMultiSink(sinks...); multi.Len() > 0 {
		sink = multi
		logger.Info("Record sinks configured", infralogger.String("sinks", multi.Name()))
	} else {
		logger.Warn("No record sinks configured, results are returned but not stored")
	}

	loader := catalog.FileLoader(cfg.Catalog.Path)
	if cfg.Catalog.DatabaseRules && dbComps != nil {
		loader = dbComps.RulesRepo.Overlay(loader)
	}

	engine, err := NewEngine(ctx, cfg, loader, tel, sink, logger)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	svc.Engine = engine

	if cfg.Catalog.Watch {
		svc.watcher = catalog.NewWatcher(engine.Store, cfg.Catalog.Path, loader, logger).
			WithDebounce(cfg.Catalog.WatchDebounce)
	}

	handlerCfg := api.HandlerConfig{
		Loader:       loader,
		Batches:      tel,
		MaxBatchSize: cfg.Processing.MaxBatchSize,
	}
	if dbComps != nil {
		handlerCfg.Records = dbComps.RecordRepo
	}
	handler := api.NewHandler(engine.Pipeline, engine.Batch, engine.Store, handlerCfg, logger)
	svc.Server = api.NewServer(handler, cfg, tel.Handler(), checks, logger, tel.HTTP.Middleware())

	return svc, nil
}

// Run starts the configuration watcher and serves HTTP until ctx is done or a
// shutdown signal arrives.
func (s *Service) Run(ctx context.Context) error {
	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			return fmt.Errorf("start configuration watcher: %w", err)
		}
		defer s.watcher.Stop()
	}
	return s.Server.RunWithGracefulShutdown(ctx)
}

// Close releases backend connections.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	_ = s.logger.Sync()
	return errors.Join(errs...)
}
