// Package telemetry provides Prometheus metrics and OpenTelemetry tracing
// for the categorizer service.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonesrussell/north-cloud/categorizer/infrastructure/circuitbreaker"
	"github.com/jonesrussell/north-cloud/categorizer/infrastructure/metrics"
	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

const serviceName = "categorizer"

const (
	reloadSuccess = "success"
	reloadFailure = "failure"
)

// Metrics holds all categorizer Prometheus metrics
type Metrics struct {
	// Request metrics
	RequestsTotal      *prometheus.CounterVec
	PrimaryCategory    *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
	BatchSize          prometheus.Histogram

	// Extractor metrics
	ExtractorDuration *prometheus.HistogramVec
	ExtractorFaults   *prometheus.CounterVec

	// Validation metrics
	Violations *prometheus.CounterVec

	// Persistence metrics
	SinkFailures *prometheus.CounterVec
	SinkCircuit  *prometheus.GaugeVec

	// Configuration metrics
	ConfigReloads    *prometheus.CounterVec
	ConfigGeneration prometheus.Gauge
}

// Provider wraps telemetry providers
type Provider struct {
	Tracer   trace.Tracer
	Metrics  *Metrics
	HTTP     *metrics.HTTPMetrics
	gatherer prometheus.Gatherer
}

// NewProvider registers the metrics on reg and serves them from gatherer.
func NewProvider(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Provider {
	return &Provider{
		Tracer:   otel.Tracer(serviceName),
		Metrics:  initMetrics(promauto.With(reg)),
		HTTP:     metrics.NewHTTPMetrics(reg, serviceName),
		gatherer: gatherer,
	}
}

// NewIsolatedProvider uses a fresh registry, for tests and CLI runs.
func NewIsolatedProvider() *Provider {
	reg := prometheus.NewRegistry()
	return NewProvider(reg, reg)
}

// Handler returns the Prometheus HTTP handler for /metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// StartSpan starts a span named name.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordReload implements catalog.ReloadObserver.
func (p *Provider) RecordReload(snap *catalog.Snapshot, err error) {
	if err != nil {
		p.Metrics.ConfigReloads.WithLabelValues(reloadFailure).Inc()
		return
	}
	p.Metrics.ConfigReloads.WithLabelValues(reloadSuccess).Inc()
	p.Metrics.ConfigGeneration.Set(float64(snap.Generation))
}

// ObserveExtractor implements classifier.Observer.
func (p *Provider) ObserveExtractor(method domain.Method, elapsed time.Duration, err error) {
	p.Metrics.ExtractorDuration.WithLabelValues(string(method)).Observe(elapsed.Seconds())
	if err != nil {
		p.Metrics.ExtractorFaults.WithLabelValues(string(method)).Inc()
	}
}

// RecordOutcome counts a finished request.
func (p *Provider) RecordOutcome(record *domain.Record, elapsed time.Duration) {
	p.Metrics.RequestsTotal.WithLabelValues(string(record.State)).Inc()
	p.Metrics.ProcessingDuration.Observe(elapsed.Seconds())

	if record.Classification != nil {
		p.Metrics.PrimaryCategory.WithLabelValues(record.Classification.Primary.Category).Inc()
	}
	if record.Validation != nil {
		if n := len(record.Validation.Violations()); n > 0 {
			p.Metrics.Violations.WithLabelValues(record.Validation.Category).Add(float64(n))
		}
	}
}

// RecordBatch observes the size of a batch request.
func (p *Provider) RecordBatch(size int) {
	p.Metrics.BatchSize.Observe(float64(size))
}

// RecordSinkFailure counts a failed persistence attempt.
func (p *Provider) RecordSinkFailure(sink string) {
	p.Metrics.SinkFailures.WithLabelValues(sink).Inc()
}

// RecordCircuitState tracks a sink breaker; the gauge is 1 while not closed.
func (p *Provider) RecordCircuitState(sink string, _, to circuitbreaker.State) {
	open := 0.0
	if to != circuitbreaker.StateClosed {
		open = 1
	}
	p.Metrics.SinkCircuit.WithLabelValues(sink).Set(open)
}

func initMetrics(factory promauto.Factory) *Metrics {
	m := &Metrics{}
	initRequestMetrics(factory, m)
	initExtractorMetrics(factory, m)
	initValidationMetrics(factory, m)
	initSinkMetrics(factory, m)
	initConfigMetrics(factory, m)
	return m
}

func initRequestMetrics(factory promauto.Factory, m *Metrics) {
	m.RequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "categorizer_requests_total",
		Help: "Total requests by terminal state",
	}, []string{"state"})

	m.PrimaryCategory = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "categorizer_primary_category_total",
		Help: "Total requests by primary category",
	}, []string{"category"})

	m.ProcessingDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "categorizer_processing_duration_seconds",
		Help:    "Time to categorize, validate and assign a single request",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	})

	m.BatchSize = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "categorizer_batch_size",
		Help:    "Number of records per batch request",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 500},
	})
}

func initExtractorMetrics(factory promauto.Factory, m *Metrics) {
	m.ExtractorDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "categorizer_extractor_duration_seconds",
		Help:    "Time spent in each signal extractor",
		Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}, []string{"method"})

	m.ExtractorFaults = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "categorizer_extractor_faults_total",
		Help: "Total extractor errors and panics",
	}, []string{"method"})
}

func initValidationMetrics(factory promauto.Factory, m *Metrics) {
	m.Violations = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "categorizer_validation_violations_total",
		Help: "Total rule violations by category",
	}, []string{"category"})
}

func initSinkMetrics(factory promauto.Factory, m *Metrics) {
	m.SinkFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "categorizer_sink_failures_total",
		Help: "Total failed persistence attempts by sink",
	}, []string{"sink"})

	m.SinkCircuit = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "categorizer_sink_circuit_open",
		Help: "1 while a sink circuit breaker is open or probing",
	}, []string{"sink"})
}

func initConfigMetrics(factory promauto.Factory, m *Metrics) {
	m.ConfigReloads = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "categorizer_config_reloads_total",
		Help: "Total configuration reload attempts by result",
	}, []string{"result"})

	m.ConfigGeneration = factory.NewGauge(prometheus.GaugeOpts{
		Name: "categorizer_config_generation",
		Help: "Generation of the active configuration snapshot",
	})
}
