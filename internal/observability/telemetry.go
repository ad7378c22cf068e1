// Package observability wires OpenTelemetry tracing and metrics for the
// engine: OTLP traces, a Prometheus metrics reader, and counters for the
// resolution paths the engine cares about (live vs fallback, match types,
// cache behavior).
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Telemetry holds the providers and the engine's metric instruments.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	logger         *zap.Logger

	RequestCounter     metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	ErrorCounter       metric.Int64Counter
	ResolutionCounter  metric.Int64Counter
	ResolutionDuration metric.Float64Histogram
	FallbackCounter    metric.Int64Counter
	DBQueryDuration    metric.Float64Histogram
	CacheHitCounter    metric.Int64Counter
	CacheMissCounter   metric.Int64Counter
}

// Config identifies the service to the telemetry backends.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	SampleRate     float64
}

// InitTelemetry sets up tracing and metrics and registers the global
// providers and propagators.
func InitTelemetry(ctx context.Context, cfg Config, logger *zap.Logger) (*Telemetry, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tracerProvider, err := initTracerProvider(ctx, cfg, res)

	if err != nil {
		return nil, fmt.Errorf("failed to init tracer provider: %w", err)
	}

	meterProvider, err := initMeterProvider(res)

	if err != nil {
		return nil, fmt.Errorf("failed to init meter provider: %w", err)
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	meter := meterProvider.Meter(cfg.ServiceName)

	t := &Telemetry{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		Tracer:         tracerProvider.Tracer(cfg.ServiceName),
		Meter:          meter,
		logger:         logger,
	}

	if err := t.initInstruments(meter); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Telemetry) initInstruments(meter metric.Meter) error {
	var err error

	t.RequestCounter, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	)

	if err != nil {
		return err
	}

	t.RequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)

	if err != nil {
		return err
	}

	t.ErrorCounter, err = meter.Int64Counter(
		"errors_total",
		metric.WithDescription("Total number of errors"),
		metric.WithUnit("1"),
	)

	if err != nil {
		return err
	}

	t.ResolutionCounter, err = meter.Int64Counter(
		"weather_resolutions_total",
		metric.WithDescription("Completed resolutions by source and match type"),
		metric.WithUnit("1"),
	)

	if err != nil {
		return err
	}

	t.ResolutionDuration, err = meter.Float64Histogram(
		"weather_resolution_duration_seconds",
		metric.WithDescription("End-to-end resolution duration in seconds"),
		metric.WithUnit("s"),
	)

	if err != nil {
		return err
	}

	t.FallbackCounter, err = meter.Int64Counter(
		"weather_fallback_total",
		metric.WithDescription("Resolutions answered by the seasonal synthesizer"),
		metric.WithUnit("1"),
	)

	if err != nil {
		return err
	}

	t.DBQueryDuration, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Database query duration in seconds"),
		metric.WithUnit("s"),
	)

	if err != nil {
		return err
	}

	t.CacheHitCounter, err = meter.Int64Counter(
		"cache_hits_total",
		metric.WithDescription("Total number of cache hits"),
		metric.WithUnit("1"),
	)

	if err != nil {
		return err
	}

	t.CacheMissCounter, err = meter.Int64Counter(
		"cache_misses_total",
		metric.WithDescription("Total number of cache misses"),
		metric.WithUnit("1"),
	)

	return err
}

func initTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptrace.New(
		ctx,
		otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
	)

	return tp, nil
}

func initMeterProvider(res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exporter, err := prometheus.New()

	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	return mp, nil
}

// RecordRequest records one HTTP request with its duration; 4xx and 5xx
// responses also count as errors.
func (t *Telemetry) RecordRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status_code", statusCode),
	}

	t.RequestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	t.RequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if statusCode >= 400 {
		t.ErrorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordResolution records one completed resolution with its provenance.
func (t *Telemetry) RecordResolution(ctx context.Context, source, matchType string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("source", source),
		attribute.String("match_type", matchType),
	}

	t.ResolutionCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	t.ResolutionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordFallback counts one synthesized answer with the reason the live
// path was skipped or failed.
func (t *Telemetry) RecordFallback(ctx context.Context, reason string) {
	t.FallbackCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordDBQuery records one history query; failures also count as errors.
func (t *Telemetry) RecordDBQuery(ctx context.Context, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("error", err != nil),
	}

	t.DBQueryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if err != nil {
		t.ErrorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", "database"),
			attribute.String("operation", operation),
		))
	}
}

func (t *Telemetry) RecordCacheHit(ctx context.Context, key string) {
	t.CacheHitCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key", key),
	))
}

func (t *Telemetry) RecordCacheMiss(ctx context.Context, key string) {
	t.CacheMissCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key", key),
	))
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.TracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}

	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}

	return nil
}
