// Package observability wires OpenTelemetry tracing and metrics for the
// sidecar: OTLP export over gRPC, plus counters for the event pipeline
// (ingested, published, dropped) and an active-subscriber gauge.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the OpenTelemetry providers.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string        // e.g., "localhost:4317" for gRPC
	SampleRate     float64       // 0.0 to 1.0, default 1.0 (sample all)
	BatchTimeout   time.Duration // How long to wait before sending batched spans
	Enabled        bool
	Insecure       bool // Use insecure connection (dev only)
}

// DefaultConfig returns development defaults. Telemetry stays off until an
// endpoint is configured.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "blockfeed-sidecar",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        false,
		Insecure:       true,
	}
}

// Provider manages the trace and metric providers and the pipeline metrics.
type Provider struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *slog.Logger

	eventsIngested  metric.Int64Counter
	eventsPublished metric.Int64Counter
	eventsDropped   metric.Int64Counter
	subscribers     metric.Int64UpDownCounter
}

// New creates a new observability provider. With Enabled false it returns a
// provider whose record methods are no-ops.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Provider{
		config: config,
		logger: slog.Default().With("component", "observability"),
	}

	if !config.Enabled {
		p.logger.InfoContext(ctx, "observability disabled")
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := p.initTraceProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to init trace provider: %w", err)
	}
	if err := p.initMetricProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to init metric provider: %w", err)
	}

	p.tracer = otel.Tracer("blockfeed.sidecar",
		trace.WithInstrumentationVersion(config.ServiceVersion),
	)
	p.meter = otel.Meter("blockfeed.sidecar",
		metric.WithInstrumentationVersion(config.ServiceVersion),
	)

	if err := p.initPipelineMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init pipeline metrics: %w", err)
	}

	p.logger.InfoContext(ctx, "observability initialized",
		"service", config.ServiceName,
		"environment", config.Environment,
		"endpoint", config.OTLPEndpoint,
		"sample_rate", config.SampleRate,
	)

	return p, nil
}

func (p *Provider) initTraceProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(p.config.OTLPEndpoint),
	}
	if p.config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case p.config.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case p.config.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(p.config.SampleRate)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(p.config.BatchTimeout),
		),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return nil
}

func (p *Provider) initMetricProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(p.config.OTLPEndpoint),
	}
	if p.config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create metric exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(15*time.Second),
		)),
	)

	otel.SetMeterProvider(p.meterProvider)

	return nil
}

func (p *Provider) initPipelineMetrics() error {
	var err error

	p.eventsIngested, err = p.meter.Int64Counter("sidecar.events.ingested",
		metric.WithDescription("Events received from the node stream"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	p.eventsPublished, err = p.meter.Int64Counter("sidecar.events.published",
		metric.WithDescription("Events fanned out to subscribers"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	p.eventsDropped, err = p.meter.Int64Counter("sidecar.events.dropped",
		metric.WithDescription("Events skipped as unclassified or malformed"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	p.subscribers, err = p.meter.Int64UpDownCounter("sidecar.subscribers.active",
		metric.WithDescription("Currently connected SSE subscribers"),
		metric.WithUnit("{subscriber}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "failed to shutdown trace provider", "error", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "failed to shutdown metric provider", "error", err)
		}
	}
	return nil
}

// Tracer returns the configured tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p.tracer == nil {
		return otel.Tracer("blockfeed.sidecar")
	}
	return p.tracer
}

// StartSpan starts a new span with the given name.
func (p *Provider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, name, opts...)
}

// RecordIngested counts one event received from the node, by type.
func (p *Provider) RecordIngested(ctx context.Context, eventType string) {
	if p.eventsIngested != nil {
		p.eventsIngested.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", eventType)))
	}
}

// RecordPublished counts one event fanned out to subscribers, by type.
func (p *Provider) RecordPublished(ctx context.Context, eventType string) {
	if p.eventsPublished != nil {
		p.eventsPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", eventType)))
	}
}

// RecordDropped counts one skipped record with the skip reason.
func (p *Provider) RecordDropped(ctx context.Context, reason string) {
	if p.eventsDropped != nil {
		p.eventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("drop.reason", reason)))
	}
}

// SubscriberConnected moves the active-subscriber gauge.
func (p *Provider) SubscriberConnected(ctx context.Context, delta int64) {
	if p.subscribers != nil {
		p.subscribers.Add(ctx, delta)
	}
}
