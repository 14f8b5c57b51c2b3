// Package tracing sets up OpenTelemetry for the storefront client and opens
// the spans wrapped around catalog, cart and checkout operations.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// ShutdownFunc flushes buffered spans and stops the exporter.
type ShutdownFunc func(context.Context) error

// Config selects where spans go. With Enabled false nothing is installed and
// spans are no-ops.
type Config struct {
	Enabled     bool
	ServiceName string
	Version     string
	Environment string

	// Endpoint is the OTLP/HTTP collector, host:port.
	Endpoint string

	// SampleRate is the fraction of root spans kept, clamped to [0, 1].
	SampleRate float64

	// ExportTimeout bounds one batch export; zero keeps the SDK default.
	ExportTimeout time.Duration
}

// DefaultConfig returns a disabled configuration pointing at a local collector.
func DefaultConfig(serviceName string) Config {
	return Config{
		ServiceName: serviceName,
		Version:     "dev",
		Environment: "development",
		Endpoint:    "localhost:4318",
		SampleRate:  1,
	}
}

func noop(context.Context) error { return nil }

// InitTracer installs a global tracer provider exporting over OTLP/HTTP and
// the W3C trace-context propagator used by the HTTP client and Kafka headers.
func InitTracer(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return noop, nil
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	}
	if cfg.ExportTimeout > 0 {
		opts = append(opts, otlptracehttp.WithTimeout(cfg.ExportTimeout))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tracing: create exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider.Shutdown, nil
}

// Sampler keeps rate of the root spans and follows the parent decision for
// the rest.
func Sampler(rate float64) sdktrace.Sampler {
	rate = min(max(rate, 0), 1)
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

// Start opens a span named component.op on the tracer named after component.
func Start(ctx context.Context, component, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(component).Start(ctx, component+"."+op, trace.WithAttributes(attrs...))
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
