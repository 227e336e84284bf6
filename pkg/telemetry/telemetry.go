// Package telemetry exports OpenTelemetry traces over OTLP/gRPC.
package telemetry

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/macropower/chipper/pkg/version"
)

// ShutdownFunc flushes pending spans and stops the exporter.
type ShutdownFunc func(context.Context) error

// Config configures trace export.
type Config struct {
	// OTLPEndpoint is the collector URL, such as "http://localhost:4317".
	// Tracing is disabled when it is empty.
	OTLPEndpoint string `json:"otlpEndpoint,omitempty" jsonschema:"title=OTLP Endpoint"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.OTLPEndpoint == "" {
		return nil
	}

	u, err := url.Parse(c.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("otlpEndpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("otlpEndpoint %q: must be an absolute URL", c.OTLPEndpoint)
	}

	return nil
}

// Enabled reports whether traces are exported.
func (c *Config) Enabled() bool {
	return c != nil && c.OTLPEndpoint != ""
}

// Setup registers a global tracer provider that exports to the configured
// endpoint. When tracing is disabled, no provider is registered and the
// returned [ShutdownFunc] does nothing.
func Setup(ctx context.Context, cfg *Config, serviceName string) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	if !cfg.Enabled() {
		return noop, nil
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(cfg.OTLPEndpoint))
	if err != nil {
		return noop, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version.GetVersion()),
		),
	)
	if err != nil {
		return noop, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}
