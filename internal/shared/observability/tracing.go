package observability

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "compgraph"

// Tracer is the package-wide tracer. It resolves through the global provider,
// so spans are no-ops until InitTracing installs an exporter.
var Tracer trace.Tracer = otel.Tracer(instrumentationName)

// TracingOptions configures the OTLP exporter.
type TracingOptions struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
	SampleRatio float64
}

// InitTracing installs a batching OTLP/gRPC tracer provider. With an empty
// endpoint it leaves the no-op provider in place. The returned func flushes
// and shuts the provider down.
func InitTracing(ctx context.Context, opts TracingOptions) (func(context.Context) error, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return func(context.Context) error { return nil }, nil
	}

	clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := serviceResource(opts.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	ratio := opts.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(provider)
	Tracer = provider.Tracer(instrumentationName)

	return provider.Shutdown, nil
}

// serviceResource merges the SDK defaults with service.name, falling back to
// the instrumentation name when none is configured.
func serviceResource(name string) (*resource.Resource, error) {
	if name = strings.TrimSpace(name); name == "" {
		name = instrumentationName
	}
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(name)),
	)
}
