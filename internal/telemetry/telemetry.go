// Package telemetry installs the process-wide OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// EndpointEnv enables export when set. The exporter reads the rest of the
// standard OTEL_EXPORTER_OTLP_* variables itself.
const EndpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// Shutdown flushes and stops tracing.
type Shutdown func(context.Context) error

// Setup exports spans over OTLP/HTTP when EndpointEnv is set. Otherwise the
// global no-op provider stays in place and the returned Shutdown does
// nothing. enabled reports which case applied.
func Setup(ctx context.Context, serviceName, version string) (shutdown Shutdown, enabled bool, err error) {
	if strings.TrimSpace(os.Getenv(EndpointEnv)) == "" {
		return func(context.Context) error { return nil }, false, nil
	}
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("create otlp exporter: %w", err)
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	))
	if err != nil {
		return nil, false, fmt.Errorf("build resource: %w", err)
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, true, nil
}
