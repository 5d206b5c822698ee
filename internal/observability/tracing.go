// Package observability wires OpenTelemetry tracing. Spans are exported over OTLP/HTTP
// when OTEL_ENDPOINT is set; otherwise the global no-op provider stays in place.
package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warehouse-backend/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "warehouse-backend"
	ServiceVersion = "1.0.0"
	TracesPath     = "/v1/traces"
)

// Tracer is the tracer every service package starts spans from.
func Tracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}

// SetupTracing returns the provider Kafka instrumentation should use and a shutdown func
// that is always safe to call.
func SetupTracing(ctx context.Context, cfg *config.Config) (trace.TracerProvider, func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	noop := func(context.Context) error { return nil }
	if cfg.OTelEndpoint == "" {
		return otel.GetTracerProvider(), noop, nil
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	)

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.OTelEndpoint),
		otlptracehttp.WithURLPath(TracesPath),
	}
	if cfg.OTelAuthHeader != "" {
		opts = append(opts, otlptracehttp.WithHeaders(map[string]string{"Authorization": cfg.OTelAuthHeader}))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return otel.GetTracerProvider(), noop, fmt.Errorf("otlp trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter,
			sdktrace.WithExportTimeout(10*time.Second),
			sdktrace.WithMaxQueueSize(2048),
		)),
	)
	otel.SetTracerProvider(tp)

	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
	}
	return tp, shutdown, nil
}
