package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const serviceVersion = "1.0.0"

type Config struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

// Init installs the global tracer provider and returns its shutdown.
// With tracing disabled, or an exporter that cannot be built, spans stay no-ops.
func Init(cfg Config, log *zap.Logger) func() {
	if !cfg.Enabled {
		return func() {}
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4318"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithTimeout(5*time.Second),
	)
	if err != nil {
		log.Error("failed to create OTLP exporter", zap.Error(err), zap.String("endpoint", cfg.Endpoint))
		return func() {}
	}

	tp, err := newProvider(exporter, cfg.ServiceName)
	if err != nil {
		log.Error("failed to create tracer provider", zap.Error(err))
		return func() {}
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("tracing initialized", zap.String("endpoint", cfg.Endpoint), zap.String("service", cfg.ServiceName))

	return func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("tracer provider shutdown", zap.Error(err))
		}
	}
}

func newProvider(exporter trace.SpanExporter, serviceName string) (*trace.TracerProvider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	return trace.NewTracerProvider(
		trace.WithBatcher(exporter,
			trace.WithBatchTimeout(1*time.Second),
			trace.WithMaxExportBatchSize(512),
		),
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(1.0)),
	), nil
}

// TraceID returns the id of the span carried by ctx, or "" when there is none.
func TraceID(ctx context.Context) string {
	sc := oteltrace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
