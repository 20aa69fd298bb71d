package observability

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/yungbote/facility-backend/internal/platform/logger"
)

type OtelConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
	Version     string
	// Endpoint is an OTLP/HTTP host:port. Empty exports spans to stdout.
	Endpoint    string
	Insecure    bool
	Headers     map[string]string
	SampleRatio float64
}

// InitOTel installs the global tracer provider and propagator. The returned
// shutdown flushes pending spans; it is a no-op when tracing is disabled.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}
	if log == nil {
		log = logger.NewNop()
	}
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "facility-backend"
	}
	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
			attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
		),
	)
	if err != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	exporter, err := buildTraceExporter(ctx, log, cfg)
	if err != nil {
		return noop, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clampRatio(cfg.SampleRatio)))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("otel tracing initialized", "service", serviceName, "endpoint", cfg.Endpoint)
	return tp.Shutdown, nil
}

func clampRatio(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func buildTraceExporter(ctx context.Context, log *logger.Logger, cfg OtelConfig) (sdktrace.SpanExporter, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		return otlptracehttp.New(ctx, opts...)
	}
	log.Warn("otel using stdout exporter (no OTLP endpoint configured)")
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}

// ParseHeaders reads "k1=v1,k2=v2" as used by OTEL_EXPORTER_OTLP_HEADERS.
func ParseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	headers := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			continue
		}
		headers[key] = val
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}
