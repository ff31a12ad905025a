package instrumentation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// runResource describes this mailmerge run. The instance id falls back to
// the hostname so textfiles from several machines stay distinguishable.
func runResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	instance := cfg.ServiceInstanceID
	if instance == "" {
		instance, _ = os.Hostname()
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}
	if instance != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(instance))
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("building run resource: %w", err)
	}
	return res, nil
}

// newMetricReader returns the reader for the configured metrics exporter.
// The registry is only set for the Prometheus exporter; it is private so
// the textfile holds mailmerge's series and nothing from the Go runtime.
func newMetricReader(ctx context.Context, cfg Config) (metric.Reader, *promclient.Registry, error) {
	switch cfg.MetricsExporter {
	case ExporterPrometheus:
		registry := promclient.NewRegistry()
		reader, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return nil, nil, fmt.Errorf("prometheus metrics exporter: %w", err)
		}
		return reader, registry, nil

	case ExporterOTLP:
		if cfg.OTLPEndpoint == "" {
			return nil, nil, fmt.Errorf("the %s metrics exporter needs OTEL_EXPORTER_OTLP_ENDPOINT", ExporterOTLP)
		}
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("otlp metrics exporter: %w", err)
		}
		return metric.NewPeriodicReader(exp), nil, nil

	case ExporterStdout:
		slog.Debug("metrics are written to stdout", "component", "instrumentation")
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, nil, fmt.Errorf("stdout metrics exporter: %w", err)
		}
		return metric.NewPeriodicReader(exp), nil, nil
	}

	return nil, nil, fmt.Errorf("unsupported metrics exporter %q", cfg.MetricsExporter)
}

// newSpanExporter returns the exporter for the configured tracing backend,
// or nil when tracing is switched off.
func newSpanExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.TracingExporter {
	case "", ExporterNone:
		return nil, nil

	case ExporterOTLP:
		if cfg.OTLPEndpoint == "" {
			return nil, fmt.Errorf("the %s tracing exporter needs OTEL_EXPORTER_OTLP_ENDPOINT", ExporterOTLP)
		}
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			slog.Warn("sending traces without TLS",
				"component", "instrumentation",
				"endpoint", cfg.OTLPEndpoint)
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otlp trace exporter: %w", err)
		}
		return exp, nil

	case ExporterStdout:
		exp, err := stdouttrace.New()
		if err != nil {
			return nil, fmt.Errorf("stdout trace exporter: %w", err)
		}
		return exp, nil
	}

	return nil, fmt.Errorf("unsupported tracing exporter %q", cfg.TracingExporter)
}

// newTracerProvider samples nothing when exp is nil so spans stay cheap
// no-ops while still carrying valid parent links.
func newTracerProvider(res *resource.Resource, exp sdktrace.SpanExporter, rate float64) *sdktrace.TracerProvider {
	if exp == nil {
		return sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.NeverSample()),
		)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	)
}
