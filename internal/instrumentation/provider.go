package instrumentation

import (
	"context"
	"errors"
	"fmt"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Provider owns the meter and tracer providers for a run and, with the
// Prometheus exporter, the registry the metrics textfile is written from.
type Provider struct {
	config         Config
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	metrics        *Metrics
	registry       *promclient.Registry
	enabled        bool
}

// NewProvider sets up metrics and tracing for one run. A disabled config
// yields a Provider whose recorder and tracer do nothing.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	p := &Provider{config: config, enabled: config.Enabled}
	if !config.Enabled {
		p.metrics = &Metrics{}
		return p, nil
	}

	res, err := runResource(ctx, config)
	if err != nil {
		return nil, err
	}

	reader, registry, err := newMetricReader(ctx, config)
	if err != nil {
		return nil, err
	}
	p.registry = registry
	p.meterProvider = metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader))

	exp, err := newSpanExporter(ctx, config)
	if err != nil {
		return nil, errors.Join(err, p.meterProvider.Shutdown(ctx))
	}
	p.tracerProvider = newTracerProvider(res, exp, config.TraceSamplingRate)

	otel.SetMeterProvider(p.meterProvider)
	otel.SetTracerProvider(p.tracerProvider)

	p.metrics, err = NewMetrics(p.meterProvider.Meter(config.ServiceName), config.DetailedLabels)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("registering instruments: %w", err), p.Shutdown(ctx))
	}
	return p, nil
}

// Metrics returns the recorder. It is never nil.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Gatherer returns the Prometheus registry backing the metrics, or nil
// when the Prometheus exporter is not in use.
func (p *Provider) Gatherer() promclient.Gatherer {
	if p.registry == nil {
		return nil
	}
	return p.registry
}

// WriteTextfile writes the current metrics to path in the Prometheus text
// exposition format, suitable for the node-exporter textfile collector.
// It is a no-op unless the Prometheus exporter is active.
func (p *Provider) WriteTextfile(path string) error {
	if p.registry == nil || path == "" {
		return nil
	}
	if err := promclient.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}

// Shutdown writes the metrics textfile if one is configured and then
// flushes and stops the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.enabled {
		return nil
	}

	var errs []error
	// The textfile is written first; the meter provider cannot be read after shutdown.
	if err := p.WriteTextfile(p.config.MetricsTextfile); err != nil {
		errs = append(errs, err)
	}

	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Enabled reports whether instrumentation is on for this run.
func (p *Provider) Enabled() bool {
	return p.enabled
}
