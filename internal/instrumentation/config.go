package instrumentation

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
)

// Environment variables read by DefaultConfig.
const (
	EnvEnabled          = "INSTRUMENTATION_ENABLED"
	EnvServiceName      = "OTEL_SERVICE_NAME"
	EnvInstanceID       = "OTEL_SERVICE_INSTANCE_ID"
	EnvMetricsExporter  = "METRICS_EXPORTER"
	EnvTracingExporter  = "TRACING_EXPORTER"
	EnvOTLPEndpoint     = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPInsecure     = "OTEL_EXPORTER_OTLP_INSECURE"
	EnvSamplingRate     = "OTEL_TRACES_SAMPLER_ARG"
	EnvMetricsTextfile  = "METRICS_TEXTFILE"
	EnvDetailedLabels   = "METRICS_DETAILED_LABELS"
	EnvAuditEnabled     = "AUDIT_LOGGING_ENABLED"
	EnvAuditIncludePII  = "AUDIT_LOGGING_INCLUDE_PII"
	defaultServiceName  = "mailmerge"
	defaultSamplingRate = 1.0
)

// Config controls metrics, tracing and delivery audit logging for a run.
//
// Instrumentation is off unless Enabled is set. A typical cron setup enables
// it with the prometheus exporter and a MetricsTextfile inside the
// node-exporter textfile directory, so every run leaves its counters behind.
type Config struct {
	ServiceName       string
	ServiceVersion    string
	ServiceInstanceID string // hostname when empty

	Enabled bool

	MetricsExporter string // prometheus (default), otlp or stdout
	TracingExporter string // none (default), otlp or stdout

	// OTLPEndpoint is host:port without a scheme, e.g. "localhost:4318".
	OTLPEndpoint string
	OTLPInsecure bool

	TraceSamplingRate float64

	// MetricsTextfile receives the Prometheus exposition when the run ends.
	MetricsTextfile string

	// DetailedLabels adds the recipient list name to email metrics.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls the per-delivery audit log.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludePII logs full recipient addresses and subjects. Otherwise only
	// a recipient hash and domain are written.
	IncludePII bool
}

// DefaultConfig reads the instrumentation settings from the environment.
// Unset or unparsable variables keep their defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:       envString(EnvServiceName, defaultServiceName),
		ServiceVersion:    "unknown",
		ServiceInstanceID: envString(EnvInstanceID, ""),
		Enabled:           envParsed(EnvEnabled, false, strconv.ParseBool),
		MetricsExporter:   envString(EnvMetricsExporter, ExporterPrometheus),
		TracingExporter:   envString(EnvTracingExporter, ExporterNone),
		OTLPEndpoint:      envString(EnvOTLPEndpoint, ""),
		OTLPInsecure:      envParsed(EnvOTLPInsecure, false, strconv.ParseBool),
		TraceSamplingRate: envParsed(EnvSamplingRate, defaultSamplingRate, parseFloat),
		MetricsTextfile:   envString(EnvMetricsTextfile, ""),
		DetailedLabels:    envParsed(EnvDetailedLabels, false, strconv.ParseBool),
		AuditLogging: AuditLoggingConfig{
			Enabled:    envParsed(EnvAuditEnabled, true, strconv.ParseBool),
			IncludePII: envParsed(EnvAuditIncludePII, false, strconv.ParseBool),
		},
	}
}

var (
	metricsExporters = []string{ExporterPrometheus, ExporterOTLP, ExporterStdout}
	tracingExporters = []string{ExporterOTLP, ExporterStdout, ExporterNone}
)

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %g", EnvSamplingRate, c.TraceSamplingRate))
	}
	if c.MetricsExporter != "" && !slices.Contains(metricsExporters, c.MetricsExporter) {
		errs = append(errs, fmt.Errorf("unknown metrics exporter %q (want one of %v)", c.MetricsExporter, metricsExporters))
	}
	if c.TracingExporter != "" && !slices.Contains(tracingExporters, c.TracingExporter) {
		errs = append(errs, fmt.Errorf("unknown tracing exporter %q (want one of %v)", c.TracingExporter, tracingExporters))
	}
	if c.OTLPEndpoint == "" && (c.MetricsExporter == ExporterOTLP || c.TracingExporter == ExporterOTLP) {
		errs = append(errs, fmt.Errorf("the %s exporter needs %s", ExporterOTLP, EnvOTLPEndpoint))
	}

	return errors.Join(errs...)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envParsed[T any](key string, fallback T, parse func(string) (T, error)) T {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := parse(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// Metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"
	OAuthResultExpired = "expired"

	ServiceGmail  = "gmail"
	OperationSend = "send"
)

// Exporter names accepted by METRICS_EXPORTER and TRACING_EXPORTER.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)
