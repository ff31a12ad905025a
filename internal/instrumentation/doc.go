// Package instrumentation provides OpenTelemetry instrumentation for mailmerge runs.
//
// Instrumentation is off by default. When enabled it records:
//
// Email Metrics:
//   - emails_sent_total: Counter of delivery attempts by status (and list, with detailed labels)
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// OAuth Metrics:
//   - oauth_auth_total: Counter of interactive authorizations by result
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// and the spans dispatch.list (per list), dispatch.deliver (per recipient)
// and google.gmail.send (per API call).
//
// A run is short-lived, so the Prometheus exporter is not scraped. Instead
// the metrics are written once on Shutdown to METRICS_TEXTFILE for the
// node-exporter textfile collector.
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable instrumentation (default: false)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - METRICS_TEXTFILE: Path of the Prometheus textfile written on shutdown
//   - METRICS_DETAILED_LABELS: Add the list name to email metrics
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 1.0)
//   - AUDIT_LOGGING_ENABLED / AUDIT_LOGGING_INCLUDE_PII: per-delivery audit records
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordEmailSent(ctx, "newsletter", instrumentation.StatusSuccess)
package instrumentation
