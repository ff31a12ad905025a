package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	labelStatus    = "status"
	labelList      = "list"
	labelService   = "service"
	labelOperation = "operation"
	labelResult    = "result"
)

// apiLatencyBuckets covers a fast send through a slow upload with retries
// on Google's side.
var apiLatencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics records mailmerge's counters and histograms.
// The zero value and a nil *Metrics record nothing.
type Metrics struct {
	emailsSent      metric.Int64Counter
	apiCalls        metric.Int64Counter
	apiCallDuration metric.Float64Histogram
	authorizations  metric.Int64Counter
	tokenRefreshes  metric.Int64Counter

	detailedLabels bool
}

// NewMetrics registers the instruments on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	counters := []struct {
		dst        *metric.Int64Counter
		name, desc string
		unit       string
	}{
		{&m.emailsSent, "emails_sent_total", "Email delivery attempts by outcome", "{email}"},
		{&m.apiCalls, "google_api_operations_total", "Calls made to Google APIs", "{operation}"},
		{&m.authorizations, "oauth_auth_total", "Interactive OAuth consent flows", "{attempt}"},
		{&m.tokenRefreshes, "oauth_token_refresh_total", "OAuth access token refreshes", "{attempt}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	var err error
	m.apiCallDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Latency of calls made to Google APIs"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(apiLatencyBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("creating google_api_operation_duration_seconds: %w", err)
	}

	return m, nil
}

// RecordEmailSent counts one delivery attempt. The list label is only set
// with detailed labels, since list names are operator chosen.
func (m *Metrics) RecordEmailSent(ctx context.Context, list, status string) {
	if m == nil || m.emailsSent == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(labelStatus, status)}
	if m.detailedLabels && list != "" {
		attrs = append(attrs, attribute.String(labelList, list))
	}
	m.emailsSent.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordGoogleAPIOperation counts and times one Google API call.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.apiCalls == nil || m.apiCallDuration == nil {
		return
	}
	set := metric.WithAttributeSet(attribute.NewSet(
		attribute.String(labelService, service),
		attribute.String(labelOperation, operation),
		attribute.String(labelStatus, status),
	))
	m.apiCalls.Add(ctx, 1, set)
	m.apiCallDuration.Record(ctx, duration.Seconds(), set)
}

// RecordOAuthAuth counts a consent flow by result (success or failure).
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil {
		return
	}
	countResult(ctx, m.authorizations, result)
}

// RecordOAuthTokenRefresh counts a refresh by result: success or failure
// for an attempt, expired for a stored credential found past its expiry.
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil {
		return
	}
	countResult(ctx, m.tokenRefreshes, result)
}

func countResult(ctx context.Context, c metric.Int64Counter, result string) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String(labelResult, result)))
}
