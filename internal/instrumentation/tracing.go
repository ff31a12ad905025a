package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/mailmerge/internal/logging"
)

// TracerName identifies mailmerge's spans.
const TracerName = "github.com/teemow/mailmerge"

// Span attribute keys.
const (
	SpanAttrService   = "google.service"
	SpanAttrOperation = "google.operation"
	SpanAttrList      = "mailmerge.list"
	SpanAttrRecipient = "mailmerge.recipient_hash"
	SpanAttrMessageID = "mailmerge.message_id"
	SpanAttrCount     = "mailmerge.recipient_count"
)

// tracer is resolved on every call so a provider installed after package
// init (or swapped in tests) is picked up.
func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan starts an internal span. End it with span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartGoogleAPISpan starts a client span named google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)
	return tracer().Start(ctx, "google."+service+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...))
}

// StartListSpan starts the span covering delivery to one recipient list.
func StartListSpan(ctx context.Context, list string, recipients int) (context.Context, trace.Span) {
	return StartSpan(ctx, "dispatch.list",
		attribute.String(SpanAttrList, list),
		attribute.Int(SpanAttrCount, recipients))
}

// StartDeliverySpan starts the span for rendering and sending one message.
// The recipient is only recorded as a hash.
func StartDeliverySpan(ctx context.Context, list, recipient string) (context.Context, trace.Span) {
	return StartSpan(ctx, "dispatch.deliver",
		attribute.String(SpanAttrList, list),
		attribute.String(SpanAttrRecipient, logging.AnonymizeEmail(recipient)))
}

// SetSpanError marks the span failed. A nil err leaves it untouched.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess marks the span OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// SpanIDs returns the trace and span id of the span in ctx, or empty
// strings when ctx carries no valid span.
func SpanIDs(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}
