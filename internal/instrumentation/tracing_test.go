package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartGoogleAPISpan(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := StartGoogleAPISpan(context.Background(), ServiceGmail, OperationSend)
	if traceID, spanID := SpanIDs(ctx); traceID == "" || spanID == "" {
		t.Error("expected trace and span ids in context")
	}
	SetSpanSuccess(span)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "google.gmail.send" {
		t.Errorf("expected span name 'google.gmail.send', got %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("expected OK status, got %v", spans[0].Status().Code)
	}
}

func TestStartListSpan_Error(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartListSpan(context.Background(), "newsletter", 3)
	SetSpanError(span, errors.New("template missing"))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "dispatch.list" {
		t.Errorf("expected span name 'dispatch.list', got %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status().Code)
	}

	found := false
	for _, attr := range spans[0].Attributes() {
		if string(attr.Key) == SpanAttrList && attr.Value.AsString() == "newsletter" {
			found = true
		}
	}
	if !found {
		t.Error("expected list attribute on span")
	}
}

func TestSetSpanError_Nil(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "noop")
	SetSpanError(span, nil)
	span.End()

	if code := recorder.Ended()[0].Status().Code; code != codes.Unset {
		t.Errorf("expected unset status for nil error, got %v", code)
	}
}

func TestStartDeliverySpan_HashesRecipient(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartDeliverySpan(context.Background(), "newsletter", "jane@example.com")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "dispatch.deliver" {
		t.Errorf("expected span name 'dispatch.deliver', got %q", spans[0].Name())
	}
	for _, attr := range spans[0].Attributes() {
		if string(attr.Key) == SpanAttrRecipient {
			if attr.Value.AsString() == "jane@example.com" {
				t.Error("recipient address must not appear in span attributes")
			}
			return
		}
	}
	t.Error("expected recipient hash attribute on span")
}

func TestSpanIDs_NoSpan(t *testing.T) {
	traceID, spanID := SpanIDs(context.Background())
	if traceID != "" || spanID != "" {
		t.Errorf("expected empty ids, got %q/%q", traceID, spanID)
	}
}
