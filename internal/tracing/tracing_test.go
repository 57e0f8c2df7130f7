package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return rec
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(Config{ServiceName: "geodecay"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.IsEnabled() {
		t.Error("expected tracing to be disabled")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of disabled provider: %v", err)
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing service name", Config{Enabled: true, SamplingRate: 0.5}},
		{"negative rate", Config{Enabled: true, ServiceName: "geodecay", SamplingRate: -0.1}},
		{"rate above one", Config{Enabled: true, ServiceName: "geodecay", SamplingRate: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProvider(tt.cfg, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSampler(t *testing.T) {
	if got := sampler(1).Description(); got != sdktrace.AlwaysSample().Description() {
		t.Errorf("rate 1: %s", got)
	}
	if got := sampler(0).Description(); got != sdktrace.NeverSample().Description() {
		t.Errorf("rate 0: %s", got)
	}
	if got := sampler(0.25).Description(); got == sdktrace.AlwaysSample().Description() {
		t.Errorf("rate 0.25 should be ratio based, got %s", got)
	}
}

func TestStartSpan(t *testing.T) {
	rec := recorder(t)

	ctx, end := StartSpan(context.Background(), "geodecay.search", attribute.String("collection", "places"))
	SetAttributes(ctx, attribute.Int("hits", 3))
	end(nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "geodecay.search" {
		t.Errorf("name = %q", span.Name())
	}
	found := map[attribute.Key]bool{}
	for _, kv := range span.Attributes() {
		found[kv.Key] = true
	}
	if !found["collection"] || !found["hits"] {
		t.Errorf("missing attributes: %v", span.Attributes())
	}
	if span.Status().Code.String() == "Error" {
		t.Error("span should not be marked as error")
	}
}

func TestStartSpan_WithError(t *testing.T) {
	rec := recorder(t)
	testErr := errors.New("invalid query")

	_, end := StartSpan(context.Background(), "geodecay.search")
	end(testErr)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code.String() != "Error" {
		t.Errorf("expected error status, got %s", spans[0].Status().Code.String())
	}
	if spans[0].Status().Description != testErr.Error() {
		t.Errorf("description = %q", spans[0].Status().Description)
	}
}

func TestExtract_TraceParent(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	h := http.Header{}
	h.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	sc := trace.SpanContextFromContext(Extract(context.Background(), h))
	if got := sc.TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace id = %s", got)
	}
	if !sc.IsRemote() {
		t.Error("extracted span context should be remote")
	}
}
