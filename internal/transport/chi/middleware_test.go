package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/geodecay/internal/logger"
)

func TestTracingMiddleware_NamesSpanByRoute(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	r := chi.NewRouter()
	r.Use(TracingMiddleware())
	r.Get("/collections/{collection}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/collections/places", http.NoBody))

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("want 1 span, got %d", len(spans))
	}
	if got := spans[0].Name(); got != "GET /collections/{collection}" {
		t.Errorf("span name = %q", got)
	}
	if spans[0].Status().Code.String() != "Error" {
		t.Errorf("5xx span status = %v", spans[0].Status())
	}
}

func TestWideEventMiddleware_RequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	var fromHandler *zap.Logger
	h := chiMiddleware.RequestID(WideEventMiddleware(zap.New(core))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fromHandler = logger.FromContext(r.Context())
			w.WriteHeader(http.StatusAccepted)
		}),
	))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/collections", http.NoBody))

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	fromHandler.Info("inside")

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("want one canonical line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusAccepted) || fields["method"] != http.MethodPost {
		t.Errorf("fields = %v", fields)
	}
	inside := logs.FilterMessage("inside").All()
	if len(inside) != 1 || inside[0].ContextMap()["request_id"] == "" {
		t.Errorf("handler logger lacks request_id: %v", inside)
	}
}
