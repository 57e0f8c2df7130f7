package chi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geodecay/internal/logger"
	"github.com/kailas-cloud/geodecay/internal/metrics"
	"github.com/kailas-cloud/geodecay/internal/tracing"
)

// RouterConfig configures the middleware stack.
type RouterConfig struct {
	APIKeys      []string
	MaxBodyBytes int64
}

// NewRouter builds the chi router: panic recovery, request IDs, a server
// span, one log line per request, bearer auth, HTTP metrics and a body size limit, followed by
// every API route.
func NewRouter(s *Server, cfg RouterConfig, log *zap.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(log))
	r.Use(chiMiddleware.RequestID)
	r.Use(TracingMiddleware())
	r.Use(WideEventMiddleware(log))
	r.Use(BearerAuthMiddleware(cfg.APIKeys))
	r.Use(metrics.Middleware())
	if cfg.MaxBodyBytes > 0 {
		r.Use(maxBodyBytes(cfg.MaxBodyBytes))
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	s.Mount(r)
	return r
}

// JSONRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func JSONRecoverer(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
						panic(rvr)
					}
					log.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WideEventMiddleware emits one canonical log line per request, echoes
// X-Request-ID and stores a request-scoped logger in the context.
func WideEventMiddleware(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			fields := []zap.Field{zap.String("request_id", requestID)}
			if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
				fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
			}
			reqLogger := log.With(fields...)
			ctx := logger.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

// TracingMiddleware opens a server span per request, continuing a trace
// propagated in the request headers. The span is renamed to the chi route
// pattern once routing is done.
func TracingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := tracing.Extract(r.Context(), r.Header)
			ctx, end := tracing.StartSpan(ctx, r.Method,
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				trace.SpanFromContext(ctx).SetName(r.Method + " " + rctx.RoutePattern())
			}
			tracing.SetAttributes(ctx, attribute.Int("http.status_code", ww.Status()))
			var err error
			if ww.Status() >= http.StatusInternalServerError {
				err = fmt.Errorf("http status %d", ww.Status())
			}
			end(err)
		})
	}
}

func maxBodyBytes(limit int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
