package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/bubbletasks/internal/api/shared"
	"github.com/phrazzld/bubbletasks/internal/platform/logger"
)

// TraceMiddleware adds a trace ID to the request context and echoes it in
// the X-Trace-ID response header. A well-formed inbound X-Trace-ID is kept.
//
// The request logger (base tagged with trace_id) is attached to the context
// so handlers and services log under the same trace.
func TraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if inbound := r.Header.Get(shared.TraceIDHeader); shared.IsValidTraceID(inbound) {
				ctx = shared.WithTraceID(ctx, inbound)
			} else {
				ctx = shared.SetTraceID(ctx)
			}
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			w.Header().Set(shared.TraceIDHeader, traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
