package middleware

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/endpoints/observability"
)

// Telemetry opens a server span per request, continuing any trace the
// caller propagated, and records request metrics. Probe paths are skipped.
func Telemetry(m *observability.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := observability.StartSpan(ctx, observability.SpanHTTPRequest,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String(observability.AttrHTTPMethod, r.Method),
					attribute.String(observability.AttrHTTPRoute, r.URL.Path),
				),
			)
			defer span.End()

			start := time.Now()
			m.RecordRequestStart(ctx)
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r.WithContext(ctx))
			m.RecordRequestEnd(ctx, r.Method, r.URL.Path, sw.status, time.Since(start))

			span.SetAttributes(attribute.Int(observability.AttrHTTPStatus, sw.status))
			if sw.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(sw.status))
			}
		})
	}
}
