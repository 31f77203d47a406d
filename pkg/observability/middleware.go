// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// HTTPMiddleware records a server span and request metrics. Incoming trace
// context is extracted so that delegations show up as one trace across
// processes.
func HTTPMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	tracer := otel.Tracer(meterName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, SpanHTTPRequest,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String(AttrHTTPMethod, r.Method),
					attribute.String(AttrHTTPPath, r.URL.Path),
				),
			)
			defer span.End()

			// The wrapper keeps http.Flusher, which SSE streams need.
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			span.SetAttributes(
				attribute.Int(AttrHTTPStatus, status),
				attribute.Int(AttrHTTPSize, ww.BytesWritten()),
			)
			if status >= http.StatusBadRequest {
				span.SetAttributes(attribute.String(AttrErrorType, fmt.Sprintf("HTTP %d", status)))
			}

			metrics.RecordHTTPRequest(ctx, r.Method, status, time.Since(start))
		})
	}
}
