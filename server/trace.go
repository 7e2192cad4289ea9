package server

import (
	"fmt"
	"net/http"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// Trace starts a server span for each request and makes it current in the
// request context. Requests carrying the tracer's propagation headers
// continue the caller's trace. A nil tracer means the global one.
func Trace(tracer opentracing.Tracer) Middleware {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			t := tracer
			if t == nil {
				t = opentracing.GlobalTracer()
			}

			opt := opentracing.StartSpanOption(ext.SpanKindRPCServer)
			if sc, err := t.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(r.Header)); err == nil {
				opt = ext.RPCServerOption(sc)
			}

			span := t.StartSpan(fmt.Sprintf("%s %s", r.Method, r.URL.Path), opt)
			defer span.Finish()

			ext.HTTPMethod.Set(span, r.Method)
			ext.HTTPUrl.Set(span, r.URL.String())

			sr := &statusRecorder{ResponseWriter: rw}
			defer func() {
				status := sr.status
				if status == 0 {
					status = http.StatusOK
				}
				ext.HTTPStatusCode.Set(span, uint16(status))
				if status >= http.StatusInternalServerError {
					ext.Error.Set(span, true)
				}
			}()

			h.ServeHTTP(sr, r.WithContext(opentracing.ContextWithSpan(r.Context(), span)))
		})
	}
}
