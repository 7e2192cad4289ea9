package server

import (
	"net/http"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/theplant/clienttrace/log"
)

// DefaultMiddleware logs, traces and recovers every request.
func DefaultMiddleware(logger log.Logger, tracer opentracing.Tracer) Middleware {
	return Compose(
		// Recovery should come before LogRequest to set the status code to 500
		Recovery,
		LogRequest,
		Trace(tracer),
		WithLogger(logger),
	)
}

// Middleware represents the form of HTTP middleware constructors.
type Middleware func(http.Handler) http.Handler

// Compose provides a convenient way to chain the HTTP
// middleware functions.
//
// In short, it transforms
//
// `Middleware3(Middleware2(Middleware1(HttpHandler)))`
//
// to
//
// `Compose(Middleware1, Middleware2, Middleware3)(HttpHandler)`
func Compose(middlewares ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for _, m := range middlewares {
			h = m(h)
		}
		return h
	}
}

// WithLogger installs logger in every request context.
func WithLogger(logger log.Logger) Middleware {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(rw, r.WithContext(log.Context(r.Context(), logger)))
		})
	}
}
