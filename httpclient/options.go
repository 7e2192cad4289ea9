package httpclient

import (
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/theplant/clienttrace/log"
	"github.com/theplant/clienttrace/monitoring"
)

type Option func(*Transport)

// WithBufferTransformer replaces DefaultBufferTransformer.
func WithBufferTransformer(f BufferTransformer) Option {
	return func(t *Transport) {
		if f != nil {
			t.transformer = f
		}
	}
}

// WithMonitor records one measurement per finished exchange.
func WithMonitor(m monitoring.Monitor) Option {
	return func(t *Transport) {
		if m != nil {
			t.monitor = m
		}
	}
}

// WithLogger sets the logger used when the request context carries none.
func WithLogger(l log.Logger) Option {
	return func(t *Transport) {
		if l.Logger != nil {
			t.defaultLogger = l
		}
	}
}

// WithIDExtractor sets how trace and span ids are read from a span
// context for header propagation. When it reports !ok the tracer's own
// HTTP header format is injected instead.
func WithIDExtractor(f func(opentracing.SpanContext) (traceID, spanID string, ok bool)) Option {
	return func(t *Transport) {
		if f != nil {
			t.ids = f
		}
	}
}
