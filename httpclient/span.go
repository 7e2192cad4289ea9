package httpclient

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// createSpan starts the client span as a child of the span in ctx. It
// returns nil when ctx has none: an untraced call chain stays untraced
// instead of starting a disconnected trace.
func (t *Transport) createSpan(ctx context.Context) opentracing.Span {
	parent := opentracing.SpanFromContext(ctx)
	if parent == nil {
		return nil
	}

	return t.tracer.StartSpan(
		t.cfg.SpanName,
		opentracing.ChildOf(parent.Context()),
		ext.SpanKindRPCClient,
	)
}

// tracing reports whether a real tracer is installed.
func (t *Transport) tracing() bool {
	_, noop := t.tracer.(opentracing.NoopTracer)
	return !noop
}
