package tracing

import (
	"context"
	"fmt"
	"io"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/theplant/clienttrace/log"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

type loggedError struct {
	err interface{}
}

func (l loggedError) Error() string {
	return l.err.(error).Error()
}

// Span runs f inside a span named name, started from the span in ctx (if
// any). A returned error or a panic marks the span as errored; panics are
// re-raised after the span is finished.
func Span(ctx context.Context, name string, f func(context.Context, opentracing.Span) error, opts ...opentracing.StartSpanOption) error {
	return SpanWith(ctx, opentracing.GlobalTracer(), name, f, opts...)
}

// SpanWith is Span using tracer instead of the global tracer.
func SpanWith(ctx context.Context, tracer opentracing.Tracer, name string, f func(context.Context, opentracing.Span) error, opts ...opentracing.StartSpanOption) (e error) {
	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, tracer, name, opts...)
	defer func() {
		err := recover()
		// if err != nil, f panicked. And if f panicked, e has to be
		// nil.
		if err != nil {
			var ok bool
			e, ok = err.(error)

			if !ok {
				e = fmt.Errorf("panic with non-error: %#v", err)
				err = e
			}
		}

		if e != nil {
			ext.Error.Set(span, true)
			if _, logged := e.(loggedError); !logged {
				span.LogKV("error", e)
			}
		}

		span.Finish()

		if err != nil {
			panic(loggedError{err})
		}
	}()

	e = f(ctx, span)
	return
}

type nullCloser struct{}

func (nullCloser) Close() error { return nil }

// Tracer builds a jaeger tracer from the JAEGER_* environment variables
// and installs it as the opentracing global tracer. Without a service name
// the no-op tracer is returned, which turns client instrumentation into a
// pass-through.
func Tracer(logger log.Logger) (opentracing.Tracer, io.Closer, error) {
	logger = logger.With(
		"context", "clienttrace/tracing.Tracer",
	)

	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		logger.Info().Log(
			"msg", fmt.Sprintf("didn't configure tracer: %v", err),
			"err", err,
		)
		return opentracing.NoopTracer{}, nullCloser{}, nil
	} else if cfg.ServiceName == "" {
		logger.Info().Log(
			"msg", "didn't configure tracer: no service name set",
		)
		return opentracing.NoopTracer{}, nullCloser{}, nil
	}

	tracer, closer, err := cfg.NewTracer(jaegercfg.Logger(jaegerLogger{logger}))
	if err != nil {
		return opentracing.NoopTracer{}, nullCloser{}, err
	}
	opentracing.SetGlobalTracer(tracer)

	logger.Info().Log(
		"msg", fmt.Sprintf("configured jaeger tracer for %s", cfg.ServiceName),
		"service", cfg.ServiceName,
	)
	return tracer, closer, nil
}

type jaegerLogger struct {
	log.Logger
}

func (l jaegerLogger) Error(msg string) {
	l.Logger.Error().Log("msg", msg)
}

func (l jaegerLogger) Infof(msg string, args ...interface{}) {
	l.Logger.Info().Log("msg", fmt.Sprintf(msg, args...))
}

func (l jaegerLogger) Debugf(msg string, args ...interface{}) {
	l.Logger.Debug().Log("msg", fmt.Sprintf(msg, args...))
}

// IDs returns the trace and span ids of sc as plain strings. Only jaeger
// and mocktracer span contexts expose their ids; ok is false otherwise.
func IDs(sc opentracing.SpanContext) (traceID, spanID string, ok bool) {
	switch c := sc.(type) {
	case jaeger.SpanContext:
		if !c.IsValid() {
			return "", "", false
		}
		return c.TraceID().String(), c.SpanID().String(), true
	case *jaeger.SpanContext:
		if c == nil || !c.IsValid() {
			return "", "", false
		}
		return c.TraceID().String(), c.SpanID().String(), true
	case mocktracer.MockSpanContext:
		return fmt.Sprint(c.TraceID), fmt.Sprint(c.SpanID), true
	}
	return "", "", false
}
