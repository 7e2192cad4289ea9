package httpclient

import (
	"context"
	"fmt"
	"net/http"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"github.com/theplant/clienttrace/kerrs"
	"github.com/theplant/clienttrace/log"
	"github.com/theplant/clienttrace/monitoring"
	"github.com/theplant/clienttrace/tracing"
)

var (
	ErrMissingTransport = errors.New("base round tripper must be given")
	ErrMissingTracer    = errors.New("tracer must be given")
	ErrNoResponse       = errors.New("round tripper returned neither response nor error")
)

// DispatchFunc adapts a function to http.RoundTripper.
type DispatchFunc func(*http.Request) (*http.Response, error)

func (f DispatchFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Transport traces requests dispatched through base. See the package
// documentation.
type Transport struct {
	base   http.RoundTripper
	tracer opentracing.Tracer
	cfg    Config

	headers       HeaderNames
	transformer   BufferTransformer
	monitor       monitoring.Monitor
	defaultLogger log.Logger
	ids           func(opentracing.SpanContext) (string, string, bool)
}

// NewTransport wraps base. Both base and tracer are required; blank cfg
// fields take their defaults.
func NewTransport(base http.RoundTripper, tracer opentracing.Tracer, cfg Config, opts ...Option) (*Transport, error) {
	if base == nil {
		return nil, ErrMissingTransport
	}
	if tracer == nil {
		return nil, ErrMissingTracer
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, kerrs.Wrapv(err, "invalid client trace config")
	}

	t := &Transport{
		base:          base,
		tracer:        tracer,
		cfg:           cfg,
		headers:       cfg.headerNames(),
		transformer:   DefaultBufferTransformer,
		defaultLogger: log.Nop(),
		ids:           tracing.IDs,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// WrapClient returns a copy of client whose transport is traced. A nil
// client or transport means the http defaults.
func WrapClient(client *http.Client, tracer opentracing.Tracer, cfg Config, opts ...Option) (*http.Client, error) {
	var c http.Client
	if client != nil {
		c = *client
	}

	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	t, err := NewTransport(base, tracer, cfg, opts...)
	if err != nil {
		return nil, err
	}
	c.Transport = t
	return &c, nil
}

func (t *Transport) Config() Config {
	return t.cfg
}

// monitorFor returns the WithMonitor monitor, else the one installed in
// ctx, else a no-op.
func (t *Transport) monitorFor(ctx context.Context) monitoring.Monitor {
	if t.monitor != nil {
		return t.monitor
	}
	if m, ok := monitoring.FromContext(ctx); ok {
		return m
	}
	return monitoring.Nop()
}

func (t *Transport) logger(ctx context.Context) log.Logger {
	if l, ok := log.FromContext(ctx); ok {
		return l
	}
	return t.defaultLogger
}

// RoundTrip dispatches req through the base transport. Tracing never
// prevents the dispatch nor changes its result; only resp.Body is replaced
// by an observing reader.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ex, out := t.begin(req)
	if ex == nil {
		return t.base.RoundTrip(req)
	}

	resp, err := t.base.RoundTrip(out)
	t.dispatched(ex, req, out, resp, err)
	return resp, err
}

// begin creates the exchange and the outgoing request. A nil exchange
// means the request goes out untraced.
func (t *Transport) begin(req *http.Request) (ex *Exchange, out *http.Request) {
	var (
		ctx  = context.Background()
		span opentracing.Span
	)

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		t.logger(ctx).Debug().Log(
			"msg", fmt.Sprintf("instrumenting request failed, skip trace: %v", r),
			"context", "clienttrace/httpclient",
			"panic", r,
		)
		if span != nil {
			ext.Error.Set(span, true)
			span.Finish()
		}
		ex, out = nil, nil
	}()

	ctx = req.Context()
	l := t.logger(ctx)

	if !t.tracing() {
		l.Debug().Log("msg", "no current tracer, skip trace", "context", "clienttrace/httpclient")
		return nil, nil
	}

	span = t.createSpan(ctx)
	if span == nil {
		l.Debug().Log("msg", "no current span, skip trace", "context", "clienttrace/httpclient")
		return nil, nil
	}

	ex = newExchange(ctx, span, t)
	out = req.WithContext(ex.ctx)
	ex.out = out

	if t.cfg.RemoteTracing {
		if err := t.propagate(out, span); err != nil {
			ex.logger.Debug().Log(
				"msg", fmt.Sprintf("remote tracing skipped: %v", err),
				"err", err,
			)
		}
	}

	return ex, out
}

// dispatched attaches the exchange to the outcome of the real call.
func (t *Transport) dispatched(ex *Exchange, req, out *http.Request, resp *http.Response, err error) {
	ex.guard("tagging request", func() {
		tags := BuildTags(req, out, t.cfg)
		ex.setRequestTags(tags)
		tags.Apply(ex.span)
	})

	ex.guard("observing response", func() {
		switch {
		case err != nil:
			ex.Error(err)
		case resp == nil:
			ex.Error(ErrNoResponse)
		default:
			ex.Response(resp)
		}
	})
}
