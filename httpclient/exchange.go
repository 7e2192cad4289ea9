package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/theplant/clienttrace/log"
	"github.com/theplant/clienttrace/monitoring"
)

// State is where an Exchange is in its lifecycle. Completed and Errored
// are terminal and mutually exclusive.
type State int

const (
	Dispatched State = iota
	Responding
	Completed
	Errored
)

func (s State) String() string {
	switch s {
	case Dispatched:
		return "dispatched"
	case Responding:
		return "responding"
	case Completed:
		return "completed"
	case Errored:
		return "errored"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) terminal() bool {
	return s == Completed || s == Errored
}

// Exchange follows one traced request/response pair and owns its span
// until the span is finished. Its event methods (Response, Data, End,
// Error) may be called from any goroutine; once a terminal event ran, later
// ones are no-ops.
type Exchange struct {
	mu    sync.Mutex
	state State

	// ctx is the dispatch-time context; every event handler runs with it.
	ctx  context.Context
	span opentracing.Span
	out  *http.Request

	cfg         Config
	transformer BufferTransformer
	monitor     monitoring.Monitor
	logger      log.Logger

	start       time.Time
	requestTags Tags
	resp        *http.Response
	buf         *BufferAccumulator
	remoteAddr  string
}

type exchangeKey struct{}

func newExchange(ctx context.Context, span opentracing.Span, t *Transport) *Exchange {
	ex := &Exchange{
		span:        span,
		cfg:         t.cfg,
		transformer: t.transformer,
		monitor:     t.monitorFor(ctx),
		logger:      t.logger(ctx).With("context", "clienttrace/httpclient", "span_context", fmt.Sprintf("%v", span.Context())),
		start:       time.Now(),
	}

	ctx = opentracing.ContextWithSpan(ctx, span)
	ctx = context.WithValue(ctx, exchangeKey{}, ex)
	ctx = httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		GotConn: ex.gotConn,
	})
	ex.ctx = ctx
	return ex
}

// ExchangeFromContext returns the exchange a dispatched request belongs
// to, or nil.
func ExchangeFromContext(ctx context.Context) *Exchange {
	ex, _ := ctx.Value(exchangeKey{}).(*Exchange)
	return ex
}

// ExchangeFromResponse returns the exchange that observed resp, or nil.
func ExchangeFromResponse(resp *http.Response) *Exchange {
	if resp == nil || resp.Request == nil {
		return nil
	}
	return ExchangeFromContext(resp.Request.Context())
}

// ContextFromResponse returns a context whose current span is the client
// span of resp, so follow-up work continues the same trace. Untraced
// responses yield their request context.
func ContextFromResponse(resp *http.Response) context.Context {
	if ex := ExchangeFromResponse(resp); ex != nil {
		return ex.Context()
	}
	if resp != nil && resp.Request != nil {
		return resp.Request.Context()
	}
	return context.Background()
}

// Context is the dispatch-time context with the client span as current
// span.
func (ex *Exchange) Context() context.Context {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.ctx
}

func (ex *Exchange) Span() opentracing.Span {
	return ex.span
}

func (ex *Exchange) State() State {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.state
}

// BufferSize is the number of body bytes seen so far. ok is false when
// there is no buffer: before the response arrived and after the exchange
// finished.
func (ex *Exchange) BufferSize() (size int64, ok bool) {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	if ex.buf == nil {
		return 0, false
	}
	return ex.buf.TotalSize(), true
}

func (ex *Exchange) gotConn(info httptrace.GotConnInfo) {
	if info.Conn == nil || info.Conn.RemoteAddr() == nil {
		return
	}
	addr := info.Conn.RemoteAddr().String()

	ex.mu.Lock()
	ex.remoteAddr = addr
	ex.mu.Unlock()
}

func (ex *Exchange) setRequestTags(tags Tags) {
	ex.mu.Lock()
	ex.requestTags = tags
	ex.mu.Unlock()
}

// terminate moves the exchange into a terminal state and hands the buffer
// over to the caller. ok is false when it was already terminal.
func (ex *Exchange) terminate(to State) (buf *BufferAccumulator, ok bool) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	if ex.state.terminal() {
		return nil, false
	}
	ex.state = to
	buf, ex.buf = ex.buf, nil
	return buf, true
}

func (ex *Exchange) guard(stage string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			ex.logger.Debug().Log(
				"msg", fmt.Sprintf("%s failed: %v", stage, r),
				"stage", stage,
				"panic", r,
			)
		}
	}()
	f()
}

func (ex *Exchange) record(status int, err error) {
	ex.guard("recording metrics", func() {
		ex.mu.Lock()
		tags := ex.requestTags
		ex.mu.Unlock()

		if err != nil {
			ex.monitor.CountError("http_client_request", 1, err)
			return
		}

		ex.monitor.InsertRecord(
			"http_client_request",
			float64(time.Since(ex.start))/float64(time.Millisecond),
			map[string]string{
				"host":   tags.str(TagHostname),
				"method": tags.str(TagMethod),
				"status": fmt.Sprint(status),
			},
			map[string]interface{}{
				"path": tags.str(TagPath),
			},
			ex.start,
		)
	})
}
