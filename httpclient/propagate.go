package httpclient

import (
	"net/http"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
)

// InjectHeaders sets the trace and span id headers on h, leaving values
// the caller already set alone. A nil h gets a new header holding both.
func InjectHeaders(h http.Header, names HeaderNames, traceID, spanID string) http.Header {
	if h == nil {
		h = http.Header{}
		h.Set(names.TraceID, traceID)
		h.Set(names.SpanID, spanID)
		return h
	}

	if h.Get(names.TraceID) == "" {
		h.Set(names.TraceID, traceID)
	}
	if h.Get(names.SpanID) == "" {
		h.Set(names.SpanID, spanID)
	}
	return h
}

// MergeHeaders copies src into dst, skipping keys dst already has a value
// for.
func MergeHeaders(dst, src http.Header) http.Header {
	if dst == nil {
		dst = http.Header{}
	}
	for k, vs := range src {
		if dst.Get(k) != "" {
			continue
		}
		dst[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	return dst
}

// propagate writes span's context into out's headers. The header map is
// cloned first so the caller's request is never modified.
func (t *Transport) propagate(out *http.Request, span opentracing.Span) error {
	header := out.Header.Clone()

	if traceID, spanID, ok := t.ids(span.Context()); ok {
		out.Header = InjectHeaders(header, t.headers, traceID, spanID)
		return nil
	}

	carrier := http.Header{}
	err := t.tracer.Inject(span.Context(), opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(carrier))
	if err != nil {
		return errors.Wrap(err, "injecting span context")
	}
	out.Header = MergeHeaders(header, carrier)
	return nil
}
