package httpclient

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// Response is the response event. It allocates the body buffer and
// observes resp.Body; the exchange completes when the body hits EOF or is
// closed. Bodies that can't be observed complete the exchange right away.
func (ex *Exchange) Response(resp *http.Response) {
	if resp == nil {
		ex.Error(ErrNoResponse)
		return
	}

	ex.mu.Lock()
	if ex.state != Dispatched {
		ex.mu.Unlock()
		return
	}
	ex.state = Responding
	ex.resp = resp
	ex.buf = NewBufferAccumulator(ex.cfg.RecordResponse, ex.cfg.MaxRecordSize)
	ex.mu.Unlock()

	if resp.Request == nil {
		resp.Request = ex.out
	}

	switch {
	case resp.Body == nil, resp.Body == http.NoBody:
		ex.End()
	case resp.StatusCode == http.StatusSwitchingProtocols:
		// the body is the upgraded connection and must stay writable
		ex.End()
	default:
		resp.Body = &observedBody{ReadCloser: resp.Body, ex: ex}
	}
}

// Data is the body data event.
func (ex *Exchange) Data(chunk []byte) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	if ex.state != Responding || ex.buf == nil {
		return
	}
	ex.buf.Append(chunk)
}

// End is the response end event. It logs the recorded body, tags status,
// remote address and size, makes the client span current on the exchange
// context and finishes the span.
func (ex *Exchange) End() {
	ex.mu.Lock()
	if ex.state != Responding {
		ex.mu.Unlock()
		return
	}
	resp, remoteAddr := ex.resp, ex.remoteAddr
	ex.mu.Unlock()

	buf, ok := ex.terminate(Completed)
	if !ok {
		return
	}
	defer buf.Clear()

	var size int64
	ex.guard("tagging response", func() {
		if ex.cfg.RecordResponse {
			fields := []interface{}{"response", ex.transform(buf.Snapshot(), resp)}
			if buf.Truncated() {
				fields = append(fields, "response.truncated", true)
			}
			ex.span.LogKV(fields...)
		}

		ext.Error.Set(ex.span, false)

		size = responseSize(resp, buf.TotalSize())
		ex.span.SetTag(TagStatusCode, resp.StatusCode)
		ex.span.SetTag(TagRemoteIP, remoteAddr)
		ex.span.SetTag(TagResponseSize, size)
	})

	ex.mu.Lock()
	ex.ctx = opentracing.ContextWithSpan(ex.ctx, ex.span)
	ex.mu.Unlock()

	ex.span.Finish()

	ex.logger.Debug().Log(
		"msg", fmt.Sprintf("http client response %d (%d bytes)", resp.StatusCode, size),
		"http.status_code", resp.StatusCode,
		"http.response_size", size,
	)
	ex.record(resp.StatusCode, nil)
}

// transform runs the buffer transformer; any error or panic yields "".
func (ex *Exchange) transform(body []byte, resp *http.Response) (v interface{}) {
	defer func() {
		if r := recover(); r != nil {
			ex.logger.Debug().Log("msg", fmt.Sprintf("transform response data panicked: %v", r))
			v = ""
		}
	}()

	v, err := ex.transformer(body, resp)
	if err != nil {
		ex.logger.Debug().Log(
			"msg", fmt.Sprintf("transform response data error: %v", err),
			"err", err,
		)
		return ""
	}
	return v
}

// responseSize prefers a numeric Content-Length header over the counted
// bytes.
func responseSize(resp *http.Response, counted int64) int64 {
	if resp == nil {
		return counted
	}
	if cl := strings.TrimSpace(resp.Header.Get("Content-Length")); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	return counted
}
