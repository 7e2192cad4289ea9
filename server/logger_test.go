package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/theplant/clienttrace/log"
)

func TestDefaultMiddleware_Panic(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	tracer := mocktracer.New()

	h := DefaultMiddleware(log.New(buf, ""), tracer)(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		panic("test")
	}))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest("GET", "http://example.com/test", nil))

	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status code: %d", rw.Code)
	}

	out := buf.String()
	if !strings.Contains(out, "level=crit") || !strings.Contains(out, "status=500") {
		t.Fatalf("panic and request should be logged: %s", out)
	}

	spans := tracer.FinishedSpans()
	if len(spans) != 1 || spans[0].Tag("http.status_code") != uint16(500) || spans[0].Tag("error") != true {
		t.Fatalf("server span should record the failure: %v", spans)
	}
}

func TestTrace_ContinuesTrace(t *testing.T) {
	tracer := mocktracer.New()
	parent := tracer.StartSpan("client")

	var current opentracing.Span
	h := Trace(tracer)(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		current = opentracing.SpanFromContext(r.Context())
		io.WriteString(rw, "ok")
	}))

	req := httptest.NewRequest("GET", "http://example.com/things", nil)
	if err := tracer.Inject(parent.Context(), opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(req.Header)); err != nil {
		t.Fatal(err)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)

	spans := tracer.FinishedSpans()
	if len(spans) != 1 {
		t.Fatalf("expected one server span, got %d", len(spans))
	}
	span := spans[0]
	if current != span {
		t.Fatal("server span should be current in the handler")
	}
	if span.OperationName != "GET /things" || span.ParentID != parent.(*mocktracer.MockSpan).SpanContext.SpanID {
		t.Fatalf("unexpected span %s with parent %d", span.OperationName, span.ParentID)
	}
}

func TestGoListenAndServe(t *testing.T) {
	closer, addr, err := GoListenAndServe(Config{Addr: "127.0.0.1:0"}, log.Nop(), http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		io.WriteString(rw, "pong")
	}))
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	resp, err := http.Get("http://" + addr.String())
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if string(body) != "pong" {
		t.Fatalf("unexpected body %q", body)
	}
}
