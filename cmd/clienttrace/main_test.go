package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/theplant/clienttrace/httpclient"
	"github.com/theplant/clienttrace/log"
	"github.com/theplant/clienttrace/server"
)

func TestGet_PropagatesToEcho(t *testing.T) {
	backendTracer := mocktracer.New()
	srv := httptest.NewServer(server.DefaultMiddleware(log.Nop(), backendTracer)(echo{}))
	defer srv.Close()

	getFlags.method = "POST"
	getFlags.data = "ping"
	getFlags.headers = []string{"X-Request-Id: 42"}
	getFlags.timeout = 5 * time.Second
	getFlags.retries = 0

	cfg := httpclient.DefaultConfig()
	cfg.RemoteTracing = true
	cfg.RecordResponse = true

	tracer := mocktracer.New()
	out := bytes.NewBuffer(nil)
	ctx := log.Context(context.Background(), log.Nop())

	if err := get(ctx, cfg, tracer, srv.URL+"/hello", out); err != nil {
		t.Fatal(err)
	}

	var e echoed
	if err := json.Unmarshal(out.Bytes(), &e); err != nil {
		t.Fatalf("unexpected output %q: %v", out.String(), err)
	}
	if e.Method != "POST" || e.Path != "/hello" || e.Body != "ping" || !e.Traced {
		t.Fatalf("unexpected echo %+v", e)
	}
	if len(e.Headers["X-Trace-Id"]) != 1 || len(e.Headers["X-Request-Id"]) != 1 || e.Headers["X-Request-Id"][0] != "42" {
		t.Fatalf("trace headers should be propagated: %v", e.Headers)
	}

	spans := tracer.FinishedSpans()
	if len(spans) != 2 || spans[0].OperationName != "http-client" || spans[1].OperationName != "clienttrace" {
		t.Fatalf("unexpected spans %v", spans)
	}
	if spans[0].Tag(httpclient.TagStatusCode) != 200 {
		t.Fatalf("client span should be completed: %v", spans[0].Tags())
	}
}

func TestGet_RetriesAreSeparateSpans(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(rw, "try again", http.StatusServiceUnavailable)
			return
		}
		echo{}.ServeHTTP(rw, r)
	}))
	defer srv.Close()

	getFlags.method = "GET"
	getFlags.data = ""
	getFlags.headers = nil
	getFlags.timeout = 5 * time.Second
	getFlags.retries = 1
	getFlags.retryWait = time.Millisecond

	tracer := mocktracer.New()
	out := bytes.NewBuffer(nil)
	ctx := log.Context(context.Background(), log.Nop())

	if err := get(ctx, httpclient.DefaultConfig(), tracer, srv.URL, out); err != nil {
		t.Fatal(err)
	}

	var e echoed
	if err := json.Unmarshal(out.Bytes(), &e); err != nil {
		t.Fatalf("unexpected output %q: %v", out.String(), err)
	}
	if len(e.Headers["X-Request-Id"]) != 1 || e.Headers["X-Request-Id"][0] == "" {
		t.Fatalf("a request id should be generated: %v", e.Headers)
	}

	spans := tracer.FinishedSpans()
	if len(spans) != 3 {
		t.Fatalf("expected 2 attempts and the root span, got %v", spans)
	}
	if spans[0].Tag(httpclient.TagStatusCode) != 503 || spans[1].Tag(httpclient.TagStatusCode) != 200 {
		t.Fatalf("unexpected attempts %v %v", spans[0].Tags(), spans[1].Tags())
	}
}
