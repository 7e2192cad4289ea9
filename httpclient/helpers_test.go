package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
)

func startTrace() (*mocktracer.MockTracer, context.Context, *mocktracer.MockSpan) {
	tracer := mocktracer.New()
	parent := tracer.StartSpan("parent").(*mocktracer.MockSpan)
	return tracer, opentracing.ContextWithSpan(context.Background(), parent), parent
}

func onlySpan(t *testing.T, tracer *mocktracer.MockTracer) *mocktracer.MockSpan {
	t.Helper()
	spans := tracer.FinishedSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 finished span, got %d", len(spans))
	}
	return spans[0]
}

func logged(span *mocktracer.MockSpan) map[string]string {
	fields := map[string]string{}
	for _, rec := range span.Logs() {
		for _, f := range rec.Fields {
			fields[f.Key] = f.ValueString
		}
	}
	return fields
}

func respond(status int, body string, header http.Header) DispatchFunc {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Header:     header,
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
		}, nil
	}
}

func get(t *testing.T, ctx context.Context, rt http.RoundTripper, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

type codedError string

func (e codedError) Error() string { return "coded: " + string(e) }
func (e codedError) Code() string  { return string(e) }

type recordingMonitor struct {
	mu      sync.Mutex
	records []string
}

func (m *recordingMonitor) InsertRecord(measurement string, _ interface{}, tags map[string]string, fields map[string]interface{}, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, fmt.Sprintf("%s %s %s %s %v", measurement, tags["method"], tags["host"], tags["status"], fields["path"]))
}

func (m *recordingMonitor) CountError(measurement string, _ float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, fmt.Sprintf("%s error %v", measurement, err))
}
