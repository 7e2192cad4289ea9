package tracing

import (
	"context"
	"strings"
	"testing"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/pkg/errors"
	"github.com/theplant/clienttrace/log"
	jaeger "github.com/uber/jaeger-client-go"
)

func TestSpan_Noop(t *testing.T) {
	ctx := context.Background()
	err := Span(ctx, "noop", func(_ context.Context, _ opentracing.Span) error {
		return Span(ctx, "noop inner", func(_ context.Context, _ opentracing.Span) error {
			return nil
		})
	})

	if err != nil {
		t.Fatalf("received non-nil error: %v", err)
	}
}

func TestSpan_Error(t *testing.T) {
	ctx := context.Background()
	expected := errors.New("error")

	err := Span(ctx, "error", func(_ context.Context, _ opentracing.Span) error {
		return Span(ctx, "error inner", func(_ context.Context, _ opentracing.Span) error {
			return expected
		})
	})

	if err != expected {
		t.Fatalf("received unexpected error: %v", err)
	}
}

func TestSpan_Panic(t *testing.T) {
	ctx := context.Background()
	expected := errors.New("error")

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("non-error recovered: %v", r)
		}

		if errors.Cause(err) != expected && err.Error() != expected.Error() {
			t.Fatalf("unexpected value recovered: %v", err)
		}
	}()

	_ = Span(ctx, "panic", func(_ context.Context, _ opentracing.Span) error {
		panic(expected)
	})
}

func TestSpan_RecordsOnTracer(t *testing.T) {
	tracer := mocktracer.New()
	root := tracer.StartSpan("root")
	ctx := opentracing.ContextWithSpan(context.Background(), root)

	old := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(tracer)
	defer opentracing.SetGlobalTracer(old)

	_ = Span(ctx, "child", func(_ context.Context, _ opentracing.Span) error {
		return errors.New("failed")
	})

	spans := tracer.FinishedSpans()
	if len(spans) != 1 {
		t.Fatalf("expected one finished span, got %d", len(spans))
	}
	if spans[0].Tag("error") != true {
		t.Fatalf("span should be marked as errored")
	}
	if spans[0].ParentID != root.(*mocktracer.MockSpan).SpanContext.SpanID {
		t.Fatalf("span should be a child of root")
	}
}

func TestTracer_WithoutServiceName(t *testing.T) {
	t.Setenv("JAEGER_SERVICE_NAME", "")

	tracer, closer, err := Tracer(log.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closer.Close()

	if _, ok := tracer.(opentracing.NoopTracer); !ok {
		t.Fatalf("expected the noop tracer, got %T", tracer)
	}
}

func TestIDs(t *testing.T) {
	mock := mocktracer.New()
	span := mock.StartSpan("ids")
	traceID, spanID, ok := IDs(span.Context())
	if !ok || traceID == "" || spanID == "" {
		t.Fatalf("mock span ids should be readable: %q %q %v", traceID, spanID, ok)
	}

	jc := jaeger.NewSpanContext(jaeger.TraceID{Low: 0xabc}, jaeger.SpanID(0x1f), 0, true, nil)
	traceID, spanID, ok = IDs(jc)
	if !ok || !strings.HasSuffix(traceID, "abc") || !strings.HasSuffix(spanID, "1f") {
		t.Fatalf("unexpected jaeger ids: %q %q %v", traceID, spanID, ok)
	}

	if _, _, ok := IDs(opentracing.NoopTracer{}.StartSpan("noop").Context()); ok {
		t.Fatalf("noop span context should not expose ids")
	}
}

func TestSpanWith(t *testing.T) {
	tracer := mocktracer.New()

	err := SpanWith(context.Background(), tracer, "outer", func(ctx context.Context, _ opentracing.Span) error {
		return SpanWith(ctx, tracer, "inner", func(context.Context, opentracing.Span) error {
			return errors.New("inner failed")
		})
	})
	if err == nil {
		t.Fatal("error should be returned")
	}

	spans := tracer.FinishedSpans()
	if len(spans) != 2 || spans[0].OperationName != "inner" || spans[0].ParentID != spans[1].SpanContext.SpanID {
		t.Fatalf("unexpected spans %v", spans)
	}
	if spans[1].Tag("error") != true {
		t.Fatal("outer span should be marked errored")
	}
}
