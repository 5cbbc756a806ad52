// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package satsotel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Query-farm/sats-go/sats"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type greetArgs struct {
	Name string `sats:"name"`
}

type captureConn struct {
	metadata map[string]string
	err      error
}

func (c *captureConn) Send(ctx context.Context, frame []byte) error {
	c.metadata = sats.CallMetadata(ctx)
	return c.err
}

func newInstrumentedClient(t *testing.T, conn sats.Conn) (*sats.Client, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	registry := sats.NewRegistry("greeter")
	sats.RegisterReducer[greetArgs](registry, "greet", sats.NotLifecycle)

	recorder := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	cfg := DefaultConfig()
	cfg.TracerProvider = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	cfg.MeterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	cfg.Propagator = propagation.TraceContext{}
	cfg.CustomAttributes = []attribute.KeyValue{attribute.String("deployment", "test")}

	client := sats.NewClient(registry, conn)
	client.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	InstrumentClient(client, cfg)
	return client, recorder, reader
}

func spanAttr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestSpanForSuccessfulCall(t *testing.T) {
	conn := &captureConn{}
	client, recorder, _ := newInstrumentedClient(t, conn)

	id, err := client.CallReducer(context.Background(), "greet", greetArgs{Name: "ann"}, sats.NoSuccessNotify)
	if err != nil {
		t.Fatal(err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans", len(spans))
	}
	span := spans[0]
	if span.Name() != "sats/greet" {
		t.Errorf("span name = %q", span.Name())
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("status = %v", span.Status())
	}
	for key, want := range map[string]string{
		"rpc.system":     "sats",
		"rpc.service":    "greeter",
		"rpc.method":     "greet",
		"rpc.sats.flags": "NoSuccessNotify",
		"deployment":     "test",
	} {
		if got, ok := spanAttr(span.Attributes(), key); !ok || got.AsString() != want {
			t.Errorf("attribute %s = %v, want %q", key, got.AsString(), want)
		}
	}
	if got, _ := spanAttr(span.Attributes(), "rpc.sats.request_id"); got.AsInt64() != int64(id) {
		t.Errorf("request id attribute = %d", got.AsInt64())
	}
	if got, _ := spanAttr(span.Attributes(), "rpc.sats.args_bytes"); got.AsInt64() != 7 {
		t.Errorf("args bytes attribute = %d", got.AsInt64())
	}
	if conn.metadata["traceparent"] == "" {
		t.Errorf("trace context not injected: %v", conn.metadata)
	}
}

func TestSpanForFailedCall(t *testing.T) {
	client, recorder, _ := newInstrumentedClient(t, &captureConn{})

	_, err := client.CallReducer(context.Background(), "greet", 42, sats.FullUpdate)
	if !errors.Is(err, sats.ErrTypeMismatch) {
		t.Fatalf("got %v", err)
	}
	_, err = client.CallReducer(context.Background(), "missing", nil, sats.FullUpdate)
	if !errors.Is(err, sats.ErrUnknownReducer) {
		t.Fatalf("got %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans", len(spans))
	}
	for i, want := range []string{"TypeMismatch", "UnknownReducer"} {
		if spans[i].Status().Code != codes.Error {
			t.Errorf("span %d status = %v", i, spans[i].Status())
		}
		if got, _ := spanAttr(spans[i].Attributes(), "rpc.sats.error_type"); got.AsString() != want {
			t.Errorf("span %d error type = %q, want %q", i, got.AsString(), want)
		}
		if len(spans[i].Events()) == 0 {
			t.Errorf("span %d has no exception event", i)
		}
	}
}

func TestCallMetrics(t *testing.T) {
	client, _, reader := newInstrumentedClient(t, &captureConn{})
	ctx := context.Background()
	for range 3 {
		if _, err := client.CallReducer(ctx, "greet", greetArgs{Name: "x"}, sats.FullUpdate); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := client.CallReducer(ctx, "greet", greetArgs{}, sats.FullUpdate); err != nil {
		t.Fatal(err)
	}
	failing, _, _ := newInstrumentedClient(t, &captureConn{err: io.ErrClosedPipe})
	if _, err := failing.CallReducer(ctx, "greet", greetArgs{}, sats.FullUpdate); err == nil {
		t.Fatal("expected transport error")
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	var calls int64
	var sawHistogram bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if m.Name != "sats.client.calls" {
					continue
				}
				for _, dp := range data.DataPoints {
					calls += dp.Value
				}
			case metricdata.Histogram[float64]:
				sawHistogram = m.Name == "sats.client.duration"
			}
		}
	}
	if calls != 4 {
		t.Errorf("counted %d calls, want 4", calls)
	}
	if !sawHistogram {
		t.Error("duration histogram not recorded")
	}
}

func TestErrorType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want string
	}{
		{&sats.Error{Kind: sats.InvalidTag}, "InvalidTag"},
		{sats.ErrLifecycleReducer, "LifecycleReducer"},
		{io.EOF, "*errors.errorString"},
	}
	for _, tt := range tests {
		if got := errorType(tt.err); got != tt.want {
			t.Errorf("errorType(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestDisabledTracing(t *testing.T) {
	t.Parallel()
	recorder := tracetest.NewSpanRecorder()
	cfg := Config{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)),
		MeterProvider:  sdkmetric.NewMeterProvider(),
	}
	hook := NewHook(cfg)
	ctx, token := hook.OnCallStart(context.Background(), sats.CallInfo{Reducer: "r", Metadata: map[string]string{}})
	hook.OnCallEnd(ctx, token, sats.CallInfo{Reducer: "r"}, &sats.CallStatistics{}, nil)
	if n := len(recorder.Ended()); n != 0 {
		t.Errorf("recorded %d spans with tracing disabled", n)
	}
}
