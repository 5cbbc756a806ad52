// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package satsotel provides OpenTelemetry instrumentation for reducer
// calls. It implements the [sats.CallHook] interface to add distributed
// tracing and metrics to each call.
//
// Usage:
//
//	client := sats.NewClient(registry, conn)
//	satsotel.InstrumentClient(client, satsotel.DefaultConfig())
package satsotel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Query-farm/sats-go/sats"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "sats"

// Config configures OpenTelemetry instrumentation for a sats client.
type Config struct {
	// TracerProvider supplies the tracer. Defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// MeterProvider supplies the meter. Defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// Propagator injects trace context into the call's transport metadata.
	// Defaults to otel.GetTextMapPropagator().
	Propagator propagation.TextMapPropagator
	// EnableTracing enables span creation. Default true.
	EnableTracing bool
	// EnableMetrics enables counter and histogram recording. Default true.
	EnableMetrics bool
	// RecordExceptions calls RecordError on the span for failed calls.
	// Default true.
	RecordExceptions bool
	// CustomAttributes are added to every span.
	CustomAttributes []attribute.KeyValue
}

// DefaultConfig returns a Config with tracing, metrics and exception
// recording enabled. Providers and the propagator are resolved from the
// global OTel SDK at instrumentation time.
func DefaultConfig() Config {
	return Config{
		EnableTracing:    true,
		EnableMetrics:    true,
		RecordExceptions: true,
	}
}

// InstrumentClient attaches OpenTelemetry instrumentation to a client via
// [sats.Client.SetCallHook].
func InstrumentClient(client *sats.Client, cfg Config) {
	client.SetCallHook(NewHook(cfg))
}

// NewHook builds the CallHook used by InstrumentClient.
func NewHook(cfg Config) sats.CallHook {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}

	hook := &otelHook{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}

	if cfg.EnableMetrics {
		meter := cfg.MeterProvider.Meter(instrumentationName)
		hook.callCounter, _ = meter.Int64Counter("sats.client.calls",
			metric.WithUnit("{call}"),
			metric.WithDescription("Number of reducer calls"),
		)
		hook.durationHistogram, _ = meter.Float64Histogram("sats.client.duration",
			metric.WithUnit("s"),
			metric.WithDescription("Duration of reducer calls"),
		)
	}
	return hook
}

type otelHook struct {
	cfg               Config
	tracer            trace.Tracer
	callCounter       metric.Int64Counter
	durationHistogram metric.Float64Histogram
}

// spanToken is the HookToken returned by OnCallStart.
type spanToken struct {
	span      trace.Span
	startTime time.Time
}

func (h *otelHook) OnCallStart(ctx context.Context, info sats.CallInfo) (context.Context, sats.HookToken) {
	if !h.cfg.EnableTracing {
		return ctx, &spanToken{startTime: time.Now()}
	}

	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", "sats"),
		attribute.String("rpc.service", info.Module),
		attribute.String("rpc.method", info.Reducer),
		attribute.Int64("rpc.sats.request_id", int64(info.RequestID)),
		attribute.String("rpc.sats.flags", info.Flags.String()),
	}
	attrs = append(attrs, h.cfg.CustomAttributes...)

	ctx, span := h.tracer.Start(ctx, fmt.Sprintf("sats/%s", info.Reducer),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	if h.cfg.Propagator != nil && info.Metadata != nil {
		h.cfg.Propagator.Inject(ctx, propagation.MapCarrier(info.Metadata))
	}

	return ctx, &spanToken{span: span, startTime: time.Now()}
}

func (h *otelHook) OnCallEnd(ctx context.Context, token sats.HookToken, info sats.CallInfo, stats *sats.CallStatistics, err error) {
	st, ok := token.(*spanToken)
	if !ok {
		return
	}

	duration := time.Since(st.startTime)

	status := "ok"
	if err != nil {
		status = "error"
	}

	if h.cfg.EnableMetrics {
		metricAttrs := metric.WithAttributes(
			attribute.String("rpc.system", "sats"),
			attribute.String("rpc.service", info.Module),
			attribute.String("rpc.method", info.Reducer),
			attribute.String("status", status),
		)
		if h.callCounter != nil {
			h.callCounter.Add(ctx, 1, metricAttrs)
		}
		if h.durationHistogram != nil {
			h.durationHistogram.Record(ctx, duration.Seconds(), metricAttrs)
		}
	}

	if st.span == nil || !st.span.IsRecording() {
		return
	}
	if stats != nil {
		st.span.SetAttributes(
			attribute.Int64("rpc.sats.args_bytes", stats.ArgsBytes),
			attribute.Int64("rpc.sats.frame_bytes", stats.FrameBytes),
		)
	}
	if err != nil {
		st.span.SetStatus(codes.Error, err.Error())
		if h.cfg.RecordExceptions {
			st.span.RecordError(err)
		}
		st.span.SetAttributes(attribute.String("rpc.sats.error_type", errorType(err)))
	} else {
		st.span.SetStatus(codes.Ok, "")
	}
	st.span.End()
}

// errorType names the failure class: the codec error kind, a registry
// lookup failure, or the Go type of err.
func errorType(err error) string {
	if kind := sats.KindOf(err); kind != 0 {
		return kind.String()
	}
	switch {
	case errors.Is(err, sats.ErrUnknownReducer):
		return "UnknownReducer"
	case errors.Is(err, sats.ErrLifecycleReducer):
		return "LifecycleReducer"
	}
	return fmt.Sprintf("%T", err)
}
