package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"
)

// instrumentationName identifies this module's meter/tracer to OTEL.
const instrumentationName = "github.com/beefkknd/deterministic-planner"

type (
	// ClueLogger delegates to goa.design/clue/log for structured logging.
	// Formatting and debug settings are read from the context (log.Context,
	// log.WithFormat, log.WithDebug).
	ClueLogger struct{}

	// ClueMetrics delegates to OTEL metrics via the global MeterProvider.
	// Configure the provider before use, typically via
	// clue.ConfigureOpenTelemetry.
	ClueMetrics struct {
		meter metric.Meter
	}

	// ClueTracer delegates to OTEL tracing via the global TracerProvider.
	ClueTracer struct {
		tracer trace.Tracer
	}

	clueSpan struct {
		span trace.Span
	}
)

func NewClueLogger() Logger { return ClueLogger{} }

func NewClueMetrics() Metrics {
	return &ClueMetrics{meter: otel.Meter(instrumentationName)}
}

func NewClueTracer() Tracer {
	return &ClueTracer{tracer: otel.Tracer(instrumentationName)}
}

// pairs walks a flat key, value, key, value... slice and invokes fn once per
// pair, substituting nil for a trailing odd key. Shared by the log-fielder
// and span-attribute builders below so the odd-length handling lives in one
// place instead of being duplicated per converter.
func pairs(kv []any, fn func(key string, val any)) {
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		var val any
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		fn(key, val)
	}
}

// withMsg prepends a msg field to whatever fielders the call already built.
func withMsg(msg string, rest []log.Fielder) []log.Fielder {
	return append([]log.Fielder{log.KV{K: "msg", V: msg}}, rest...)
}

func (ClueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	log.Debug(ctx, withMsg(msg, clueFielders(keyvals))...)
}

func (ClueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	log.Info(ctx, withMsg(msg, clueFielders(keyvals))...)
}

func (ClueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	fielders := []log.Fielder{log.KV{K: "msg", V: msg}, log.KV{K: "severity", V: "warning"}}
	log.Warn(ctx, append(fielders, clueFielders(keyvals)...)...)
}

func (ClueLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	log.Error(ctx, nil, withMsg(msg, clueFielders(keyvals))...)
}

func clueFielders(keyvals []any) []log.Fielder {
	var out []log.Fielder
	pairs(keyvals, func(k string, v any) { out = append(out, log.KV{K: k, V: v}) })
	return out
}

// recordHistogram is the shared path for timers and gauges: OTEL's
// synchronous instrument set has no gauge, so both land on a histogram,
// distinguished only by name.
func (m *ClueMetrics) recordHistogram(name string, value float64, tags []string) {
	histogram, err := m.meter.Float64Histogram(name)
	if err != nil {
		return
	}
	histogram.Record(context.Background(), value, metric.WithAttributes(tagAttrs(tags)...))
}

func (m *ClueMetrics) IncCounter(name string, value float64, tags ...string) {
	counter, err := m.meter.Float64Counter(name)
	if err != nil {
		return
	}
	counter.Add(context.Background(), value, metric.WithAttributes(tagAttrs(tags)...))
}

func (m *ClueMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	m.recordHistogram(name, duration.Seconds(), tags)
}

// RecordGauge records a point-in-time value. OTEL has no synchronous gauge
// instrument, so the value lands on a histogram under a "_gauge"-suffixed
// name instead.
func (m *ClueMetrics) RecordGauge(name string, value float64, tags ...string) {
	m.recordHistogram(name+"_gauge", value, tags)
}

func tagAttrs(tags []string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for i := 0; i < len(tags); i += 2 {
		v := ""
		if i+1 < len(tags) {
			v = tags[i+1]
		}
		attrs = append(attrs, attribute.String(tags[i], v))
	}
	return attrs
}

func (t *ClueTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	newCtx, span := t.tracer.Start(ctx, name, opts...)
	return newCtx, &clueSpan{span: span}
}

func (s *clueSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

func (s *clueSpan) AddEvent(name string, attrs ...any) {
	s.span.AddEvent(name, trace.WithAttributes(spanAttrs(attrs)...))
}

func (s *clueSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s *clueSpan) RecordError(err error, opts ...trace.EventOption) {
	s.span.RecordError(err, opts...)
}

// spanAttrs converts flat key, value pairs into OTEL span attributes,
// picking the attribute constructor from the value's dynamic type. Values of
// an unrecognized type fall back to an empty string rather than being
// dropped, so callers always get one attribute per key.
func spanAttrs(keyvals []any) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	pairs(keyvals, func(k string, v any) {
		attrs = append(attrs, attrFor(k, v))
	})
	return attrs
}

func attrFor(key string, val any) attribute.KeyValue {
	switch v := val.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	default:
		return attribute.String(key, "")
	}
}
