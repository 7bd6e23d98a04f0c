package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry records spans in memory. Use Tracer to hand its provider to
// the code under test; the global provider is left untouched.
type TestTelemetry struct {
	*Telemetry
	recorder *tracetest.SpanRecorder
}

// NewTestTelemetry returns an enabled Telemetry backed by a span recorder.
func NewTestTelemetry() *TestTelemetry {
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	rec := tracetest.NewSpanRecorder()
	tel := &Telemetry{
		config:         cfg,
		tracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)),
	}
	return &TestTelemetry{Telemetry: tel, recorder: rec}
}

// Spans returns the ended spans in the order they ended.
func (t *TestTelemetry) Spans() []sdktrace.ReadOnlySpan {
	return t.recorder.Ended()
}

// SpanByName returns the first ended span called name, or nil.
func (t *TestTelemetry) SpanByName(name string) sdktrace.ReadOnlySpan {
	for _, s := range t.Spans() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func (t *TestTelemetry) mustSpan(tb testing.TB, name string) sdktrace.ReadOnlySpan {
	tb.Helper()
	s := t.SpanByName(name)
	if s == nil {
		names := make([]string, 0, len(t.Spans()))
		for _, s := range t.Spans() {
			names = append(names, s.Name())
		}
		tb.Fatalf("span %q not recorded; have %v", name, names)
	}
	return s
}

// AssertSpanExists fails tb unless a span called name ended.
func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	t.mustSpan(tb, name)
}

// AssertSpanError fails tb unless the span ended with an error status.
func (t *TestTelemetry) AssertSpanError(tb testing.TB, name string) {
	tb.Helper()
	if code := t.mustSpan(tb, name).Status().Code; code != codes.Error {
		tb.Errorf("span %q: status %v, want Error", name, code)
	}
}

// AssertSpanParent fails tb unless child was started inside parent.
func (t *TestTelemetry) AssertSpanParent(tb testing.TB, parent, child string) {
	tb.Helper()
	p, c := t.mustSpan(tb, parent), t.mustSpan(tb, child)
	if c.Parent().SpanID() != p.SpanContext().SpanID() {
		tb.Errorf("span %q is not a child of %q", child, parent)
	}
}

// AssertSpanAttribute fails tb unless the span carries key with a value
// equal to want. Integers compare as int64.
func (t *TestTelemetry) AssertSpanAttribute(tb testing.TB, name, key string, want any) {
	tb.Helper()
	for _, kv := range t.mustSpan(tb, name).Attributes() {
		if string(kv.Key) != key {
			continue
		}
		if got := kv.Value.AsInterface(); got != want {
			tb.Errorf("span %q attribute %q = %v (%T), want %v (%T)", name, key, got, got, want, want)
		}
		return
	}
	tb.Errorf("span %q has no attribute %q", name, key)
}
