package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry owns the tracer provider for one process. A nil *Telemetry
// behaves like a disabled one.
type Telemetry struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	logProvider    log.LoggerProvider

	mu          sync.Mutex
	degradedErr error
	stopped     bool
	stopErr     error
}

// Health describes a Telemetry instance. Degraded means tracing was
// requested but could not start; Err says why.
type Health struct {
	Active   bool
	Degraded bool
	Err      error
}

// New builds telemetry from cfg. When enabled it installs the tracer
// provider and a W3C trace-context plus baggage propagator globally.
// Exporter construction errors do not fail New: tracing stays off and
// Health reports the error.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}
	t := &Telemetry{config: cfg}
	if !cfg.Enabled {
		return t, nil
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	exp, err := o.spanExporter(ctx, cfg)
	if err != nil {
		t.degradedErr = err
		return t, nil
	}

	t.tracerProvider = newTracerProvider(cfg, exp)
	otel.SetTracerProvider(t.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

// Tracer returns a tracer from the owned provider, or from the global
// no-op provider when tracing is off.
func (t *Telemetry) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if t == nil || t.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return t.tracerProvider.Tracer(name, opts...)
}

// LoggerProvider feeds the otelzap bridge. It is nil unless a log
// exporter was attached.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if t == nil {
		return nil
	}
	return t.logProvider
}

// ForceFlush exports buffered spans now.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil || t.tracerProvider == nil {
		return nil
	}
	if err := t.tracerProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("flushing spans: %w", err)
	}
	return nil
}

// Shutdown flushes and stops tracing. Without a deadline on ctx it waits at
// most Config.ShutdownTimeout. Repeated calls return the first result.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return t.stopErr
	}
	t.stopped = true

	if t.tracerProvider == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.ShutdownTimeout)
		defer cancel()
	}
	if err := t.tracerProvider.Shutdown(ctx); err != nil {
		t.stopErr = fmt.Errorf("stopping tracer provider: %w", err)
	}
	return t.stopErr
}

// Health reports the current state. A nil Telemetry is inactive but not
// degraded.
func (t *Telemetry) Health() Health {
	if t == nil {
		return Health{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return Health{
		Active:   t.tracerProvider != nil && !t.stopped,
		Degraded: t.degradedErr != nil,
		Err:      t.degradedErr,
	}
}
