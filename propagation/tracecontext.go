package propagation

import (
	"context"
	"fmt"

	"github.com/zoobzio/spanz"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TraceContext propagates spanz span contexts using W3C traceparent and tracestate
// headers. It implements OpenTelemetry's TextMapPropagator, so it can be installed
// with otel.SetTextMapPropagator and used with propagation.HeaderCarrier or MapCarrier.
//
// Unlike OpenTelemetry's own TraceContext propagator it writes every flag bit.
//
// Logger, when set, receives headers that could not be written or read. A bad
// tracestate never discards a valid traceparent.
type TraceContext struct {
	Logger *zap.Logger
}

var _ propagation.TextMapPropagator = TraceContext{}

// Inject writes the span context carried by ctx into carrier. A local spanz span
// wins over a remote spanz context, which wins over an OpenTelemetry span context.
// Nothing is written when ctx carries no valid context.
func (tc TraceContext) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	sc, ok := spanz.SpanContextFromContext(ctx)
	if !ok {
		otsc := trace.SpanContextFromContext(ctx)
		if !otsc.IsValid() {
			return
		}
		var err error
		if sc, err = FromOTel(otsc); err != nil {
			return
		}
	}
	if err := tc.InjectSpanContext(sc, carrier); err != nil {
		tc.logger().Debug("trace context not injected", zap.Error(err))
	}
}

// Extract reads a span context from carrier and returns a copy of ctx carrying it,
// both as a spanz remote context and, when representable, as an OpenTelemetry
// remote span context. ctx is returned unchanged if nothing valid is found.
func (tc TraceContext) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	sc, err := tc.ExtractSpanContext(carrier)
	if err != nil {
		return ctx
	}
	ctx = spanz.ContextWithRemoteSpanContext(ctx, sc)
	if otsc, err := ToOTel(sc); err == nil {
		ctx = trace.ContextWithRemoteSpanContext(ctx, otsc)
	}
	return ctx
}

// Fields returns the header names this propagator reads and writes.
func (TraceContext) Fields() []string {
	return []string{TraceparentHeader, TracestateHeader}
}

// InjectSpanContext writes sc into carrier. The tracestate header is written only
// when state is present and non-empty. Nothing is written on error.
func (TraceContext) InjectSpanContext(sc spanz.SpanContext, carrier propagation.TextMapCarrier) error {
	if !sc.IsValid() {
		return fmt.Errorf("%w: zero trace or span id", ErrMalformedContext)
	}
	var tracestate string
	if state, ok := sc.State(); ok && state.Len() > 0 {
		var err error
		if tracestate, err = FormatTraceState(state); err != nil {
			return err
		}
	}
	if tracestate != "" {
		carrier.Set(TracestateHeader, tracestate)
	}
	carrier.Set(TraceparentHeader, FormatTraceparent(sc))
	return nil
}

// ExtractSpanContext decodes the span context in carrier. It reports
// ErrMissingContext when there is no traceparent and ErrMalformedContext when
// the traceparent cannot be decoded. A malformed tracestate is dropped and the
// context is returned with state absent. Options are always present on success;
// state is present only when a valid, non-empty tracestate header was received.
func (tc TraceContext) ExtractSpanContext(carrier propagation.TextMapCarrier) (spanz.SpanContext, error) {
	h := carrier.Get(TraceparentHeader)
	if h == "" {
		return spanz.SpanContext{}, ErrMissingContext
	}

	traceID, spanID, options, err := ParseTraceparent(h)
	if err != nil {
		return spanz.SpanContext{}, err
	}

	cfg := spanz.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
		Options: &options,
	}

	if raw := carrier.Get(TracestateHeader); raw != "" {
		state, err := ParseTraceState(raw)
		switch {
		case err != nil:
			tc.logger().Debug("dropping malformed tracestate",
				zap.String("trace_id", traceID.String()),
				zap.Error(err),
			)
		case state.Len() > 0:
			cfg.State = &state
		}
	}

	return spanz.NewSpanContext(cfg), nil
}

func (tc TraceContext) logger() *zap.Logger {
	if tc.Logger == nil {
		return zap.NewNop()
	}
	return tc.Logger
}
