package propagation

import (
	"fmt"

	"github.com/zoobzio/spanz"
	"go.opentelemetry.io/otel/trace"
)

// ToOTel converts sc to an OpenTelemetry remote span context.
// Absent options map to zero trace flags; absent or empty state maps to an empty TraceState.
func ToOTel(sc spanz.SpanContext) (trace.SpanContext, error) {
	if !sc.IsValid() {
		return trace.SpanContext{}, fmt.Errorf("%w: zero trace or span id", ErrMalformedContext)
	}

	cfg := trace.SpanContextConfig{
		TraceID: trace.TraceID(sc.TraceID()),
		SpanID:  trace.SpanID(sc.SpanID()),
		Remote:  true,
	}
	if opts, ok := sc.Options(); ok {
		cfg.TraceFlags = trace.TraceFlags(WireFlags(opts))
	}
	if state, ok := sc.State(); ok && state.Len() > 0 {
		h, err := FormatTraceState(state)
		if err != nil {
			return trace.SpanContext{}, err
		}
		ts, err := trace.ParseTraceState(h)
		if err != nil {
			return trace.SpanContext{}, fmt.Errorf("%w: %w", ErrUnrepresentableState, err)
		}
		cfg.TraceState = ts
	}
	return trace.NewSpanContext(cfg), nil
}

// FromOTel converts an OpenTelemetry span context. Options are always present;
// state is present only when the OpenTelemetry trace state is non-empty.
func FromOTel(otsc trace.SpanContext) (spanz.SpanContext, error) {
	if !otsc.IsValid() {
		return spanz.SpanContext{}, fmt.Errorf("%w: invalid OpenTelemetry span context", ErrMalformedContext)
	}

	options := OptionsFromWire(byte(otsc.TraceFlags()))
	cfg := spanz.SpanContextConfig{
		TraceID: spanz.TraceID(otsc.TraceID()),
		SpanID:  spanz.SpanID(otsc.SpanID()),
		Options: &options,
	}
	if otsc.TraceState().Len() > 0 {
		state, err := ParseTraceState(otsc.TraceState().String())
		if err != nil {
			return spanz.SpanContext{}, err
		}
		cfg.State = &state
	}
	return spanz.NewSpanContext(cfg), nil
}
