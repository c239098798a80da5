package spanz

// SpanContextConfig holds the fields of a SpanContext built at an adapter boundary.
// A nil Options or State means the field is absent.
type SpanContextConfig struct {
	Options *TraceOptions
	State   *TraceState
	TraceID TraceID
	SpanID  SpanID
}

// SpanContext is the immutable identity snapshot of a span, carried across
// process or service boundaries. SpanID is the ID of the span that produced it.
//
//nolint:govet // Field order mirrors the propagated identity.
type SpanContext struct {
	traceID    TraceID
	spanID     SpanID
	options    TraceOptions
	hasOptions bool
	state      TraceState
	hasState   bool
}

// NewSpanContext builds a SpanContext. Propagation adapters use it after decoding
// a received context; everything else obtains contexts from ExtractContext.
func NewSpanContext(cfg SpanContextConfig) SpanContext {
	sc := SpanContext{
		traceID: cfg.TraceID,
		spanID:  cfg.SpanID,
	}
	if cfg.Options != nil {
		sc.options = *cfg.Options
		sc.hasOptions = true
	}
	if cfg.State != nil {
		sc.state = *cfg.State
		sc.hasState = true
	}
	return sc
}

// TraceID returns the trace ID.
func (sc SpanContext) TraceID() TraceID {
	return sc.traceID
}

// SpanID returns the ID of the span this context was taken from.
func (sc SpanContext) SpanID() SpanID {
	return sc.spanID
}

// Options returns the trace options and whether they are present.
func (sc SpanContext) Options() (TraceOptions, bool) {
	return sc.options, sc.hasOptions
}

// State returns the trace state and whether it is present.
func (sc SpanContext) State() (TraceState, bool) {
	return sc.state, sc.hasState
}

// IsSampled reports whether options are present with the sampling flag set.
func (sc SpanContext) IsSampled() bool {
	return sc.hasOptions && sc.options.IsSampling()
}

// IsValid reports whether both IDs are non-zero.
func (sc SpanContext) IsValid() bool {
	return !sc.traceID.IsZero() && !sc.spanID.IsZero()
}

// Equal reports whether both contexts carry the same identity, options and state.
func (sc SpanContext) Equal(other SpanContext) bool {
	return sc.traceID == other.traceID &&
		sc.spanID == other.spanID &&
		sc.hasOptions == other.hasOptions &&
		sc.options == other.options &&
		sc.hasState == other.hasState &&
		sc.state.Equal(other.state)
}
