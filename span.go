package spanz

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// bundleKeyType is a private type for context keys to avoid collisions.
type bundleKeyType string

const (
	spanKey   bundleKeyType = "spanz.span"
	remoteKey bundleKeyType = "spanz.remote"
)

// Span is the local runtime unit of work.
// Identity fields are fixed at construction. The only transition is Close,
// which is guarded so concurrent cleanup paths may call it safely.
//
//nolint:govet // Field order groups identity ahead of lifecycle state.
type Span struct {
	traceID    TraceID
	spanID     SpanID
	parentID   SpanID
	hasParent  bool
	options    TraceOptions
	hasOptions bool
	state      TraceState
	hasState   bool
	start      time.Time

	tracer *Tracer
	clock  clockz.Clock
	mu     sync.Mutex // Protects end and closed.
	end    time.Time
	closed bool
}

// TraceID returns the trace ID shared by every span in the trace.
func (s *Span) TraceID() TraceID {
	return s.traceID
}

// SpanID returns this span's ID.
func (s *Span) SpanID() SpanID {
	return s.spanID
}

// ParentID returns the parent span ID and whether the span has a parent.
func (s *Span) ParentID() (SpanID, bool) {
	return s.parentID, s.hasParent
}

// IsRoot reports whether the span has no parent.
func (s *Span) IsRoot() bool {
	return !s.hasParent
}

// Options returns the trace options and whether they are present.
func (s *Span) Options() (TraceOptions, bool) {
	return s.options, s.hasOptions
}

// State returns the trace state and whether it is present.
func (s *Span) State() (TraceState, bool) {
	return s.state, s.hasState
}

// StartTime returns when the span was created.
func (s *Span) StartTime() time.Time {
	return s.start
}

// EndTime returns when the span was closed and whether it has been.
func (s *Span) EndTime() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.end, s.closed
}

// Duration returns end minus start once the span is closed.
func (s *Span) Duration() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		return 0, false
	}
	return s.end.Sub(s.start), true
}

// IsClosed reports whether Close has been called.
func (s *Span) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close records the end time and hands a snapshot to the tracer's close handlers.
// Safe to call multiple times - subsequent calls are no-ops and keep the first end time.
func (s *Span) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	end := s.now()
	if end.Before(s.start) {
		end = s.start
	}
	s.end = end
	s.closed = true
	record := s.recordLocked()
	s.mu.Unlock()

	if s.tracer != nil {
		s.tracer.spanClosed(record)
	}
}

func (s *Span) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

// Context extracts this span's SpanContext. See ExtractContext.
func (s *Span) Context() SpanContext {
	return ExtractContext(s)
}

// Record returns an immutable snapshot of the span.
func (s *Span) Record() SpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked()
}

func (s *Span) recordLocked() SpanRecord {
	r := SpanRecord{
		TraceID:   s.traceID,
		SpanID:    s.spanID,
		StartTime: s.start,
	}
	if s.hasParent {
		parent := s.parentID
		r.ParentID = &parent
	}
	if s.hasOptions {
		options := s.options
		r.Options = &options
	}
	if s.hasState {
		state := s.state
		r.State = &state
	}
	if s.closed {
		r.EndTime = s.end
		r.Duration = s.end.Sub(s.start)
	}
	return r
}

// ExtractContext snapshots a span's identity for crossing a boundary.
// Trace ID, the span's own ID, options and state are copied verbatim; nothing is minted.
func ExtractContext(s *Span) SpanContext {
	return SpanContext{
		traceID:    s.traceID,
		spanID:     s.spanID,
		options:    s.options,
		hasOptions: s.hasOptions,
		state:      s.state,
		hasState:   s.hasState,
	}
}

// ContextWithSpan returns a copy of parent carrying span.
func ContextWithSpan(parent context.Context, span *Span) context.Context {
	return context.WithValue(parent, spanKey, span)
}

// SpanFromContext returns the span carried by ctx, or nil if none is present.
func SpanFromContext(ctx context.Context) *Span {
	if ctx == nil {
		return nil
	}
	if span, ok := ctx.Value(spanKey).(*Span); ok {
		return span
	}
	return nil
}

// ContextWithRemoteSpanContext returns a copy of parent carrying a SpanContext
// received from another process.
func ContextWithRemoteSpanContext(parent context.Context, sc SpanContext) context.Context {
	return context.WithValue(parent, remoteKey, sc)
}

// RemoteSpanContextFromContext returns the remote SpanContext carried by ctx.
func RemoteSpanContextFromContext(ctx context.Context) (SpanContext, bool) {
	if ctx == nil {
		return SpanContext{}, false
	}
	sc, ok := ctx.Value(remoteKey).(SpanContext)
	return sc, ok
}

// SpanContextFromContext returns the context of the local span in ctx, falling
// back to a remote SpanContext.
func SpanContextFromContext(ctx context.Context) (SpanContext, bool) {
	if span := SpanFromContext(ctx); span != nil {
		return span.Context(), true
	}
	return RemoteSpanContextFromContext(ctx)
}
