// Package spanz defines span identity and its propagation across boundaries.
//
// A trace is a tree of spans sharing one TraceID. Each Span has its own SpanID,
// an optional parent SpanID, optional TraceOptions (an 8-bit flags register whose
// bit 1 is the sampling flag) and optional TraceState (ordered vendor baggage).
//
// Core Components:
//   - IDGenerator: mints TraceIDs (UUIDv4 layout) and SpanIDs (64 random bits).
//   - Tracer: starts spans and delivers closed-span records to handlers.
//   - Span: a unit of work, open until Close stamps its end time.
//   - SpanContext: the immutable identity snapshot carried across boundaries.
//   - Collector: buffers closed-span records for export.
//
// Basic Usage:
//
//	tracer := spanz.New()
//	defer tracer.Close()
//
//	root := tracer.StartRoot()
//	defer root.Close()
//
//	// Crossing a boundary.
//	sc := spanz.ExtractContext(root)
//
//	// On the receiving side.
//	child := tracer.StartFromContext(sc)
//	defer child.Close()
//
// The two conversions are explicit: ExtractContext mints nothing, while
// StartFromContext mints the child's span ID and makes the context's span ID
// its parent. Trace ID, options and state pass through both unchanged.
//
// Thread Safety:
//
// Tracer, generators and Collector are safe for concurrent use. SpanContext,
// TraceOptions, TraceState and IDs are immutable values. Span.Close may be
// called from several cleanup paths; only the first call records an end time.
//
// Wire formats live in the propagation subpackage.
package spanz
