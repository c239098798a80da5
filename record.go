package spanz

import "time"

// SpanRecord is an immutable snapshot of a span handed to close handlers and collectors.
// Absent optional fields are nil.
//
//nolint:govet // Field alignment optimized for JSON serialization order
type SpanRecord struct {
	TraceID   TraceID       `json:"trace_id"`
	SpanID    SpanID        `json:"span_id"`
	ParentID  *SpanID       `json:"parent_id,omitempty"`
	Options   *TraceOptions `json:"options,omitempty"`
	State     *TraceState   `json:"state,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// clone copies the optional fields so the result shares no memory with r.
func (r SpanRecord) clone() SpanRecord {
	out := r
	if r.ParentID != nil {
		parent := *r.ParentID
		out.ParentID = &parent
	}
	if r.Options != nil {
		options := *r.Options
		out.Options = &options
	}
	if r.State != nil {
		state := *r.State
		out.State = &state
	}
	return out
}
