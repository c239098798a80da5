package spanz

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MaxTraceStateEntries caps the number of entries a TraceState may hold.
const MaxTraceStateEntries = 32

var (
	// ErrTraceStateTooLarge is returned when a TraceState would exceed MaxTraceStateEntries.
	ErrTraceStateTooLarge = errors.New("trace state too large")

	// ErrInvalidTraceStateKey is returned for an empty trace state key.
	ErrInvalidTraceStateKey = errors.New("invalid trace state key")
)

// TraceStateEntry is one vendor key/value pair.
type TraceStateEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TraceState is ordered, vendor-specific baggage forwarded along a trace.
// It is immutable: Insert and Delete return a new value. Conversions between
// spans and span contexts never inspect, filter or reorder entries.
type TraceState struct {
	entries []TraceStateEntry
}

// NewTraceState builds a TraceState holding entries verbatim, duplicates and order included.
func NewTraceState(entries ...TraceStateEntry) (TraceState, error) {
	if len(entries) > MaxTraceStateEntries {
		return TraceState{}, fmt.Errorf("%w: %d entries, max %d", ErrTraceStateTooLarge, len(entries), MaxTraceStateEntries)
	}
	for _, e := range entries {
		if e.Key == "" {
			return TraceState{}, ErrInvalidTraceStateKey
		}
	}
	return TraceState{entries: slices.Clone(entries)}, nil
}

// Insert returns a copy with key set to value. Earlier entries with the same key
// are dropped and the new entry is placed first, so the latest write wins.
func (ts TraceState) Insert(key, value string) (TraceState, error) {
	if key == "" {
		return ts, ErrInvalidTraceStateKey
	}

	out := make([]TraceStateEntry, 0, len(ts.entries)+1)
	out = append(out, TraceStateEntry{Key: key, Value: value})
	for _, e := range ts.entries {
		if e.Key != key {
			out = append(out, e)
		}
	}

	if len(out) > MaxTraceStateEntries {
		return ts, fmt.Errorf("%w: %d entries, max %d", ErrTraceStateTooLarge, len(out), MaxTraceStateEntries)
	}
	return TraceState{entries: out}, nil
}

// Delete returns a copy without any entry for key.
func (ts TraceState) Delete(key string) TraceState {
	out := make([]TraceStateEntry, 0, len(ts.entries))
	for _, e := range ts.entries {
		if e.Key != key {
			out = append(out, e)
		}
	}
	return TraceState{entries: out}
}

// Get returns the value of the first entry with key.
func (ts TraceState) Get(key string) (string, bool) {
	for _, e := range ts.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Len returns the number of entries.
func (ts TraceState) Len() int {
	return len(ts.entries)
}

// Entries returns a copy of the entries in order.
func (ts TraceState) Entries() []TraceStateEntry {
	return slices.Clone(ts.entries)
}

// Equal reports whether both states hold the same entries in the same order.
func (ts TraceState) Equal(other TraceState) bool {
	return slices.Equal(ts.entries, other.entries)
}

// String renders the state as comma separated key=value members.
func (ts TraceState) String() string {
	var b strings.Builder
	for i, e := range ts.entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.Key)
		b.WriteByte('=')
		b.WriteString(e.Value)
	}
	return b.String()
}

// MarshalJSON encodes the state as an ordered array of entries.
func (ts TraceState) MarshalJSON() ([]byte, error) {
	if ts.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(ts.entries)
}

// UnmarshalJSON decodes an ordered array of entries.
func (ts *TraceState) UnmarshalJSON(data []byte) error {
	var entries []TraceStateEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	state, err := NewTraceState(entries...)
	if err != nil {
		return err
	}
	*ts = state
	return nil
}
