// Package propagation encodes spanz span contexts in the W3C Trace Context
// format and bridges them to OpenTelemetry.
//
// The core's sampling flag is bit 1 of TraceOptions while the wire sampled flag
// is bit 0. Encoding swaps those two bits and passes the other six through, so
// a round trip is lossless and OpenTelemetry peers read the sampling decision
// correctly.
package propagation

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/zoobzio/spanz"
)

// Header names.
const (
	TraceparentHeader = "traceparent"
	TracestateHeader  = "tracestate"
)

const (
	supportedVersion = 0
	invalidVersion   = 0xff

	// version(2) - trace id(32) - span id(16) - flags(2)
	traceparentLen = 2 + 1 + 32 + 1 + 16 + 1 + 2
)

var (
	// ErrMissingContext is returned when a carrier holds no traceparent.
	ErrMissingContext = errors.New("missing trace context")

	// ErrMalformedContext is returned when a traceparent or tracestate cannot be decoded,
	// or when a span context with zero IDs is offered for injection.
	ErrMalformedContext = errors.New("malformed trace context")

	// ErrUnrepresentableState is returned when a trace state cannot be written as a
	// tracestate header, or cannot be expressed in OpenTelemetry's stricter grammar.
	ErrUnrepresentableState = errors.New("trace state not representable")
)

// swapLowBits exchanges bits 0 and 1. It is its own inverse.
func swapLowBits(b byte) byte {
	return b&^0x03 | (b&0x01)<<1 | (b&0x02)>>1
}

// WireFlags returns the trace-flags byte for o.
func WireFlags(o spanz.TraceOptions) byte {
	return swapLowBits(o.Byte())
}

// OptionsFromWire returns the TraceOptions for a trace-flags byte.
func OptionsFromWire(b byte) spanz.TraceOptions {
	return spanz.TraceOptions(swapLowBits(b))
}

// FormatTraceparent renders the traceparent header for sc.
// Absent options encode as 00.
func FormatTraceparent(sc spanz.SpanContext) string {
	var flags byte
	if opts, ok := sc.Options(); ok {
		flags = WireFlags(opts)
	}

	traceID := sc.TraceID()
	spanID := sc.SpanID()

	var b strings.Builder
	b.Grow(traceparentLen)
	b.WriteString("00-")
	b.WriteString(hex.EncodeToString(traceID[:]))
	b.WriteByte('-')
	b.WriteString(hex.EncodeToString(spanID[:]))
	b.WriteByte('-')
	b.WriteString(hex.EncodeToString([]byte{flags}))
	return b.String()
}

// ParseTraceparent decodes a traceparent header. Future versions are accepted
// when their prefix follows the version 00 layout.
func ParseTraceparent(h string) (spanz.TraceID, spanz.SpanID, spanz.TraceOptions, error) {
	fail := func(reason string) (spanz.TraceID, spanz.SpanID, spanz.TraceOptions, error) {
		return spanz.TraceID{}, spanz.SpanID{}, 0, fmt.Errorf("%w: traceparent %q: %s", ErrMalformedContext, h, reason)
	}

	h = strings.TrimSpace(h)
	if len(h) < traceparentLen {
		return fail("too short")
	}

	version, ok := decodeLowerHexByte(h[0:2])
	if !ok || version == invalidVersion {
		return fail("bad version")
	}
	if version == supportedVersion && len(h) != traceparentLen {
		return fail("bad length for version 00")
	}
	if version > supportedVersion && len(h) > traceparentLen && h[traceparentLen] != '-' {
		return fail("bad suffix")
	}
	if h[2] != '-' || h[35] != '-' || h[52] != '-' {
		return fail("bad delimiters")
	}

	var traceID spanz.TraceID
	if !decodeLowerHex(traceID[:], h[3:35]) || traceID.IsZero() {
		return fail("bad trace id")
	}
	var spanID spanz.SpanID
	if !decodeLowerHex(spanID[:], h[36:52]) || spanID.IsZero() {
		return fail("bad parent id")
	}
	flags, ok := decodeLowerHexByte(h[53:55])
	if !ok {
		return fail("bad flags")
	}

	return traceID, spanID, OptionsFromWire(flags), nil
}

// FormatTraceState renders the tracestate header: key=value members joined by commas.
// It returns ErrUnrepresentableState when an entry would not decode back to itself.
func FormatTraceState(ts spanz.TraceState) (string, error) {
	for _, e := range ts.Entries() {
		if err := checkStateEntry(e); err != nil {
			return "", err
		}
	}
	return ts.String(), nil
}

// checkStateEntry rejects entries ParseTraceState would split, merge or trim.
func checkStateEntry(e spanz.TraceStateEntry) error {
	fail := func(reason string) error {
		return fmt.Errorf("%w: tracestate entry %q=%q: %s", ErrUnrepresentableState, e.Key, e.Value, reason)
	}
	switch {
	case e.Key == "":
		return fail("empty key")
	case strings.ContainsAny(e.Key, ",="):
		return fail("key contains ',' or '='")
	case strings.Contains(e.Value, ","):
		return fail("value contains ','")
	case hasEdgeSpace(e.Key), hasEdgeSpace(e.Value):
		return fail("leading or trailing whitespace")
	}
	return nil
}

func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isOWS(s[0]) || isOWS(s[len(s)-1])
}

func isOWS(c byte) bool {
	return c == ' ' || c == '\t'
}

// ParseTraceState decodes a tracestate header, keeping member order and duplicates.
// Empty list members and whitespace around members are ignored.
func ParseTraceState(h string) (spanz.TraceState, error) {
	var entries []spanz.TraceStateEntry
	for _, member := range strings.Split(h, ",") {
		member = strings.Trim(member, " \t")
		if member == "" {
			continue
		}
		key, value, found := strings.Cut(member, "=")
		if !found || key == "" {
			return spanz.TraceState{}, fmt.Errorf("%w: tracestate member %q", ErrMalformedContext, member)
		}
		entries = append(entries, spanz.TraceStateEntry{Key: key, Value: value})
	}

	ts, err := spanz.NewTraceState(entries...)
	if err != nil {
		return spanz.TraceState{}, fmt.Errorf("%w: %w", ErrMalformedContext, err)
	}
	return ts, nil
}

func decodeLowerHex(dst []byte, s string) bool {
	if len(s) != 2*len(dst) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	_, err := hex.Decode(dst, []byte(s))
	return err == nil
}

func decodeLowerHexByte(s string) (byte, bool) {
	var b [1]byte
	if !decodeLowerHex(b[:], s) {
		return 0, false
	}
	return b[0], true
}
