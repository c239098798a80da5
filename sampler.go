package spanz

import (
	"encoding/binary"
	"math"
)

// Sampler decides the sampling flag for root spans started without explicit options.
type Sampler interface {
	ShouldSample(traceID TraceID) bool
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func(traceID TraceID) bool

// ShouldSample implements Sampler.
func (f SamplerFunc) ShouldSample(traceID TraceID) bool {
	return f(traceID)
}

// AlwaysSample samples every trace.
func AlwaysSample() Sampler {
	return SamplerFunc(func(TraceID) bool { return true })
}

// NeverSample samples no trace.
func NeverSample() Sampler {
	return SamplerFunc(func(TraceID) bool { return false })
}

// ratioBits is the number of trace ID bits used by TraceIDRatio. Bytes 9..15 hold
// only random bits in a UUIDv4; byte 8 carries the variant.
const ratioBits = 56

// TraceIDRatio samples the given fraction of traces. The decision depends only on
// the trace ID, so every process in a trace reaches the same answer.
func TraceIDRatio(fraction float64) Sampler {
	if fraction >= 1 {
		return AlwaysSample()
	}
	if fraction <= 0 || math.IsNaN(fraction) {
		return NeverSample()
	}
	threshold := uint64(fraction * (1 << ratioBits))
	return SamplerFunc(func(traceID TraceID) bool {
		var buf [8]byte
		copy(buf[1:], traceID[9:])
		return binary.BigEndian.Uint64(buf[:]) < threshold
	})
}
