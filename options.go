package spanz

import "fmt"

// SampledBit is the bit index of the sampling flag.
const SampledBit uint = 1

// TraceOptions is an 8-bit flags register propagated with a trace.
// Only SampledBit has a defined meaning; every other bit is carried through
// copies and conversions unchanged so later flag definitions interoperate.
type TraceOptions uint8

// NewTraceOptions returns a register with every flag clear.
func NewTraceOptions() TraceOptions {
	return 0
}

// IsSampling reports whether the sampling flag is set.
func (o TraceOptions) IsSampling() bool {
	return o.Has(SampledBit)
}

// Has reports whether the flag at bit index is set. Indexes past 7 are never set.
func (o TraceOptions) Has(bit uint) bool {
	if bit >= 8 {
		return false
	}
	return o&(1<<bit) != 0
}

// Set returns a copy with the flag at bit index set.
func (o TraceOptions) Set(bit uint) TraceOptions {
	if bit >= 8 {
		return o
	}
	return o | 1<<bit
}

// Clear returns a copy with the flag at bit index cleared.
func (o TraceOptions) Clear(bit uint) TraceOptions {
	if bit >= 8 {
		return o
	}
	return o &^ (1 << bit)
}

// WithSampling returns a copy with the sampling flag set to sampled.
func (o TraceOptions) WithSampling(sampled bool) TraceOptions {
	if sampled {
		return o.Set(SampledBit)
	}
	return o.Clear(SampledBit)
}

// Byte returns the raw register.
func (o TraceOptions) Byte() byte {
	return byte(o)
}

// String renders the register as eight binary digits, most significant bit first.
func (o TraceOptions) String() string {
	return fmt.Sprintf("%08b", uint8(o))
}
