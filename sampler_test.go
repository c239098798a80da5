package spanz

import (
	"math"
	"testing"
)

func TestAlwaysAndNeverSample(t *testing.T) {
	id := DefaultGenerator().NewTraceID()

	if !AlwaysSample().ShouldSample(id) {
		t.Error("Expected AlwaysSample to sample")
	}
	if NeverSample().ShouldSample(id) {
		t.Error("Expected NeverSample not to sample")
	}
}

func TestTraceIDRatioBounds(t *testing.T) {
	low := TraceID{}
	high := TraceID{9: 0xff, 10: 0xff, 11: 0xff, 12: 0xff, 13: 0xff, 14: 0xff, 15: 0xff}

	tests := []struct {
		name     string
		fraction float64
		id       TraceID
		want     bool
	}{
		{"zero fraction", 0, low, false},
		{"negative fraction", -1, low, false},
		{"NaN fraction", math.NaN(), low, false},
		{"full fraction", 1, high, true},
		{"over full fraction", 2, high, true},
		{"low ID under half", 0.5, low, true},
		{"high ID over half", 0.5, high, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TraceIDRatio(tt.fraction).ShouldSample(tt.id); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTraceIDRatioIgnoresVersionBytes(t *testing.T) {
	sampler := TraceIDRatio(0.5)

	// Bytes 0..8 carry UUID version and variant bits and must not sway the decision.
	a := TraceID{6: 0x40, 8: 0x80}
	b := TraceID{0: 0xff, 6: 0x4f, 8: 0xbf}

	if sampler.ShouldSample(a) != sampler.ShouldSample(b) {
		t.Error("Expected decision to depend only on the random tail")
	}
}

func TestTraceIDRatioDistribution(t *testing.T) {
	gen := NewSeededGenerator(7)
	sampler := TraceIDRatio(0.25)

	const n = 20000
	sampled := 0
	for i := 0; i < n; i++ {
		if sampler.ShouldSample(gen.NewTraceID()) {
			sampled++
		}
	}

	ratio := float64(sampled) / n
	if ratio < 0.22 || ratio > 0.28 {
		t.Errorf("Expected roughly 25%% sampled, got %.3f", ratio)
	}
}

func TestSamplerFunc(t *testing.T) {
	var seen TraceID
	s := SamplerFunc(func(id TraceID) bool {
		seen = id
		return true
	})

	id := TraceID{3}
	if !s.ShouldSample(id) || seen != id {
		t.Error("Expected SamplerFunc to delegate")
	}
}
