package spanz

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrMalformedTraceID is returned when text cannot be decoded into a TraceID.
	ErrMalformedTraceID = errors.New("malformed trace id")

	// ErrMalformedSpanID is returned when text cannot be decoded into a SpanID.
	ErrMalformedSpanID = errors.New("malformed span id")
)

// TraceID identifies every span belonging to one logical trace.
// Generated trace IDs use the UUIDv4 layout: version and variant bits plus 122 random bits.
type TraceID [16]byte

// SpanID identifies one span within a trace.
type SpanID [8]byte

// IsZero reports whether the ID is all zero bytes.
func (t TraceID) IsZero() bool {
	return t == TraceID{}
}

// String returns the 32 character lowercase hex form.
func (t TraceID) String() string {
	return hex.EncodeToString(t[:])
}

// UUID returns the trace ID viewed as a UUID.
func (t TraceID) UUID() uuid.UUID {
	return uuid.UUID(t)
}

// MarshalText implements encoding.TextMarshaler.
func (t TraceID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TraceID) UnmarshalText(text []byte) error {
	id, err := ParseTraceID(string(text))
	if err != nil {
		return err
	}
	*t = id
	return nil
}

// IsZero reports whether the ID is all zero bytes.
func (s SpanID) IsZero() bool {
	return s == SpanID{}
}

// String returns the 16 character lowercase hex form.
func (s SpanID) String() string {
	return hex.EncodeToString(s[:])
}

// MarshalText implements encoding.TextMarshaler.
func (s SpanID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SpanID) UnmarshalText(text []byte) error {
	id, err := ParseSpanID(string(text))
	if err != nil {
		return err
	}
	*s = id
	return nil
}

// ParseTraceID decodes a trace ID from 32 hex characters or any UUID text form.
func ParseTraceID(s string) (TraceID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TraceID{}, fmt.Errorf("%w: %q", ErrMalformedTraceID, s)
	}
	return TraceID(u), nil
}

// ParseSpanID decodes a span ID from 16 hex characters.
func ParseSpanID(s string) (SpanID, error) {
	var id SpanID
	if len(s) != 2*len(id) {
		return SpanID{}, fmt.Errorf("%w: %q", ErrMalformedSpanID, s)
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return SpanID{}, fmt.Errorf("%w: %q", ErrMalformedSpanID, s)
	}
	return id, nil
}

// IDGenerator mints trace and span identifiers.
// Implementations must be safe for concurrent use and must never fail.
type IDGenerator interface {
	NewTraceID() TraceID
	NewSpanID() SpanID
}

var defaultGenerator IDGenerator = randomGenerator{}

// DefaultGenerator returns the process-wide generator.
// It is safe for concurrent use without external locking.
func DefaultGenerator() IDGenerator {
	return defaultGenerator
}

// randomGenerator draws trace IDs from the system entropy source and span IDs
// from the runtime's per-thread generator.
type randomGenerator struct{}

func (randomGenerator) NewTraceID() TraceID {
	u, err := uuid.NewRandom()
	if err != nil {
		// Entropy source failed, fall back to the runtime generator.
		u, _ = uuid.NewRandomFromReader(runtimeReader{})
	}
	return TraceID(u)
}

func (randomGenerator) NewSpanID() SpanID {
	return spanIDFrom(rand.Uint64)
}

// runtimeReader fills buffers from math/rand/v2. Read never fails.
type runtimeReader struct{}

func (runtimeReader) Read(p []byte) (int, error) {
	var buf [8]byte
	for i := 0; i < len(p); i += len(buf) {
		binary.LittleEndian.PutUint64(buf[:], rand.Uint64())
		copy(p[i:], buf[:])
	}
	return len(p), nil
}

// spanIDFrom draws until the value is non-zero; the zero span ID is reserved as invalid.
func spanIDFrom(next func() uint64) SpanID {
	v := next()
	for v == 0 {
		v = next()
	}
	var id SpanID
	binary.BigEndian.PutUint64(id[:], v)
	return id
}

// seededGenerator produces a reproducible identifier sequence.
type seededGenerator struct {
	rng *rand.ChaCha8
	mu  sync.Mutex
}

// NewSeededGenerator returns a deterministic generator. Two generators built from
// the same seed yield the same sequence of IDs, which lets tests assert exact values.
// The generator is safe for concurrent use, though interleaving across goroutines
// makes the per-goroutine sequence unpredictable.
func NewSeededGenerator(seed uint64) IDGenerator {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return &seededGenerator{rng: rand.NewChaCha8(key)}
}

func (g *seededGenerator) NewTraceID() TraceID {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, _ := uuid.NewRandomFromReader(g.rng)
	return TraceID(u)
}

func (g *seededGenerator) NewSpanID() SpanID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return spanIDFrom(g.rng.Uint64)
}
