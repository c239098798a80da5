package spanz

import (
	"sync"
)

// IDPool keeps a buffer of pre-generated IDs filled by a background goroutine.
type IDPool[T any] struct {
	factory func() T
	ids     chan T
	stopCh  chan struct{}
	mu      sync.Mutex
	closed  bool
}

// NewIDPool creates a new ID pool with the specified capacity.
func NewIDPool[T any](capacity int, factory func() T) *IDPool[T] {
	pool := &IDPool[T]{
		ids:     make(chan T, capacity),
		factory: factory,
		stopCh:  make(chan struct{}),
	}
	go pool.refill()
	return pool
}

// Get retrieves an ID from the pool or generates one if the pool is empty.
func (p *IDPool[T]) Get() T {
	select {
	case id := <-p.ids:
		return id
	default:
		// Pool empty, generate directly (fallback for burst load).
		return p.factory()
	}
}

// refill maintains the pool by generating IDs in background.
func (p *IDPool[T]) refill() {
	for {
		select {
		case <-p.stopCh:
			return
		default:
			select {
			case p.ids <- p.factory():
			case <-p.stopCh:
				return
			}
		}
	}
}

// Close stops the refill goroutine. Safe to call more than once.
func (p *IDPool[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		close(p.stopCh)
		p.closed = true
	}
}

// PooledGenerator amortizes generation cost by serving IDs from pools that
// are refilled in the background by an underlying generator.
type PooledGenerator struct {
	traceIDs *IDPool[TraceID]
	spanIDs  *IDPool[SpanID]
}

// NewPooledGenerator wraps gen with trace and span ID pools of the given capacity.
// Close must be called to stop the refill goroutines.
func NewPooledGenerator(gen IDGenerator, capacity int) *PooledGenerator {
	return &PooledGenerator{
		traceIDs: NewIDPool(capacity, gen.NewTraceID),
		spanIDs:  NewIDPool(capacity, gen.NewSpanID),
	}
}

// NewTraceID implements IDGenerator.
func (g *PooledGenerator) NewTraceID() TraceID {
	return g.traceIDs.Get()
}

// NewSpanID implements IDGenerator.
func (g *PooledGenerator) NewSpanID() SpanID {
	return g.spanIDs.Get()
}

// Close shuts down both pools.
func (g *PooledGenerator) Close() {
	g.traceIDs.Close()
	g.spanIDs.Close()
}
