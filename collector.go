package spanz

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// closeTimeout bounds how long Close waits for the collector goroutine to drain.
const closeTimeout = 100 * time.Millisecond

// Collector buffers closed-span records for batch export.
// Register it with tracer.OnSpanClose(collector.Collect).
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type Collector struct {
	records      []SpanRecord
	recordsCh    chan SpanRecord
	stopCh       chan struct{}
	done         chan struct{}
	logger       *zap.Logger
	droppedCount atomic.Int64
	name         string
	mu           sync.Mutex
	closeOnce    sync.Once
	sendMu       sync.RWMutex // Held for writing while closing.
	closed       atomic.Bool
	syncMode     atomic.Bool // Bypass channel for synchronous collection.
}

// NewCollector creates a new collector with the specified name and buffer size.
func NewCollector(name string, bufferSize int) *Collector {
	c := &Collector{
		name:      name,
		records:   make([]SpanRecord, 0, 8),
		recordsCh: make(chan SpanRecord, bufferSize),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		logger:    zap.NewNop(),
	}
	go c.start()
	return c
}

// SetLogger replaces the collector's logger.
func (c *Collector) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

// start runs the collector's main loop, receiving records from the channel.
func (c *Collector) start() {
	defer close(c.done)

	for {
		select {
		case <-c.stopCh:
			// Drain remaining records before shutdown.
			for {
				select {
				case record := <-c.recordsCh:
					c.buffer(record)
				default:
					return
				}
			}
		case record := <-c.recordsCh:
			c.buffer(record)
		}
	}
}

// Close shuts down the collector, waiting briefly for queued records to drain.
// Records collected after Close are dropped.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.closed.Store(true)
		c.sendMu.Unlock()

		close(c.stopCh)
		select {
		case <-c.done:
		case <-time.After(closeTimeout):
			c.mu.Lock()
			logger := c.logger
			c.mu.Unlock()
			logger.Warn("collector did not drain before timeout",
				zap.String("collector", c.name),
				zap.Duration("timeout", closeTimeout),
			)
		}
	})
}

// Collect buffers a record with backpressure protection.
// If the internal channel is full the record is dropped and the drop counter incremented.
// In sync mode records are buffered directly for deterministic testing.
func (c *Collector) Collect(record SpanRecord) {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()

	if c.closed.Load() {
		c.droppedCount.Add(1)
		return
	}

	record = record.clone()

	if c.syncMode.Load() {
		c.buffer(record)
		return
	}

	select {
	case c.recordsCh <- record:
	default:
		c.droppedCount.Add(1)
	}
}

// buffer appends a record to the internal buffer.
func (c *Collector) buffer(record SpanRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.records) >= cap(c.records) {
		currentCap := cap(c.records)
		var newCap int
		if currentCap < 1024 {
			// Double capacity for small buffers.
			newCap = currentCap * 2
		} else {
			// Grow by 50% for large buffers to avoid excessive memory usage.
			newCap = currentCap + currentCap/2
		}
		if newCap < 32 {
			newCap = 32
		}
		grown := make([]SpanRecord, len(c.records), newCap)
		copy(grown, c.records)
		c.records = grown
	}
	c.records = append(c.records, record)
}

// Export returns all buffered records and clears the internal buffer.
// The returned slice is safe to modify without affecting the collector.
func (c *Collector) Export() []SpanRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.records) == 0 {
		return nil
	}

	result := make([]SpanRecord, len(c.records))
	for i := range c.records {
		result[i] = c.records[i].clone()
	}

	// Only shrink if buffer is very oversized to avoid allocation churn.
	if cap(c.records) > 256 && len(c.records) < cap(c.records)/8 {
		newCap := cap(c.records) / 4
		if newCap < 32 {
			newCap = 32
		}
		c.records = make([]SpanRecord, 0, newCap)
	} else {
		c.records = c.records[:0]
	}

	return result
}

// Count returns the current number of buffered records.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// DroppedCount returns the total number of records dropped.
func (c *Collector) DroppedCount() int64 {
	return c.droppedCount.Load()
}

// SetSyncMode enables synchronous collection for testing.
func (c *Collector) SetSyncMode(sync bool) {
	c.syncMode.Store(sync)
}

// Reset clears all buffered records and resets the drop counter.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = c.records[:0]
	c.droppedCount.Store(0)
}
