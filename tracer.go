package spanz

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// SpanHandler is called with a snapshot of every span that closes.
type SpanHandler func(record SpanRecord)

type handlerEntry struct {
	handler SpanHandler
	id      uint64
	async   bool
}

// Tracer mints spans and delivers closed-span records to handlers.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field order optimized for functionality over memory
type Tracer struct {
	handlers     []handlerEntry
	panicHook    func(handlerID uint64, r interface{})
	workers      *workerPool
	generator    IDGenerator
	ownedPool    *PooledGenerator
	sampler      Sampler
	metrics      *Metrics
	logger       *zap.Logger
	clock        clockz.Clock
	handlersLock sync.RWMutex
	nextID       atomic.Uint64
	dropped      atomic.Uint64
}

// New creates a tracer using the default generator and the real clock.
func New() *Tracer {
	return &Tracer{
		handlers:  make([]handlerEntry, 0),
		generator: DefaultGenerator(),
		logger:    zap.NewNop(),
		clock:     clockz.RealClock,
	}
}

// derive copies the tracer's configuration into a fresh tracer.
// Handlers, worker pools and owned generator pools are not carried over.
func (t *Tracer) derive() *Tracer {
	return &Tracer{
		handlers:  make([]handlerEntry, 0),
		generator: t.generator,
		sampler:   t.sampler,
		metrics:   t.metrics,
		logger:    t.logger,
		clock:     t.clock,
	}
}

// WithClock returns a new tracer with the specified clock.
// Enables clock injection for deterministic testing.
func (t *Tracer) WithClock(clock clockz.Clock) *Tracer {
	d := t.derive()
	d.clock = clock
	return d
}

// WithGenerator returns a new tracer minting IDs from gen.
func (t *Tracer) WithGenerator(gen IDGenerator) *Tracer {
	d := t.derive()
	d.generator = gen
	return d
}

// WithLogger returns a new tracer logging to logger.
func (t *Tracer) WithLogger(logger *zap.Logger) *Tracer {
	d := t.derive()
	if logger == nil {
		logger = zap.NewNop()
	}
	d.logger = logger
	return d
}

// WithMetrics returns a new tracer reporting to m.
func (t *Tracer) WithMetrics(m *Metrics) *Tracer {
	d := t.derive()
	d.metrics = m
	return d
}

// WithSampler returns a new tracer that consults s for roots started without options.
func (t *Tracer) WithSampler(s Sampler) *Tracer {
	d := t.derive()
	d.sampler = s
	return d
}

// StartOption configures a root span or root context.
type StartOption func(*startConfig)

type startConfig struct {
	options    TraceOptions
	state      TraceState
	traceID    TraceID
	hasTraceID bool
	hasOptions bool
	hasState   bool
}

// WithTraceID continues an existing trace instead of minting a new trace ID.
func WithTraceID(id TraceID) StartOption {
	return func(c *startConfig) {
		c.traceID = id
		c.hasTraceID = true
	}
}

// WithTraceOptions sets the trace options.
func WithTraceOptions(o TraceOptions) StartOption {
	return func(c *startConfig) {
		c.options = o
		c.hasOptions = true
	}
}

// WithTraceState sets the trace state.
func WithTraceState(s TraceState) StartOption {
	return func(c *startConfig) {
		c.state = s
		c.hasState = true
	}
}

func (t *Tracer) rootConfig(opts []StartOption) startConfig {
	var cfg startConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.hasTraceID {
		cfg.traceID = t.generator.NewTraceID()
	}
	if !cfg.hasOptions && t.sampler != nil {
		cfg.options = NewTraceOptions().WithSampling(t.sampler.ShouldSample(cfg.traceID))
		cfg.hasOptions = true
	}
	return cfg
}

// StartRoot starts a span with no parent. A trace ID is minted unless WithTraceID is given.
func (t *Tracer) StartRoot(opts ...StartOption) *Span {
	cfg := t.rootConfig(opts)
	span := &Span{
		traceID:    cfg.traceID,
		spanID:     t.generator.NewSpanID(),
		options:    cfg.options,
		hasOptions: cfg.hasOptions,
		state:      cfg.state,
		hasState:   cfg.hasState,
	}
	t.open(span, KindRoot)
	return span
}

// NewRootContext originates a SpanContext for a new trace without recording a span.
func (t *Tracer) NewRootContext(opts ...StartOption) SpanContext {
	cfg := t.rootConfig(opts)
	return SpanContext{
		traceID:    cfg.traceID,
		spanID:     t.generator.NewSpanID(),
		options:    cfg.options,
		hasOptions: cfg.hasOptions,
		state:      cfg.state,
		hasState:   cfg.hasState,
	}
}

// StartChild starts a span in trace traceID under an optional parent.
// Options and state are not inherited from anywhere; use StartChildOf to inherit them.
func (t *Tracer) StartChild(traceID TraceID, parentID *SpanID) *Span {
	span := &Span{traceID: traceID}
	if parentID != nil {
		span.parentID = *parentID
		span.hasParent = true
		span.spanID = t.childSpanID(*parentID)
	} else {
		span.spanID = t.generator.NewSpanID()
	}
	t.open(span, KindChild)
	return span
}

// StartChildOf starts a local child of parent, inheriting its trace ID, options and state.
// A nil parent starts a new root.
func (t *Tracer) StartChildOf(parent *Span) *Span {
	if parent == nil {
		return t.StartRoot()
	}
	span := t.inherit(parent.Context())
	t.open(span, KindChild)
	return span
}

// StartFromContext starts a child of a span that lives elsewhere.
// The context's span ID becomes the parent ID and a new span ID is minted;
// trace ID, options and state are inherited unchanged.
func (t *Tracer) StartFromContext(sc SpanContext) *Span {
	span := t.inherit(sc)
	t.open(span, KindRemote)
	return span
}

// Start starts a span under whatever ctx carries: a local span first, then a
// remote SpanContext, otherwise a new root. The returned context carries the new span.
func (t *Tracer) Start(ctx context.Context) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	var span *Span
	if parent := SpanFromContext(ctx); parent != nil {
		span = t.StartChildOf(parent)
	} else if sc, ok := RemoteSpanContextFromContext(ctx); ok {
		span = t.StartFromContext(sc)
	} else {
		span = t.StartRoot()
	}
	return ContextWithSpan(ctx, span), span
}

func (t *Tracer) inherit(sc SpanContext) *Span {
	return &Span{
		traceID:    sc.traceID,
		spanID:     t.childSpanID(sc.spanID),
		parentID:   sc.spanID,
		hasParent:  true,
		options:    sc.options,
		hasOptions: sc.hasOptions,
		state:      sc.state,
		hasState:   sc.hasState,
	}
}

// childSpanID mints a span ID guaranteed to differ from parent.
func (t *Tracer) childSpanID(parent SpanID) SpanID {
	id := t.generator.NewSpanID()
	if id == parent {
		id = t.generator.NewSpanID()
	}
	if id == parent {
		// Generator keeps repeating itself; perturb rather than loop.
		id[len(id)-1] ^= 1
	}
	return id
}

func (t *Tracer) open(span *Span, kind string) {
	span.tracer = t
	span.clock = t.clock
	span.start = t.clock.Now()
	t.metrics.spanStarted(kind)
}

// OnSpanClose registers a synchronous handler called when spans close.
func (t *Tracer) OnSpanClose(handler SpanHandler) uint64 {
	return t.registerHandler(handler, false)
}

// OnSpanCloseAsync registers an asynchronous handler called when spans close.
func (t *Tracer) OnSpanCloseAsync(handler SpanHandler) uint64 {
	return t.registerHandler(handler, true)
}

func (t *Tracer) registerHandler(handler SpanHandler, async bool) uint64 {
	if handler == nil {
		return 0
	}

	id := t.nextID.Add(1)

	t.handlersLock.Lock()
	defer t.handlersLock.Unlock()

	t.handlers = append(t.handlers, handlerEntry{
		id:      id,
		handler: handler,
		async:   async,
	})

	return id
}

// RemoveHandler removes a handler by ID.
func (t *Tracer) RemoveHandler(id uint64) {
	t.handlersLock.Lock()
	defer t.handlersLock.Unlock()

	// Preserve order
	for i, h := range t.handlers {
		if h.id == id {
			copy(t.handlers[i:], t.handlers[i+1:])
			t.handlers = t.handlers[:len(t.handlers)-1]
			return
		}
	}
}

// HasHandlers reports whether any close handler is registered.
func (t *Tracer) HasHandlers() bool {
	t.handlersLock.RLock()
	defer t.handlersLock.RUnlock()
	return len(t.handlers) > 0
}

// SetPanicHook sets a function to be called when a handler panics.
func (t *Tracer) SetPanicHook(hook func(handlerID uint64, r interface{})) {
	t.handlersLock.Lock()
	defer t.handlersLock.Unlock()
	t.panicHook = hook
}

// spanClosed records metrics and runs handlers for a just-closed span.
func (t *Tracer) spanClosed(record SpanRecord) {
	t.metrics.spanClosed(record.Duration)

	t.handlersLock.RLock()
	if len(t.handlers) == 0 {
		t.handlersLock.RUnlock()
		return
	}

	handlers := make([]handlerEntry, len(t.handlers))
	copy(handlers, t.handlers)
	workers := t.workers
	t.handlersLock.RUnlock()

	for _, h := range handlers {
		entry := h
		rec := record.clone()
		if !entry.async {
			t.safeCall(entry, rec)
			continue
		}
		if workers != nil {
			if !workers.submit(func() { t.safeCall(entry, rec) }) {
				t.recordDropped(rec)
			}
		} else {
			go t.safeCall(entry, rec)
		}
	}
}

func (t *Tracer) recordDropped(record SpanRecord) {
	t.dropped.Add(1)
	t.metrics.recordDropped()
	t.logger.Warn("span record dropped, handler queue full or closed",
		zap.Stringer("trace_id", record.TraceID),
		zap.Stringer("span_id", record.SpanID),
	)
}

func (t *Tracer) safeCall(entry handlerEntry, record SpanRecord) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("span close handler panicked",
				zap.Uint64("handler_id", entry.id),
				zap.Any("panic", r),
				zap.Stringer("trace_id", record.TraceID),
				zap.Stringer("span_id", record.SpanID),
			)
			t.handlersLock.RLock()
			hook := t.panicHook
			t.handlersLock.RUnlock()
			if hook != nil {
				hook(entry.id, r)
			}
		}
	}()
	entry.handler(record)
}

// EnableWorkerPool creates a bounded worker pool for async handlers.
func (t *Tracer) EnableWorkerPool(workers, queueSize int) error {
	if workers <= 0 {
		return errors.New("workers must be > 0")
	}
	if queueSize <= 0 {
		return errors.New("queueSize must be > 0")
	}

	t.handlersLock.Lock()
	defer t.handlersLock.Unlock()

	if t.workers != nil {
		return errors.New("worker pool already enabled")
	}

	pool := &workerPool{
		tasks: make(chan func(), queueSize),
		stop:  make(chan struct{}),
	}
	pool.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.run()
	}
	t.workers = pool

	t.logger.Debug("worker pool enabled",
		zap.Int("workers", workers),
		zap.Int("queue_size", queueSize),
	)
	return nil
}

// DroppedRecords returns the number of records dropped due to a full worker queue.
func (t *Tracer) DroppedRecords() uint64 {
	return t.dropped.Load()
}

// Close shuts down the tracer gracefully and cleans up resources.
// Spans closed afterwards still get their end time but reach no handler.
func (t *Tracer) Close() {
	t.handlersLock.Lock()
	t.handlers = nil
	workers := t.workers
	t.workers = nil
	t.handlersLock.Unlock()

	// Queued async tasks run before shutdown returns.
	if workers != nil {
		workers.shutdown()
	}

	if t.ownedPool != nil {
		t.ownedPool.Close()
	}
}

// workerPool manages a fixed number of workers for processing async handlers.
//
//nolint:govet // Field order optimized for functionality over memory
type workerPool struct {
	tasks  chan func()
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func (w *workerPool) run() {
	defer w.wg.Done()
	for {
		select {
		case task := <-w.tasks:
			task()
		case <-w.stop:
			return
		}
	}
}

// submit queues task, reporting false when the queue is full or the pool is shut down.
func (w *workerPool) submit(task func()) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.tasks <- task:
		return true
	default:
		return false
	}
}

// shutdown stops the workers and runs whatever is still queued.
func (w *workerPool) shutdown() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	w.wg.Wait()

	for {
		select {
		case task := <-w.tasks:
			task()
		default:
			return
		}
	}
}
