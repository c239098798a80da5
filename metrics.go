package spanz

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Span kinds reported by spanz_spans_started_total.
const (
	KindRoot   = "root"
	KindChild  = "child"
	KindRemote = "remote"
)

// Metrics holds the Prometheus instruments a Tracer reports to.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	started  *prometheus.CounterVec
	closed   prometheus.Counter
	dropped  prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics creates the tracer instruments and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spanz",
			Name:      "spans_started_total",
			Help:      "Spans started, by how they were created.",
		}, []string{"kind"}),
		closed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spanz",
			Name:      "spans_closed_total",
			Help:      "Spans closed.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spanz",
			Name:      "records_dropped_total",
			Help:      "Span records dropped because the async handler queue was full.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "spanz",
			Name:      "span_duration_seconds",
			Help:      "Duration of closed spans.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
	}

	for _, c := range []prometheus.Collector{m.started, m.closed, m.dropped, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register spanz metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) spanStarted(kind string) {
	if m == nil {
		return
	}
	m.started.WithLabelValues(kind).Inc()
}

func (m *Metrics) spanClosed(d time.Duration) {
	if m == nil {
		return
	}
	m.closed.Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) recordDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}
