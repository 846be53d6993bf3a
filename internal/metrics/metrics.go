// Package metrics defines the prometheus collectors for analysis runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stock_sentiment"

// Metrics groups the run collectors. A nil *Metrics ignores every call.
type Metrics struct {
	calls       prometheus.Counter
	items       *prometheus.CounterVec
	retries     *prometheus.CounterVec
	runs        *prometheus.CounterVec
	pruned      prometheus.Counter
	limiterWait prometheus.Histogram
	collected   prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		calls: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_calls_total",
			Help:      "Extraction service calls attempted, retries included.",
		}),
		items: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Candidates processed by result.",
		}, []string{"result"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retried extraction attempts by error class.",
		}, []string{"class"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished analysis runs by stop reason.",
		}, []string{"reason"}),
		pruned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_mentions_total",
			Help:      "Mentions deleted because their ticker failed validation.",
		}),
		limiterWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "limiter_wait_seconds",
			Help:      "Time spent waiting for a rate limiter slot.",
			Buckets:   []float64{0, .1, .5, 1, 5, 15, 30, 60},
		}),
		collected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_collected_total",
			Help:      "New records saved by collection.",
		}),
	}
}

func (m *Metrics) ExtractionCall() {
	if m != nil {
		m.calls.Inc()
	}
}

func (m *Metrics) Item(result string) {
	if m != nil {
		m.items.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Retry(class string) {
	if m != nil {
		m.retries.WithLabelValues(class).Inc()
	}
}

func (m *Metrics) RunFinished(reason string) {
	if m != nil {
		if reason == "" {
			reason = "completed"
		}
		m.runs.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Pruned(n int64) {
	if m != nil && n > 0 {
		m.pruned.Add(float64(n))
	}
}

func (m *Metrics) LimiterWait(d time.Duration) {
	if m != nil {
		m.limiterWait.Observe(d.Seconds())
	}
}

func (m *Metrics) Collected(n int) {
	if m != nil && n > 0 {
		m.collected.Add(float64(n))
	}
}
