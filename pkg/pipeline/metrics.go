package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the pipeline counters. A nil *Metrics records nothing.
type Metrics struct {
	sentences *prometheus.CounterVec
	triples   *prometheus.CounterVec
	annotate  prometheus.Histogram
}

// NewMetrics registers the pipeline metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sentences: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relex",
			Name:      "sentences_total",
			Help:      "Sentences processed, by outcome.",
		}, []string{"status"}),
		triples: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relex",
			Name:      "triples_total",
			Help:      "Triples extracted, by engine.",
		}, []string{"origin"}),
		annotate: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "relex",
			Name:      "annotate_duration_seconds",
			Help:      "Time spent annotating one sentence.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
	}
}

func (m *Metrics) observeResult(r Result) {
	if m == nil {
		return
	}
	if r.Skipped {
		m.sentences.WithLabelValues("skipped").Inc()
		return
	}
	m.sentences.WithLabelValues("ok").Inc()
	for _, t := range r.Triples {
		m.triples.WithLabelValues(string(t.Source)).Inc()
	}
}

func (m *Metrics) observeAnnotate(d time.Duration) {
	if m == nil {
		return
	}
	m.annotate.Observe(d.Seconds())
}
