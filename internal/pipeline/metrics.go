package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"golang.beyond.io/tdi-ingest/internal/core"
)

// Metrics are the Prometheus collectors shared by every pipeline of the process.
// A nil *Metrics records nothing.
type Metrics struct {
	files    *prometheus.CounterVec
	cycles   *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tdi",
			Name:      "files_total",
			Help:      "Number of listed report files by terminal outcome.",
		}, []string{"pipeline", "outcome"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tdi",
			Name:      "cycles_total",
			Help:      "Number of completed cycles by final state.",
		}, []string{"pipeline", "state"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tdi",
			Name:      "file_retries_total",
			Help:      "Number of failed file attempts that were retried.",
		}, []string{"pipeline"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tdi",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a cycle from connect to session close.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"pipeline"}),
	}

	for _, c := range []prometheus.Collector{m.files, m.cycles, m.retries, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observeCycle(res *core.CycleResult) {
	if m == nil {
		return
	}

	for _, f := range res.Files {
		m.files.WithLabelValues(res.Pipeline, f.Outcome.String()).Inc()
	}
	m.cycles.WithLabelValues(res.Pipeline, res.State.String()).Inc()
	m.duration.WithLabelValues(res.Pipeline).Observe(res.Duration.Seconds())
}

func (m *Metrics) retried(pipeline string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(pipeline).Inc()
}
