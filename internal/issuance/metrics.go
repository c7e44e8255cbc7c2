package issuance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts issuance attempts.
type Metrics struct {
	Attempts *prometheus.CounterVec
	Duration prometheus.Histogram
	Fees     prometheus.Counter
}

// NewMetrics registers the issuance metrics with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "neblio"
	}
	f := promauto.With(reg)
	return &Metrics{
		Attempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "issuance",
			Name:      "attempts_total",
			Help:      "Token issuance attempts by outcome",
		}, []string{"outcome"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "issuance",
			Name:      "duration_seconds",
			Help:      "Time from request to commit or failure",
			Buckets:   prometheus.DefBuckets,
		}),
		Fees: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "issuance",
			Name:      "fees_paid_total",
			Help:      "Fees of committed issuances in base units",
		}),
	}
}

func (m *Metrics) observe(kind Kind, seconds float64, fee uint64) {
	if m == nil {
		return
	}
	outcome := string(kind)
	if kind == KindNone {
		outcome = "success"
		m.Fees.Add(float64(fee))
	}
	m.Attempts.WithLabelValues(outcome).Inc()
	m.Duration.Observe(seconds)
}
