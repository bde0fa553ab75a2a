package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChecksTotal       *prometheus.CounterVec
	ResetsTotal       prometheus.Counter
	CorruptBlobsTotal prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditgate_ratelimit_checks_total",
			Help: "Total rate limit checks by action and outcome",
		}, []string{"action", "outcome"}),
		ResetsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditgate_ratelimit_resets_total",
			Help: "Total administrative rate limit resets",
		}),
		CorruptBlobsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditgate_ratelimit_corrupt_blobs_total",
			Help: "Total persisted window blobs that failed to decode and were replaced",
		}),
	}
}

func (m *Metrics) RecordCheck(action string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	m.ChecksTotal.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) RecordReset()       { m.ResetsTotal.Inc() }
func (m *Metrics) RecordCorruptBlob() { m.CorruptBlobsTotal.Inc() }
