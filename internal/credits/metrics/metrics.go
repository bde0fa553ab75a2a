package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	FetchesTotal      *prometheus.CounterVec
	FetchDuration     prometheus.Histogram
	ChecksTotal       *prometheus.CounterVec
	ReservationsTotal *prometheus.CounterVec
	GuestChecksTotal  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		FetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditgate_credit_fetches_total",
			Help: "Total credit balance fetches by outcome",
		}, []string{"outcome"}),
		FetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "creditgate_credit_fetch_duration_seconds",
			Help:    "Latency of credit balance fetches",
			Buckets: prometheus.DefBuckets,
		}),
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditgate_credit_checks_total",
			Help: "Total credit availability checks by category and outcome",
		}, []string{"category", "outcome"}),
		ReservationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditgate_credit_reservations_total",
			Help: "Total credit reservations by terminal state",
		}, []string{"state"}),
		GuestChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditgate_guest_checks_total",
			Help: "Total guest credit gate checks by outcome",
		}, []string{"outcome"}),
	}
}

// RecordFetch tracks one balance fetch. Outcome is "ok" or "degraded".
func (m *Metrics) RecordFetch(degraded bool, seconds float64) {
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(seconds)
}

func (m *Metrics) RecordCheck(category string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	m.ChecksTotal.WithLabelValues(category, outcome).Inc()
}

func (m *Metrics) RecordReservation(state string) {
	m.ReservationsTotal.WithLabelValues(state).Inc()
}

func (m *Metrics) RecordGuestCheck(allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	m.GuestChecksTotal.WithLabelValues(outcome).Inc()
}
