package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RegistrationsTotal  *prometheus.CounterVec
	CompensationsTotal  prometheus.Counter
	DuplicateHitsTotal  prometheus.Counter
	SlotConflictsTotal  prometheus.Counter
	RegisterDurationSec prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		RegistrationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_registrations_total",
			Help: "Registrations processed, by flow kind and outcome",
		}, []string{"kind", "outcome"}),
		CompensationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intake_registration_compensations_total",
			Help: "Compensating deletes executed after a mid-saga persistence failure",
		}),
		DuplicateHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intake_registration_duplicate_hits_total",
			Help: "Submissions that matched an existing person",
		}),
		SlotConflictsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intake_registration_slot_conflicts_total",
			Help: "Advisory scheduling conflicts detected",
		}),
		RegisterDurationSec: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "intake_registration_duration_seconds",
			Help:    "End-to-end duration of a registration call",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) ObserveRegistration(kind, outcome string) {
	m.RegistrationsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncrementCompensations() { m.CompensationsTotal.Inc() }
func (m *Metrics) IncrementDuplicateHits() { m.DuplicateHitsTotal.Inc() }
func (m *Metrics) IncrementSlotConflicts() { m.SlotConflictsTotal.Inc() }
