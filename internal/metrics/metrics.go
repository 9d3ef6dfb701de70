// Package metrics exposes Prometheus counters for ledger operations.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "feeledger"

// Metrics holds the ledger's counters.
type Metrics struct {
	challansGenerated     prometheus.Counter
	generationErrors      *prometheus.CounterVec
	paymentsAllocated     prometheus.Counter
	amountAllocated       prometheus.Counter
	allocationConflicts   prometheus.Counter
	allocationRejections  *prometheus.CounterVec
	challansMarkedOverdue prometheus.Counter
}

// New registers the ledger counters with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		challansGenerated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challans_generated_total",
			Help:      "Fee challans created by batch generation.",
		}),
		generationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challan_generation_errors_total",
			Help:      "Batch items that failed, by reason.",
		}, []string{"reason"}),
		paymentsAllocated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_allocated_total",
			Help:      "Payments successfully allocated across challans.",
		}),
		amountAllocated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_amount_allocated_total",
			Help:      "Sum of allocated payment amounts.",
		}),
		allocationConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_conflicts_total",
			Help:      "Allocation attempts retried after a version conflict.",
		}),
		allocationRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_rejections_total",
			Help:      "Allocations refused before any mutation, by reason.",
		}, []string{"reason"}),
		challansMarkedOverdue: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challans_marked_overdue_total",
			Help:      "Challans moved from pending to overdue by the sweep.",
		}),
	}
}

func (m *Metrics) ChallanGenerated() {
	if m == nil {
		return
	}
	m.challansGenerated.Inc()
}

func (m *Metrics) GenerationError(reason string) {
	if m == nil {
		return
	}
	m.generationErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) PaymentAllocated(amount float64) {
	if m == nil {
		return
	}
	m.paymentsAllocated.Inc()
	m.amountAllocated.Add(amount)
}

func (m *Metrics) AllocationConflict() {
	if m == nil {
		return
	}
	m.allocationConflicts.Inc()
}

func (m *Metrics) AllocationRejected(reason string) {
	if m == nil {
		return
	}
	m.allocationRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) MarkedOverdue(n int64) {
	if m == nil {
		return
	}
	m.challansMarkedOverdue.Add(float64(n))
}
