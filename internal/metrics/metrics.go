package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for slot lookups and bookings.
type SchedulingMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	slotQueriesTotal prometheus.Counter
	availableSlots   prometheus.Histogram
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Appointment booking attempts by result",
		}, []string{"result"}),
		slotQueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "scheduling",
			Name:      "slot_queries_total",
			Help:      "Total available-slot lookups",
		}),
		availableSlots: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "telehealth",
			Subsystem: "scheduling",
			Name:      "available_slots",
			Help:      "Number of free slots returned per lookup",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.slotQueriesTotal, m.availableSlots)
	return m
}

// ObserveBooking records a booking outcome: "created", "conflict", "invalid" or "error".
func (m *SchedulingMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *SchedulingMetrics) ObserveSlotQuery(free int) {
	if m == nil {
		return
	}
	m.slotQueriesTotal.Inc()
	m.availableSlots.Observe(float64(free))
}

// ReportMetrics counts generated medical reports.
type ReportMetrics struct {
	generatedTotal *prometheus.CounterVec
}

func NewReportMetrics(reg prometheus.Registerer) *ReportMetrics {
	m := &ReportMetrics{
		generatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "reports",
			Name:      "generated_total",
			Help:      "Report generation attempts by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.generatedTotal)
	return m
}

func (m *ReportMetrics) ObserveGenerated(result string) {
	if m == nil {
		return
	}
	m.generatedTotal.WithLabelValues(result).Inc()
}
