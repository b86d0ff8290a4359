package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for booking flows.
type SchedulingMetrics struct {
	appointmentsTotal  *prometheus.CounterVec
	conflictsTotal     *prometheus.CounterVec
	slotGridLatency    prometheus.Histogram
	sessionTransitions *prometheus.CounterVec
	activeRecordings   prometheus.Gauge
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		appointmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "appointments_total",
			Help:      "Appointment operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "conflicts_total",
			Help:      "Scheduling conflicts by source (appointment or time_block)",
		}, []string{"source"}),
		slotGridLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "slot_grid_seconds",
			Help:      "Latency of computing a day's availability grid",
			Buckets:   prometheus.DefBuckets,
		}),
		sessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "consultation",
			Name:      "session_transitions_total",
			Help:      "Consultation session transitions by target status",
		}, []string{"to_status"}),
		activeRecordings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "consultation",
			Name:      "active_recordings",
			Help:      "Recordings currently in the recording state",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.appointmentsTotal, m.conflictsTotal, m.slotGridLatency, m.sessionTransitions, m.activeRecordings)
	return m
}

func (m *SchedulingMetrics) ObserveAppointment(operation, outcome string) {
	if m == nil {
		return
	}
	m.appointmentsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveConflict(source string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(source).Inc()
}

func (m *SchedulingMetrics) ObserveSlotGridLatency(seconds float64) {
	if m == nil {
		return
	}
	m.slotGridLatency.Observe(seconds)
}

func (m *SchedulingMetrics) ObserveSessionTransition(toStatus string) {
	if m == nil {
		return
	}
	m.sessionTransitions.WithLabelValues(toStatus).Inc()
}

func (m *SchedulingMetrics) RecordingStarted() {
	if m == nil {
		return
	}
	m.activeRecordings.Inc()
}

func (m *SchedulingMetrics) RecordingStopped() {
	if m == nil {
		return
	}
	m.activeRecordings.Dec()
}
