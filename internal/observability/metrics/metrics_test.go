package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAppointment(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)

	m.ObserveAppointment("create", "ok")
	m.ObserveAppointment("create", "ok")
	m.ObserveAppointment("create", "conflict")

	ok := testutil.ToFloat64(m.appointmentsTotal.WithLabelValues("create", "ok"))
	if ok != 2 {
		t.Errorf("expected 2 ok creates, got %v", ok)
	}
	conflict := testutil.ToFloat64(m.appointmentsTotal.WithLabelValues("create", "conflict"))
	if conflict != 1 {
		t.Errorf("expected 1 conflicted create, got %v", conflict)
	}
}

func TestRecordingGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)

	m.RecordingStarted()
	m.RecordingStarted()
	m.RecordingStopped()

	if got := testutil.ToFloat64(m.activeRecordings); got != 1 {
		t.Errorf("expected 1 active recording, got %v", got)
	}
}

func TestNilReceiverSafe(t *testing.T) {
	var m *SchedulingMetrics
	// Metrics are optional wiring; nil must be a no-op, not a panic.
	m.ObserveAppointment("create", "ok")
	m.ObserveConflict("appointment")
	m.ObserveSlotGridLatency(0.01)
	m.ObserveSessionTransition("in_progress")
	m.RecordingStarted()
	m.RecordingStopped()
}
