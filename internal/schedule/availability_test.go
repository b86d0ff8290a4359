package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAvailableSlotsFullDayGrid(t *testing.T) {
	doctorID := uuid.New()
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) // a Monday

	until := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	lunch := TimeBlock{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		Type:      BlockLunch,
		Date:      day,
		Start:     12 * 60,
		End:       13 * 60,
		Recurring: true,
		Recurrence: &RecurrencePattern{
			Frequency:   FrequencyWeekly,
			Weekdays:    []time.Weekday{time.Monday, time.Wednesday},
			RepeatUntil: &until,
		},
		Active: true,
	}
	booked := testAppointment(doctorID, day.Add(9*time.Hour), 30, AppointmentConfirmed)

	slots, err := AvailableSlots(doctorID, day, Window{Start: 9 * 60, End: 17 * 60}, 30, []Appointment{booked}, []TimeBlock{lunch})
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}

	// 09:00-17:00 at 30 minutes is 16 candidates, conflicting ones included.
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}

	for i, slot := range slots {
		if i > 0 && slot.Start <= slots[i-1].Start {
			t.Fatal("slots out of chronological order")
		}
		overlapsLunch := slot.Interval.Overlaps(Interval{Date: day, Start: 12 * 60, End: 13 * 60})
		if overlapsLunch && slot.Available {
			t.Errorf("slot %s marked available inside recurring lunch block", slot.Interval)
		}
	}

	if slots[0].Available {
		t.Error("09:00 slot should be unavailable (booked appointment)")
	}
	if !slots[1].Available {
		t.Error("09:30 slot should be free: appointments are half-open")
	}

	unavailable := 0
	for _, slot := range slots {
		if !slot.Available {
			unavailable++
		}
	}
	// One booked slot plus two lunch slots.
	if unavailable != 3 {
		t.Errorf("expected 3 unavailable slots, got %d", unavailable)
	}
}

func TestAvailableSlotsNeverMarksConflictingSlotAvailable(t *testing.T) {
	doctorID := uuid.New()
	day := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)

	appts := []Appointment{
		testAppointment(doctorID, day.Add(10*time.Hour), 45, AppointmentPending),
		testAppointment(doctorID, day.Add(13*time.Hour+15*time.Minute), 30, AppointmentInProgress),
	}
	blocks := []TimeBlock{{
		ID:       uuid.New(),
		DoctorID: doctorID,
		Type:     BlockMeeting,
		Date:     day,
		Start:    15 * 60,
		End:      15*60 + 20,
		Active:   true,
	}}

	slots, err := AvailableSlots(doctorID, day, Window{Start: 8 * 60, End: 18 * 60}, 15, appts, blocks)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}

	for _, slot := range slots {
		if !slot.Available {
			continue
		}
		if HasConflict(doctorID, slot.Interval, appts, blocks, CheckOptions{}) {
			t.Errorf("slot %s marked available but conflicts", slot.Interval)
		}
	}
}

func TestAvailableSlotsPartialTrailingSlotDropped(t *testing.T) {
	doctorID := uuid.New()
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	// 09:00-10:15 with 30-minute slots: the 10:00-10:30 candidate does not fit.
	slots, err := AvailableSlots(doctorID, day, Window{Start: 9 * 60, End: 10*60 + 15}, 30, nil, nil)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[1].EndClock() != "10:00" {
		t.Errorf("last slot ends at %s, want 10:00", slots[1].EndClock())
	}
}

func TestAvailableSlotsRejectsBadInput(t *testing.T) {
	doctorID := uuid.New()
	day := time.Now()

	if _, err := AvailableSlots(doctorID, day, Window{Start: 9 * 60, End: 17 * 60}, 0, nil, nil); err == nil {
		t.Error("zero slot size should fail")
	}
	if _, err := AvailableSlots(doctorID, day, Window{Start: 17 * 60, End: 9 * 60}, 30, nil, nil); err == nil {
		t.Error("inverted window should fail")
	}
}
