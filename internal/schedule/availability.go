package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Window is a working-hours span within one day, in minutes since midnight.
type Window struct {
	Start int
	End   int
}

// Validate rejects empty or inverted windows.
func (w Window) Validate() error {
	return Interval{Date: time.Time{}, Start: w.Start, End: w.End}.Validate()
}

// TimeSlot is one candidate slot in a day grid.
type TimeSlot struct {
	Interval
	Available bool
}

// AvailableSlots carves a doctor's working hours for one date into fixed-size
// slots and marks each one against the existing appointments and blocks.
// Every candidate is emitted, conflicting ones included, so callers can render
// a full-day grid. Output is always chronological.
func AvailableSlots(doctorID uuid.UUID, date time.Time, hours Window, slotMinutes int, appointments []Appointment, blocks []TimeBlock) ([]TimeSlot, error) {
	if slotMinutes <= 0 {
		return nil, &ValidationError{Field: "slotSizeMinutes", Reason: "must be positive"}
	}
	if err := hours.Validate(); err != nil {
		return nil, err
	}

	date = NormalizeDate(date)
	var slots []TimeSlot
	for start := hours.Start; start+slotMinutes <= hours.End; start += slotMinutes {
		candidate := Interval{Date: date, Start: start, End: start + slotMinutes}
		conflict := FindConflict(doctorID, candidate, appointments, blocks, CheckOptions{})
		slots = append(slots, TimeSlot{Interval: candidate, Available: conflict == nil})
	}
	return slots, nil
}
