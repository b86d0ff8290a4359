package schedule

import "github.com/google/uuid"

// CheckOptions tunes a conflict check. The exclude ids let an edit-in-place
// skip the row being updated so it does not conflict with its own prior state.
type CheckOptions struct {
	ExcludeAppointmentID uuid.UUID
	ExcludeBlockID       uuid.UUID
}

// FindConflict tests a candidate interval for the doctor against existing
// appointments and blocked time. Appointments count only while their status
// still occupies the calendar (pending/confirmed/in_progress); blocks count
// only while active, with recurring blocks expanded for the candidate date.
// The first overlap wins. A nil return means the interval is free.
func FindConflict(doctorID uuid.UUID, candidate Interval, appointments []Appointment, blocks []TimeBlock, opts CheckOptions) *ConflictError {
	for _, appt := range appointments {
		if appt.DoctorID != doctorID || !appt.Status.Blocking() {
			continue
		}
		if opts.ExcludeAppointmentID != uuid.Nil && appt.ID == opts.ExcludeAppointmentID {
			continue
		}
		iv, err := appt.Interval()
		if err != nil {
			continue
		}
		if candidate.Overlaps(iv) {
			return &ConflictError{DoctorID: doctorID.String(), Conflict: iv, Source: "appointment"}
		}
	}

	for _, block := range blocks {
		if block.DoctorID != doctorID || !block.Active {
			continue
		}
		if opts.ExcludeBlockID != uuid.Nil && block.ID == opts.ExcludeBlockID {
			continue
		}
		if !block.OccursOn(candidate.Date) {
			continue
		}
		iv := Interval{Date: candidate.Date, Start: block.Start, End: block.End}
		if candidate.Overlaps(iv) {
			return &ConflictError{DoctorID: doctorID.String(), Conflict: iv, Source: "time_block"}
		}
	}

	return nil
}

// HasConflict is the boolean form of FindConflict.
func HasConflict(doctorID uuid.UUID, candidate Interval, appointments []Appointment, blocks []TimeBlock, opts CheckOptions) bool {
	return FindConflict(doctorID, candidate, appointments, blocks, opts) != nil
}
