package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
)

// maxAvailabilityRangeDays bounds a range availability query.
const maxAvailabilityRangeDays = 60

// GetAvailableTimeSlots computes the slot grid for one doctor-day. Grids are
// served from cache when present; writes to the doctor's calendar invalidate
// the affected days.
func (s *Service) GetAvailableTimeSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.TimeSlot, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.get_available_time_slots")
	defer span.End()

	if doctorID == uuid.Nil {
		return nil, &schedule.ValidationError{Field: "doctorId", Reason: "required"}
	}
	day := schedule.NormalizeDate(date)

	if s.cache != nil {
		if slots, ok := s.cache.Get(ctx, doctorID, day); ok {
			return slots, nil
		}
	}

	started := time.Now()
	slots, err := s.computeDaySlots(ctx, doctorID, day)
	s.metrics.ObserveSlotGridLatency(time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, doctorID, day, slots)
	}
	return slots, nil
}

// GetDoctorAvailability computes slot grids for each day in [from, to]. Days
// the doctor does not work yield an empty grid, not an error.
func (s *Service) GetDoctorAvailability(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]DayAvailability, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.get_doctor_availability")
	defer span.End()

	if doctorID == uuid.Nil {
		return nil, &schedule.ValidationError{Field: "doctorId", Reason: "required"}
	}
	start := schedule.NormalizeDate(from)
	end := schedule.NormalizeDate(to)
	if end.Before(start) {
		return nil, &schedule.ValidationError{Field: "to", Reason: "must not precede from"}
	}
	if end.Sub(start) > maxAvailabilityRangeDays*24*time.Hour {
		return nil, &schedule.ValidationError{Field: "to", Reason: "range too large"}
	}

	var days []DayAvailability
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		slots, err := s.GetAvailableTimeSlots(ctx, doctorID, day)
		if err != nil {
			return nil, err
		}
		days = append(days, DayAvailability{Date: day, Slots: slots})
	}
	return days, nil
}

// computeDaySlots builds one day's grid from working hours, booked
// appointments, and active time blocks.
func (s *Service) computeDaySlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]schedule.TimeSlot, error) {
	hours, err := s.workingWindow(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}
	if hours == nil {
		// The doctor does not work this weekday.
		return []schedule.TimeSlot{}, nil
	}

	appts, err := s.repo.ListDoctorAppointments(ctx, doctorID, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	blocks, err := s.repo.ListDoctorTimeBlocks(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return schedule.AvailableSlots(doctorID, day, *hours, s.opts.SlotMinutes, appts, blocks)
}

// workingWindow resolves the doctor's hours for a weekday. Without a hours
// provider the clinic default applies.
func (s *Service) workingWindow(ctx context.Context, doctorID uuid.UUID, day time.Time) (*schedule.Window, error) {
	if s.hours == nil {
		w := schedule.Window{Start: 9 * 60, End: 17 * 60}
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return nil, nil
		}
		return &w, nil
	}
	weekly, err := s.hours.Get(ctx, doctorID.String())
	if err != nil {
		return nil, err
	}
	dh := weekly.ForDate(day)
	if dh == nil {
		return nil, nil
	}
	w, err := dh.Window()
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetAppointment fetches one appointment.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}

// ListDoctorAppointments returns a doctor's appointments in [from, to).
func (s *Service) ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.Appointment, error) {
	return s.repo.ListDoctorAppointments(ctx, doctorID, from, to)
}

// GetIntakeRequest fetches one appointment request.
func (s *Service) GetIntakeRequest(ctx context.Context, id uuid.UUID) (*schedule.AppointmentRequest, error) {
	return s.repo.GetRequest(ctx, id)
}
