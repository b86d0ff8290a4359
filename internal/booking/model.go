package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
)

// CreateAppointmentRequest is the request body for booking an appointment.
type CreateAppointmentRequest struct {
	PatientID       uuid.UUID                `json:"patient_id"`
	DoctorID        uuid.UUID                `json:"doctor_id"`
	StartsAt        time.Time                `json:"starts_at"`
	DurationMinutes int                      `json:"duration_minutes"`
	Type            schedule.AppointmentType `json:"type"`
	Virtual         bool                     `json:"virtual"`
	RoomNumber      string                   `json:"room_number,omitempty"`
	MeetingLink     string                   `json:"meeting_link,omitempty"`
	Reason          string                   `json:"reason"`
	FeeCents        int64                    `json:"fee_cents"`
}

// Validate validates the create appointment request
func (r *CreateAppointmentRequest) Validate() error {
	if r.PatientID == uuid.Nil {
		return &schedule.ValidationError{Field: "patientId", Reason: "required"}
	}
	if r.DoctorID == uuid.Nil {
		return &schedule.ValidationError{Field: "doctorId", Reason: "required"}
	}
	if r.DurationMinutes <= 0 {
		return &schedule.ValidationError{Field: "durationMinutes", Reason: "must be positive"}
	}
	if r.StartsAt.IsZero() {
		return &schedule.ValidationError{Field: "startsAt", Reason: "required"}
	}
	if r.Type == "" {
		r.Type = schedule.TypeGeneral
	}
	if !r.Type.Valid() {
		return &schedule.ValidationError{Field: "type", Reason: "unknown appointment type"}
	}
	if strings.TrimSpace(r.Reason) == "" {
		return &schedule.ValidationError{Field: "reasonForVisit", Reason: "required"}
	}
	if r.FeeCents < 0 {
		return &schedule.ValidationError{Field: "fee", Reason: "must not be negative"}
	}
	return nil
}

// UpdateAppointmentRequest carries a partial appointment edit. Nil fields are
// left unchanged.
type UpdateAppointmentRequest struct {
	ID              uuid.UUID                   `json:"-"`
	StartsAt        *time.Time                  `json:"starts_at,omitempty"`
	DurationMinutes *int                        `json:"duration_minutes,omitempty"`
	Status          *schedule.AppointmentStatus `json:"status,omitempty"`
	RoomNumber      *string                     `json:"room_number,omitempty"`
	MeetingLink     *string                     `json:"meeting_link,omitempty"`
	Reason          *string                     `json:"reason,omitempty"`
	Paid            *bool                       `json:"paid,omitempty"`
}

// Validate validates the update appointment request
func (r *UpdateAppointmentRequest) Validate() error {
	if r.ID == uuid.Nil {
		return &schedule.ValidationError{Field: "id", Reason: "required"}
	}
	if r.DurationMinutes != nil && *r.DurationMinutes <= 0 {
		return &schedule.ValidationError{Field: "durationMinutes", Reason: "must be positive"}
	}
	return nil
}

// CreateTimeBlockRequest is the request body for blocking doctor time.
// A recurring block carries a recurrence pattern; CreateTimeBlock expands it
// occurrence by occurrence during the conflict check but stores one row.
type CreateTimeBlockRequest struct {
	DoctorID   uuid.UUID                   `json:"doctor_id"`
	Type       schedule.BlockType          `json:"type"`
	Date       time.Time                   `json:"date"`
	StartTime  string                      `json:"start_time"` // "12:00"
	EndTime    string                      `json:"end_time"`   // "13:00"
	Recurring  bool                        `json:"recurring"`
	Recurrence *schedule.RecurrencePattern `json:"recurrence,omitempty"`
	Notes      string                      `json:"notes,omitempty"`
}

// Validate validates the create time block request
func (r *CreateTimeBlockRequest) Validate() error {
	_, err := r.toBlock()
	return err
}

// toBlock converts the request into a validated block value.
func (r *CreateTimeBlockRequest) toBlock() (*schedule.TimeBlock, error) {
	if r.DoctorID == uuid.Nil {
		return nil, &schedule.ValidationError{Field: "doctorId", Reason: "required"}
	}
	if r.Date.IsZero() {
		return nil, &schedule.ValidationError{Field: "date", Reason: "required"}
	}
	if r.Type == "" {
		r.Type = schedule.BlockOther
	}
	block := &schedule.TimeBlock{
		DoctorID:   r.DoctorID,
		Type:       r.Type,
		Date:       schedule.NormalizeDate(r.Date),
		Recurring:  r.Recurring,
		Recurrence: r.Recurrence,
		Notes:      r.Notes,
	}
	var err error
	if block.Start, err = schedule.ParseClock(r.StartTime); err != nil {
		return nil, err
	}
	if block.End, err = schedule.ParseClock(r.EndTime); err != nil {
		return nil, err
	}
	if err := block.Validate(); err != nil {
		return nil, err
	}
	return block, nil
}

// UpdateTimeBlockRequest carries a partial time-block edit.
type UpdateTimeBlockRequest struct {
	ID        uuid.UUID           `json:"-"`
	Type      *schedule.BlockType `json:"type,omitempty"`
	Date      *time.Time          `json:"date,omitempty"`
	StartTime *string             `json:"start_time,omitempty"`
	EndTime   *string             `json:"end_time,omitempty"`
	Notes     *string             `json:"notes,omitempty"`
}

// apply copies the non-nil fields onto an existing block.
func (r *UpdateTimeBlockRequest) apply(block *schedule.TimeBlock) error {
	if r.Type != nil {
		block.Type = *r.Type
	}
	if r.Date != nil {
		block.Date = schedule.NormalizeDate(*r.Date)
	}
	var err error
	if r.StartTime != nil {
		if block.Start, err = schedule.ParseClock(*r.StartTime); err != nil {
			return err
		}
	}
	if r.EndTime != nil {
		if block.End, err = schedule.ParseClock(*r.EndTime); err != nil {
			return err
		}
	}
	if r.Notes != nil {
		block.Notes = *r.Notes
	}
	return nil
}

// CreateIntakeRequest is the request body for a patient-submitted
// appointment request awaiting doctor review.
type CreateIntakeRequest struct {
	PatientID       uuid.UUID                `json:"patient_id"`
	DoctorID        uuid.UUID                `json:"doctor_id"`
	RequestedStart  time.Time                `json:"requested_start"`
	DurationMinutes int                      `json:"duration_minutes"`
	Type            schedule.AppointmentType `json:"type"`
	Symptoms        string                   `json:"symptoms"`
	MedicalHistory  string                   `json:"medical_history,omitempty"`
}

// Validate validates the intake request
func (r *CreateIntakeRequest) Validate() error {
	if r.PatientID == uuid.Nil {
		return &schedule.ValidationError{Field: "patientId", Reason: "required"}
	}
	if r.DoctorID == uuid.Nil {
		return &schedule.ValidationError{Field: "doctorId", Reason: "required"}
	}
	if r.RequestedStart.IsZero() {
		return &schedule.ValidationError{Field: "requestedStart", Reason: "required"}
	}
	if r.DurationMinutes <= 0 {
		return &schedule.ValidationError{Field: "durationMinutes", Reason: "must be positive"}
	}
	if r.Type == "" {
		r.Type = schedule.TypeGeneral
	}
	if !r.Type.Valid() {
		return &schedule.ValidationError{Field: "type", Reason: "unknown appointment type"}
	}
	if strings.TrimSpace(r.Symptoms) == "" {
		return &schedule.ValidationError{Field: "symptoms", Reason: "required"}
	}
	return nil
}

// DayAvailability is one date's slot grid in a range query.
type DayAvailability struct {
	Date  time.Time           `json:"date"`
	Slots []schedule.TimeSlot `json:"slots"`
}
