package schedule

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the booking state machine.
type AppointmentStatus string

const (
	AppointmentPending     AppointmentStatus = "pending"
	AppointmentConfirmed   AppointmentStatus = "confirmed"
	AppointmentInProgress  AppointmentStatus = "in_progress"
	AppointmentCompleted   AppointmentStatus = "completed"
	AppointmentCancelled   AppointmentStatus = "cancelled"
	AppointmentRescheduled AppointmentStatus = "rescheduled"
	AppointmentNoShow      AppointmentStatus = "no_show"
)

// Terminal reports whether no further transition is permitted.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case AppointmentCompleted, AppointmentCancelled, AppointmentRescheduled, AppointmentNoShow:
		return true
	}
	return false
}

// Blocking reports whether an appointment in this status occupies the
// doctor's calendar for conflict purposes.
func (s AppointmentStatus) Blocking() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentInProgress:
		return true
	}
	return false
}

// appointmentTransitions lists the allowed forward moves. Cancelled and
// no-show are reachable from every non-terminal status; rescheduling is
// modeled as cancel-and-recreate, so "rescheduled" is a terminal stamp on the
// old row rather than a transition target callers pick directly.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:    {AppointmentConfirmed, AppointmentCancelled, AppointmentRescheduled, AppointmentNoShow},
	AppointmentConfirmed:  {AppointmentInProgress, AppointmentCompleted, AppointmentCancelled, AppointmentRescheduled, AppointmentNoShow},
	AppointmentInProgress: {AppointmentCompleted, AppointmentCancelled, AppointmentNoShow},
}

// CanTransitionTo reports whether the status may move to next.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AppointmentType classifies the visit.
type AppointmentType string

const (
	TypeGeneral      AppointmentType = "general"
	TypeFollowUp     AppointmentType = "follow_up"
	TypeEmergency    AppointmentType = "emergency"
	TypeConsultation AppointmentType = "consultation"
	TypeCheckup      AppointmentType = "checkup"
	TypeSurgery      AppointmentType = "surgery"
	TypeVaccination  AppointmentType = "vaccination"
	TypeLabTest      AppointmentType = "lab_test"
)

var appointmentTypes = map[AppointmentType]struct{}{
	TypeGeneral: {}, TypeFollowUp: {}, TypeEmergency: {}, TypeConsultation: {},
	TypeCheckup: {}, TypeSurgery: {}, TypeVaccination: {}, TypeLabTest: {},
}

// Valid reports whether the type is one of the known visit kinds.
func (t AppointmentType) Valid() bool {
	_, ok := appointmentTypes[t]
	return ok
}

// Appointment is a confirmed doctor/patient booking.
type Appointment struct {
	ID              uuid.UUID         `json:"id"`
	PatientID       uuid.UUID         `json:"patient_id"`
	DoctorID        uuid.UUID         `json:"doctor_id"`
	StartsAt        time.Time         `json:"starts_at"`
	DurationMinutes int               `json:"duration_minutes"`
	Status          AppointmentStatus `json:"status"`
	Type            AppointmentType   `json:"type"`
	Virtual         bool              `json:"virtual"`
	RoomNumber      string            `json:"room_number,omitempty"`
	MeetingLink     string            `json:"meeting_link,omitempty"`
	Reason          string            `json:"reason"`
	FeeCents        int64             `json:"fee_cents"`
	Paid            bool              `json:"paid"`
	CancelReason    string            `json:"cancel_reason,omitempty"`
	CompletionNotes string            `json:"completion_notes,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Interval returns the appointment's calendar footprint.
func (a Appointment) Interval() (Interval, error) {
	return IntervalAt(a.StartsAt, a.DurationMinutes)
}

// BlockType classifies doctor-owned non-appointment unavailability.
type BlockType string

const (
	BlockBreak    BlockType = "break"
	BlockLunch    BlockType = "lunch"
	BlockMeeting  BlockType = "meeting"
	BlockPersonal BlockType = "personal"
	BlockOther    BlockType = "other"
)

var blockTypes = map[BlockType]struct{}{
	BlockBreak: {}, BlockLunch: {}, BlockMeeting: {}, BlockPersonal: {}, BlockOther: {},
}

// Valid reports whether the block type is known.
func (t BlockType) Valid() bool {
	_, ok := blockTypes[t]
	return ok
}

// TimeBlock is a doctor-owned blocked interval (break, meeting, personal).
// Deactivation is a soft delete: rows stay addressable once a recurrence
// chain may have been rendered to a client.
type TimeBlock struct {
	ID         uuid.UUID          `json:"id"`
	DoctorID   uuid.UUID          `json:"doctor_id"`
	Type       BlockType          `json:"type"`
	Date       time.Time          `json:"date"`
	Start      int                `json:"start_minutes"`
	End        int                `json:"end_minutes"`
	Recurring  bool               `json:"recurring"`
	Recurrence *RecurrencePattern `json:"recurrence,omitempty"`
	Notes      string             `json:"notes,omitempty"`
	Active     bool               `json:"active"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Interval returns the block's anchor occurrence.
func (b TimeBlock) Interval() Interval {
	return Interval{Date: NormalizeDate(b.Date), Start: b.Start, End: b.End}
}

// OccursOn reports whether the block occupies the given date, expanding the
// recurrence pattern when present.
func (b TimeBlock) OccursOn(date time.Time) bool {
	date = NormalizeDate(date)
	if !b.Recurring || b.Recurrence == nil {
		return b.Interval().Date.Equal(date)
	}
	return b.Recurrence.OccursOn(b.Interval().Date, date)
}

// Validate checks the block invariants.
func (b TimeBlock) Validate() error {
	if !b.Type.Valid() {
		return &ValidationError{Field: "blockType", Reason: "unknown block type"}
	}
	if err := b.Interval().Validate(); err != nil {
		return err
	}
	if b.Recurring {
		if b.Recurrence == nil {
			return &ValidationError{Field: "recurrencePattern", Reason: "required for recurring blocks"}
		}
		if err := b.Recurrence.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RequestStatus is the patient-intake state machine.
type RequestStatus string

const (
	RequestPending     RequestStatus = "pending"
	RequestUnderReview RequestStatus = "under_review"
	RequestApproved    RequestStatus = "approved"
	RequestRejected    RequestStatus = "rejected"
	RequestCancelled   RequestStatus = "cancelled"
)

// Open reports whether the request can still be approved or rejected.
func (s RequestStatus) Open() bool {
	return s == RequestPending || s == RequestUnderReview
}

// AppointmentRequest is a patient-submitted intake awaiting doctor review.
// Approval consumes it to create exactly one Appointment.
type AppointmentRequest struct {
	ID              uuid.UUID       `json:"id"`
	PatientID       uuid.UUID       `json:"patient_id"`
	DoctorID        uuid.UUID       `json:"doctor_id"`
	RequestedStart  time.Time       `json:"requested_start"`
	DurationMinutes int             `json:"duration_minutes"`
	Type            AppointmentType `json:"type"`
	Symptoms        string          `json:"symptoms"`
	MedicalHistory  string          `json:"medical_history,omitempty"`
	Status          RequestStatus   `json:"status"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	AppointmentID   *uuid.UUID      `json:"appointment_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
