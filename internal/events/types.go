// Package events publishes scheduling lifecycle events through a Postgres
// outbox. Delivery is fire-and-forget from the caller's point of view: the
// booking and consultation services insert an entry in the same transaction
// scope as their write, and the deliverer drains entries to the configured
// sink. Retry and fan-out are the sink's responsibility.
package events

import "time"

// Event type names as stored in the outbox.
const (
	TypeAppointmentCreated   = "appointment.created.v1"
	TypeAppointmentUpdated   = "appointment.updated.v1"
	TypeAppointmentCancelled = "appointment.cancelled.v1"
	TypeAppointmentCompleted = "appointment.completed.v1"
	TypeRequestApproved      = "appointment_request.approved.v1"
	TypeRequestRejected      = "appointment_request.rejected.v1"
	TypeTimeBlockCreated     = "time_block.created.v1"
	TypeConsultationStarted  = "consultation.started.v1"
	TypeConsultationEnded    = "consultation.ended.v1"
	TypeParticipantJoined    = "consultation.participant_joined.v1"
	TypeRecordingStarted     = "consultation.recording_started.v1"
)

type AppointmentCreatedV1 struct {
	EventID         string    `json:"event_id"`
	AppointmentID   string    `json:"appointment_id"`
	DoctorID        string    `json:"doctor_id"`
	PatientID       string    `json:"patient_id"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Type            string    `json:"type"`
	CreatedAt       time.Time `json:"created_at"`
}

type AppointmentStatusChangedV1 struct {
	EventID       string    `json:"event_id"`
	AppointmentID string    `json:"appointment_id"`
	DoctorID      string    `json:"doctor_id"`
	PatientID     string    `json:"patient_id"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type RequestReviewedV1 struct {
	EventID       string    `json:"event_id"`
	RequestID     string    `json:"request_id"`
	DoctorID      string    `json:"doctor_id"`
	PatientID     string    `json:"patient_id"`
	Outcome       string    `json:"outcome"` // "approved" or "rejected"
	AppointmentID string    `json:"appointment_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type TimeBlockCreatedV1 struct {
	EventID   string    `json:"event_id"`
	BlockID   string    `json:"block_id"`
	DoctorID  string    `json:"doctor_id"`
	BlockType string    `json:"block_type"`
	Date      time.Time `json:"date"`
	Recurring bool      `json:"recurring"`
	CreatedAt time.Time `json:"created_at"`
}

type ConsultationTransitionV1 struct {
	EventID    string    `json:"event_id"`
	SessionID  string    `json:"session_id"`
	DoctorID   string    `json:"doctor_id"`
	PatientID  string    `json:"patient_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ParticipantJoinedV1 struct {
	EventID       string    `json:"event_id"`
	SessionID     string    `json:"session_id"`
	ParticipantID string    `json:"participant_id"`
	Role          string    `json:"role"`
	JoinedAt      time.Time `json:"joined_at"`
}

type RecordingStartedV1 struct {
	EventID     string    `json:"event_id"`
	SessionID   string    `json:"session_id"`
	RecordingID string    `json:"recording_id"`
	StartedAt   time.Time `json:"started_at"`
}
