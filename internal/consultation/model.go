// Package consultation manages the live-encounter state machine: session
// lifecycle, the recording sub-state, the participant roster with invitation
// tokens, and clinical notes.
package consultation

import (
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
)

// SessionStatus is the lifecycle state of a consultation session.
type SessionStatus string

const (
	SessionScheduled  SessionStatus = "scheduled"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
)

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionScheduled:  {SessionInProgress, SessionCancelled},
	SessionInProgress: {SessionCompleted, SessionCancelled},
	SessionCompleted:  {},
	SessionCancelled:  {},
}

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// CanTransitionTo reports whether the state machine permits moving to next.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Session is the live encounter tied one-to-one to an appointment.
// ActualStart is set only on the transition into in_progress and ActualEnd
// only on the transition into completed.
type Session struct {
	ID                    uuid.UUID     `json:"id"`
	AppointmentID         uuid.UUID     `json:"appointment_id"`
	DoctorID              uuid.UUID     `json:"doctor_id"`
	PatientID             uuid.UUID     `json:"patient_id"`
	RoomID                string        `json:"room_id,omitempty"`
	Status                SessionStatus `json:"status"`
	ScheduledStart        time.Time     `json:"scheduled_start"`
	ActualStart           *time.Time    `json:"actual_start,omitempty"`
	ActualEnd             *time.Time    `json:"actual_end,omitempty"`
	ActualDurationMinutes int           `json:"actual_duration_minutes,omitempty"`
	Recording             bool          `json:"is_recording"`
	ChiefComplaint        string        `json:"chief_complaint,omitempty"`
	Observations          string        `json:"observations,omitempty"`
	Diagnosis             string        `json:"diagnosis,omitempty"`
	TreatmentPlan         string        `json:"treatment_plan,omitempty"`
	FollowUpInstructions  string        `json:"follow_up_instructions,omitempty"`
	NextFollowUpDate      *time.Time    `json:"next_follow_up_date,omitempty"`
	Rating                int           `json:"rating,omitempty"`
	Feedback              string        `json:"feedback,omitempty"`
	CancelReason          string        `json:"cancel_reason,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// ParticipantRole identifies how a participant takes part in a session.
type ParticipantRole string

const (
	RoleDoctor   ParticipantRole = "doctor"
	RolePatient  ParticipantRole = "patient"
	RoleObserver ParticipantRole = "observer"
)

// Valid reports whether the role is known.
func (r ParticipantRole) Valid() bool {
	switch r {
	case RoleDoctor, RolePatient, RoleObserver:
		return true
	}
	return false
}

// member reports whether the role reconnects token-free.
func (r ParticipantRole) member() bool {
	return r == RoleDoctor || r == RolePatient
}

// Permission is a bitmask of in-session capabilities.
type Permission uint8

const (
	PermSpeak Permission = 1 << iota
	PermVideo
	PermChat
	PermShareScreen
)

// DefaultPermissions returns the capability set granted to a role.
func DefaultPermissions(role ParticipantRole) Permission {
	switch role {
	case RoleDoctor:
		return PermSpeak | PermVideo | PermChat | PermShareScreen
	case RolePatient:
		return PermSpeak | PermVideo | PermChat
	default:
		return PermChat
	}
}

// Participant is one joinable identity in a session. UserID is Nil for guest
// invitees. A consumed or expired invitation token is never reusable.
type Participant struct {
	ID              uuid.UUID       `json:"id"`
	SessionID       uuid.UUID       `json:"session_id"`
	UserID          uuid.UUID       `json:"user_id,omitempty"`
	Name            string          `json:"name"`
	Role            ParticipantRole `json:"role"`
	Permissions     Permission      `json:"permissions"`
	InvitationToken string          `json:"-"`
	TokenExpiresAt  time.Time       `json:"token_expires_at"`
	TokenConsumed   bool            `json:"-"`
	JoinedAt        *time.Time      `json:"joined_at,omitempty"`
	LeftAt          *time.Time      `json:"left_at,omitempty"`
	Online          bool            `json:"is_online"`
	Removed         bool            `json:"is_removed"`
	RemovalReason   string          `json:"removal_reason,omitempty"`
}

// RecordingStatus is the lifecycle state of one session recording.
type RecordingStatus string

const (
	RecordingActive     RecordingStatus = "recording"
	RecordingProcessing RecordingStatus = "processing"
	RecordingReady      RecordingStatus = "ready"
	RecordingFailed     RecordingStatus = "failed"
)

// Recording is one capture of a session. At most one recording per session
// may be in the recording status at a time.
type Recording struct {
	ID                uuid.UUID       `json:"id"`
	SessionID         uuid.UUID       `json:"session_id"`
	URL               string          `json:"url,omitempty"`
	Type              string          `json:"type,omitempty"`
	Status            RecordingStatus `json:"status"`
	DurationSeconds   int             `json:"duration_seconds,omitempty"`
	Transcript        string          `json:"transcript,omitempty"`
	PatientAccessible bool            `json:"patient_accessible"`
	DoctorAccessible  bool            `json:"doctor_accessible"`
	StartedAt         time.Time       `json:"started_at"`
	StoppedAt         *time.Time      `json:"stopped_at,omitempty"`
}

// NoteType classifies a clinical note.
type NoteType string

const (
	NoteGeneral      NoteType = "general"
	NoteDiagnosis    NoteType = "diagnosis"
	NotePrescription NoteType = "prescription"
	NoteFollowUp     NoteType = "follow_up"
)

// Note is a free-text clinical annotation. Private and SharedWithPatient are
// mutually exclusive: a private note is never shareable.
type Note struct {
	ID                uuid.UUID `json:"id"`
	SessionID         uuid.UUID `json:"session_id"`
	AuthorID          uuid.UUID `json:"author_id"`
	Content           string    `json:"content"`
	Type              NoteType  `json:"type"`
	Private           bool      `json:"is_private"`
	SharedWithPatient bool      `json:"is_shared_with_patient"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	AppointmentID  uuid.UUID `json:"appointment_id"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	RoomID         string    `json:"room_id,omitempty"`
	ScheduledStart time.Time `json:"scheduled_start"`
	ChiefComplaint string    `json:"chief_complaint,omitempty"`
}

// Validate validates the create session request
func (r *CreateSessionRequest) Validate() error {
	if r.AppointmentID == uuid.Nil {
		return &schedule.ValidationError{Field: "appointmentId", Reason: "required"}
	}
	if r.DoctorID == uuid.Nil {
		return &schedule.ValidationError{Field: "doctorId", Reason: "required"}
	}
	if r.PatientID == uuid.Nil {
		return &schedule.ValidationError{Field: "patientId", Reason: "required"}
	}
	if r.ScheduledStart.IsZero() {
		return &schedule.ValidationError{Field: "scheduledStart", Reason: "required"}
	}
	return nil
}

// AddParticipantRequest is the request body for inviting a participant.
type AddParticipantRequest struct {
	SessionID   uuid.UUID       `json:"-"`
	UserID      uuid.UUID       `json:"user_id,omitempty"`
	Name        string          `json:"name"`
	Role        ParticipantRole `json:"role"`
	Permissions *Permission     `json:"permissions,omitempty"`
}

// Validate validates the add participant request
func (r *AddParticipantRequest) Validate() error {
	if r.SessionID == uuid.Nil {
		return &schedule.ValidationError{Field: "sessionId", Reason: "required"}
	}
	if r.Name == "" {
		return &schedule.ValidationError{Field: "name", Reason: "required"}
	}
	if r.Role == "" {
		r.Role = RoleObserver
	}
	if !r.Role.Valid() {
		return &schedule.ValidationError{Field: "role", Reason: "unknown role"}
	}
	return nil
}

// AddNoteRequest is the request body for adding a clinical note.
type AddNoteRequest struct {
	SessionID         uuid.UUID `json:"-"`
	AuthorID          uuid.UUID `json:"author_id"`
	Content           string    `json:"content"`
	Type              NoteType  `json:"type,omitempty"`
	Private           bool      `json:"is_private"`
	SharedWithPatient bool      `json:"is_shared_with_patient"`
}

// Validate validates the add note request
func (r *AddNoteRequest) Validate() error {
	if r.SessionID == uuid.Nil {
		return &schedule.ValidationError{Field: "sessionId", Reason: "required"}
	}
	if r.AuthorID == uuid.Nil {
		return &schedule.ValidationError{Field: "authorId", Reason: "required"}
	}
	if r.Content == "" {
		return &schedule.ValidationError{Field: "content", Reason: "required"}
	}
	if r.Type == "" {
		r.Type = NoteGeneral
	}
	if r.Private && r.SharedWithPatient {
		return &schedule.ValidationError{Field: "isSharedWithPatient", Reason: "private notes cannot be shared"}
	}
	return nil
}

// UpdateNoteRequest carries a partial note edit by its author.
type UpdateNoteRequest struct {
	NoteID            uuid.UUID `json:"-"`
	AuthorID          uuid.UUID `json:"-"`
	Content           *string   `json:"content,omitempty"`
	Private           *bool     `json:"is_private,omitempty"`
	SharedWithPatient *bool     `json:"is_shared_with_patient,omitempty"`
}

// CloseSessionRequest carries the clinical summary written at completion.
type CloseSessionRequest struct {
	Observations         string     `json:"observations,omitempty"`
	Diagnosis            string     `json:"diagnosis,omitempty"`
	TreatmentPlan        string     `json:"treatment_plan,omitempty"`
	FollowUpInstructions string     `json:"follow_up_instructions,omitempty"`
	NextFollowUpDate     *time.Time `json:"next_follow_up_date,omitempty"`
}
