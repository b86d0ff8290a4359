package consultation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-scheduling-platform/internal/clock"
	"github.com/wolfman30/clinic-scheduling-platform/internal/events"
	"github.com/wolfman30/clinic-scheduling-platform/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

var consultationTracer = otel.Tracer("clinic.internal.consultation")

// EventPublisher enqueues session lifecycle events; delivery is
// fire-and-forget.
type EventPublisher interface {
	Insert(ctx context.Context, eventType string, payload any) (uuid.UUID, error)
}

// Service implements the consultation session machine. Mutations on one
// session are serialized by a per-session lock; different sessions never
// contend.
type Service struct {
	repo     Repository
	tokenTTL time.Duration
	metrics  *metrics.SchedulingMetrics
	outbox   EventPublisher
	clock    clock.Clock
	logger   *logging.Logger
	locks    *sessionLocks
}

// sessionLocks serializes check-then-write sequences per session. It guards
// both status transitions and the recording sub-state, where two devices of
// the same doctor may race StartRecording.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *sessionLocks) acquire(sessionID uuid.UUID) func() {
	l.mu.Lock()
	lock, ok := l.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[sessionID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// NewService constructs a consultation service. A zero tokenTTL defaults to
// 24 hours.
func NewService(repo Repository, tokenTTL time.Duration, logger *logging.Logger) *Service {
	if repo == nil {
		panic("consultation: repository required")
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		tokenTTL: tokenTTL,
		clock:    clock.Real{},
		logger:   logger,
		locks:    newSessionLocks(),
	}
}

// WithClock injects a clock; used by tests.
func (s *Service) WithClock(c clock.Clock) *Service {
	if c != nil {
		s.clock = c
	}
	return s
}

// WithEvents attaches the event publisher.
func (s *Service) WithEvents(outbox EventPublisher) *Service {
	s.outbox = outbox
	return s
}

// WithMetrics attaches Prometheus metrics.
func (s *Service) WithMetrics(m *metrics.SchedulingMetrics) *Service {
	s.metrics = m
	return s
}

// CreateSession creates a scheduled session for an appointment. The doctor
// and patient are enrolled as participants immediately, each with an
// invitation token for their first join.
func (s *Service) CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error) {
	ctx, span := consultationTracer.Start(ctx, "consultation.create_session")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if existing, err := s.repo.GetSessionByAppointment(ctx, req.AppointmentID); err == nil {
		// One session per appointment; creating again returns the original.
		return existing, nil
	}

	now := s.clock.Now()
	session := &Session{
		ID:             uuid.New(),
		AppointmentID:  req.AppointmentID,
		DoctorID:       req.DoctorID,
		PatientID:      req.PatientID,
		RoomID:         req.RoomID,
		Status:         SessionScheduled,
		ScheduledStart: req.ScheduledStart.UTC(),
		ChiefComplaint: req.ChiefComplaint,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("clinic.session_id", session.ID.String()))

	for _, member := range []struct {
		userID uuid.UUID
		role   ParticipantRole
	}{
		{req.DoctorID, RoleDoctor},
		{req.PatientID, RolePatient},
	} {
		if _, err := s.enroll(ctx, session.ID, member.userID, "", member.role, nil); err != nil {
			return nil, err
		}
	}

	s.logger.Info("consultation session created",
		"session_id", session.ID,
		"appointment_id", session.AppointmentID,
	)
	return session, nil
}

// GetSession fetches one session.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.repo.GetSession(ctx, id)
}

// mutableSession loads a session and rejects it once terminal. Every write
// to a session's roster or notes goes through this check.
func (s *Service) mutableSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, &TransitionError{From: session.Status, Attempted: session.Status}
	}
	return session, nil
}

// transition applies a status change under the session lock.
func (s *Service) transition(ctx context.Context, id uuid.UUID, to SessionStatus, mutate func(*Session)) (*Session, error) {
	unlock := s.locks.acquire(id)
	defer unlock()

	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	from := session.Status
	if !from.CanTransitionTo(to) {
		return nil, &TransitionError{From: from, Attempted: to}
	}
	session.Status = to
	if mutate != nil {
		mutate(session)
	}
	session.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.ObserveSessionTransition(string(to))
	eventType := events.TypeConsultationStarted
	if to.Terminal() {
		eventType = events.TypeConsultationEnded
	}
	s.publish(ctx, eventType, events.ConsultationTransitionV1{
		EventID:    uuid.NewString(),
		SessionID:  session.ID.String(),
		DoctorID:   session.DoctorID.String(),
		PatientID:  session.PatientID.String(),
		FromStatus: string(from),
		ToStatus:   string(to),
		OccurredAt: session.UpdatedAt,
	})
	return session, nil
}

// StartConsultation moves a scheduled session to in progress and stamps the
// actual start time.
func (s *Service) StartConsultation(ctx context.Context, id uuid.UUID) (*Session, error) {
	ctx, span := consultationTracer.Start(ctx, "consultation.start")
	defer span.End()

	now := s.clock.Now()
	return s.transition(ctx, id, SessionInProgress, func(sess *Session) {
		sess.ActualStart = &now
	})
}

// EndConsultation completes an in-progress session: stamps the actual end
// time, computes the actual duration, finalizes any running recording, and
// records the closing clinical summary.
func (s *Service) EndConsultation(ctx context.Context, id uuid.UUID, summary *CloseSessionRequest) (*Session, error) {
	ctx, span := consultationTracer.Start(ctx, "consultation.end")
	defer span.End()

	now := s.clock.Now()
	session, err := s.transition(ctx, id, SessionCompleted, func(sess *Session) {
		sess.ActualEnd = &now
		if sess.ActualStart != nil {
			sess.ActualDurationMinutes = int(now.Sub(*sess.ActualStart).Minutes())
		}
		sess.Recording = false
		if summary != nil {
			sess.Observations = summary.Observations
			sess.Diagnosis = summary.Diagnosis
			sess.TreatmentPlan = summary.TreatmentPlan
			sess.FollowUpInstructions = summary.FollowUpInstructions
			sess.NextFollowUpDate = summary.NextFollowUpDate
		}
	})
	if err != nil {
		return nil, err
	}
	s.finalizeActiveRecording(ctx, id, now)
	return session, nil
}

// CancelConsultation cancels from scheduled or in progress. Terminal.
func (s *Service) CancelConsultation(ctx context.Context, id uuid.UUID, reason string) (*Session, error) {
	ctx, span := consultationTracer.Start(ctx, "consultation.cancel")
	defer span.End()

	now := s.clock.Now()
	session, err := s.transition(ctx, id, SessionCancelled, func(sess *Session) {
		sess.CancelReason = reason
		sess.Recording = false
	})
	if err != nil {
		return nil, err
	}
	s.finalizeActiveRecording(ctx, id, now)
	return session, nil
}

// finalizeActiveRecording moves a still-running recording to processing when
// its session closes. The recording invariant forbids an active recording on
// a terminal session.
func (s *Service) finalizeActiveRecording(ctx context.Context, sessionID uuid.UUID, now time.Time) {
	rec, err := s.repo.ActiveRecording(ctx, sessionID)
	if err != nil {
		return
	}
	rec.Status = RecordingProcessing
	rec.StoppedAt = &now
	rec.DurationSeconds = int(now.Sub(rec.StartedAt).Seconds())
	if err := s.repo.UpdateRecording(ctx, rec); err != nil {
		s.logger.Error("failed to finalize recording", "error", err, "session_id", sessionID)
		return
	}
	s.metrics.RecordingStopped()
}

func (s *Service) publish(ctx context.Context, eventType string, payload any) {
	if s.outbox == nil {
		return
	}
	if _, err := s.outbox.Insert(ctx, eventType, payload); err != nil {
		s.logger.Error("failed to publish event", "error", err, "type", eventType)
	}
}
