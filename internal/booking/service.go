// Package booking orchestrates appointment and time-block writes. It is the
// only mutation path for a doctor's calendar: every create/update runs the
// conflict check and the write under a per-doctor serialization region.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-scheduling-platform/internal/clock"
	"github.com/wolfman30/clinic-scheduling-platform/internal/doctors"
	"github.com/wolfman30/clinic-scheduling-platform/internal/events"
	"github.com/wolfman30/clinic-scheduling-platform/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

var bookingTracer = otel.Tracer("clinic.internal.booking")

// HoursProvider supplies a doctor's weekly working hours.
type HoursProvider interface {
	Get(ctx context.Context, doctorID string) (*doctors.WeeklyHours, error)
}

// EventPublisher enqueues lifecycle events; delivery is fire-and-forget.
type EventPublisher interface {
	Insert(ctx context.Context, eventType string, payload any) (uuid.UUID, error)
}

// SlotCache caches computed day grids and is invalidated on writes.
type SlotCache interface {
	Get(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.TimeSlot, bool)
	Set(ctx context.Context, doctorID uuid.UUID, date time.Time, slots []schedule.TimeSlot)
	InvalidateDate(ctx context.Context, doctorID uuid.UUID, date time.Time)
	InvalidateDoctor(ctx context.Context, doctorID uuid.UUID)
}

// Options tune service policy.
type Options struct {
	// SlotMinutes is the slot size for availability grids.
	SlotMinutes int
	// AllowCompleteFromConfirmed permits CompleteAppointment when the caller
	// skipped the explicit in-progress step.
	AllowCompleteFromConfirmed bool
}

// Service implements the booking operations.
type Service struct {
	repo    Repository
	hours   HoursProvider
	cache   SlotCache
	outbox  EventPublisher
	metrics *metrics.SchedulingMetrics
	clock   clock.Clock
	logger  *logging.Logger
	locks   *doctorLocks
	opts    Options
}

// NewService constructs a booking service.
func NewService(repo Repository, hours HoursProvider, opts Options, logger *logging.Logger) *Service {
	if repo == nil {
		panic("booking: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if opts.SlotMinutes <= 0 {
		opts.SlotMinutes = 30
	}
	return &Service{
		repo:   repo,
		hours:  hours,
		clock:  clock.Real{},
		logger: logger,
		locks:  newDoctorLocks(),
		opts:   opts,
	}
}

// WithClock injects a clock; used by tests.
func (s *Service) WithClock(c clock.Clock) *Service {
	if c != nil {
		s.clock = c
	}
	return s
}

// WithCache attaches a slot cache.
func (s *Service) WithCache(cache SlotCache) *Service {
	s.cache = cache
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

// checkWindow is how far around a candidate date existing appointments are
// loaded for a conflict check.
const checkWindow = 24 * time.Hour

// findConflict loads the doctor's calendar surrounding the candidate and runs
// the pure checker. Callers must hold the doctor lock when the result gates a
// write.
func (s *Service) findConflict(ctx context.Context, doctorID uuid.UUID, candidate schedule.Interval, opts schedule.CheckOptions) (*schedule.ConflictError, error) {
	from := candidate.Date.Add(-checkWindow)
	to := candidate.Date.Add(2 * checkWindow)
	appts, err := s.repo.ListDoctorAppointments(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	blocks, err := s.repo.ListDoctorTimeBlocks(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return schedule.FindConflict(doctorID, candidate, appts, blocks, opts), nil
}

// CreateAppointment books an appointment. The conflict check and insert run
// inside the doctor's serialization region; on conflict nothing is written
// and the caller gets the conflicting interval back.
func (s *Service) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*schedule.Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.create_appointment")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !req.StartsAt.After(now) {
		return nil, &schedule.ValidationError{Field: "startsAt", Reason: "appointment must be in the future"}
	}
	candidate, err := schedule.IntervalAt(req.StartsAt, req.DurationMinutes)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("clinic.doctor_id", req.DoctorID.String()))

	unlock := s.locks.acquire(req.DoctorID)
	defer unlock()

	if conflict, err := s.findConflict(ctx, req.DoctorID, candidate, schedule.CheckOptions{}); err != nil {
		return nil, err
	} else if conflict != nil {
		s.metrics.ObserveConflict(conflict.Source)
		s.metrics.ObserveAppointment("create", "conflict")
		return nil, conflict
	}

	appt := &schedule.Appointment{
		ID:              uuid.New(),
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		StartsAt:        req.StartsAt.UTC(),
		DurationMinutes: req.DurationMinutes,
		Status:          schedule.AppointmentPending,
		Type:            req.Type,
		Virtual:         req.Virtual,
		RoomNumber:      req.RoomNumber,
		MeetingLink:     req.MeetingLink,
		Reason:          req.Reason,
		FeeCents:        req.FeeCents,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateAppointment(ctx, appt); err != nil {
		// The storage layer rechecks overlap via its exclusion constraint;
		// a losing concurrent writer surfaces as a conflict, not a 500.
		if conflict, ok := asConflict(err); ok {
			s.metrics.ObserveAppointment("create", "conflict")
			return nil, conflict
		}
		s.metrics.ObserveAppointment("create", "error")
		return nil, err
	}

	s.invalidateSlots(ctx, appt.DoctorID, candidate.Date)
	s.metrics.ObserveAppointment("create", "ok")
	s.publish(ctx, events.TypeAppointmentCreated, events.AppointmentCreatedV1{
		EventID:         uuid.NewString(),
		AppointmentID:   appt.ID.String(),
		DoctorID:        appt.DoctorID.String(),
		PatientID:       appt.PatientID.String(),
		StartsAt:        appt.StartsAt,
		DurationMinutes: appt.DurationMinutes,
		Type:            string(appt.Type),
		CreatedAt:       now,
	})
	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"starts_at", appt.StartsAt,
	)
	return appt, nil
}

// UpdateAppointment edits an appointment in place. Time changes re-run the
// conflict check excluding the appointment's own id; status changes go
// through the state machine.
func (s *Service) UpdateAppointment(ctx context.Context, req *UpdateAppointmentRequest) (*schedule.Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.update_appointment")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	appt, err := s.repo.GetAppointment(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(appt.DoctorID)
	defer unlock()

	// Re-read under the lock so we do not race another editor.
	appt, err = s.repo.GetAppointment(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	prevDate := schedule.NormalizeDate(appt.StartsAt)

	if req.Status != nil && *req.Status != appt.Status {
		if !appt.Status.CanTransitionTo(*req.Status) {
			return nil, &TransitionError{From: appt.Status, Attempted: *req.Status}
		}
		appt.Status = *req.Status
	}
	if req.StartsAt != nil {
		appt.StartsAt = req.StartsAt.UTC()
	}
	if req.DurationMinutes != nil {
		appt.DurationMinutes = *req.DurationMinutes
	}
	if req.RoomNumber != nil {
		appt.RoomNumber = *req.RoomNumber
	}
	if req.MeetingLink != nil {
		appt.MeetingLink = *req.MeetingLink
	}
	if req.Reason != nil {
		appt.Reason = *req.Reason
	}
	if req.Paid != nil {
		appt.Paid = *req.Paid
	}

	if req.StartsAt != nil || req.DurationMinutes != nil {
		candidate, err := schedule.IntervalAt(appt.StartsAt, appt.DurationMinutes)
		if err != nil {
			return nil, err
		}
		conflict, err := s.findConflict(ctx, appt.DoctorID, candidate, schedule.CheckOptions{ExcludeAppointmentID: appt.ID})
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			s.metrics.ObserveConflict(conflict.Source)
			s.metrics.ObserveAppointment("update", "conflict")
			return nil, conflict
		}
	}

	appt.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		if conflict, ok := asConflict(err); ok {
			s.metrics.ObserveAppointment("update", "conflict")
			return nil, conflict
		}
		s.metrics.ObserveAppointment("update", "error")
		return nil, err
	}

	s.invalidateSlots(ctx, appt.DoctorID, prevDate)
	s.invalidateSlots(ctx, appt.DoctorID, schedule.NormalizeDate(appt.StartsAt))
	s.metrics.ObserveAppointment("update", "ok")
	return appt, nil
}

// transitionAppointment applies a status change under the doctor lock.
func (s *Service) transitionAppointment(ctx context.Context, id uuid.UUID, to schedule.AppointmentStatus, mutate func(*schedule.Appointment)) (*schedule.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(appt.DoctorID)
	defer unlock()

	appt, err = s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	from := appt.Status
	if !from.CanTransitionTo(to) {
		return nil, &TransitionError{From: from, Attempted: to}
	}
	appt.Status = to
	if mutate != nil {
		mutate(appt)
	}
	appt.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, err
	}

	s.invalidateSlots(ctx, appt.DoctorID, schedule.NormalizeDate(appt.StartsAt))
	s.metrics.ObserveAppointment(string(to), "ok")
	eventType := events.TypeAppointmentUpdated
	switch to {
	case schedule.AppointmentCancelled:
		eventType = events.TypeAppointmentCancelled
	case schedule.AppointmentCompleted:
		eventType = events.TypeAppointmentCompleted
	}
	s.publish(ctx, eventType, events.AppointmentStatusChangedV1{
		EventID:       uuid.NewString(),
		AppointmentID: appt.ID.String(),
		DoctorID:      appt.DoctorID.String(),
		PatientID:     appt.PatientID.String(),
		FromStatus:    string(from),
		ToStatus:      string(to),
		Reason:        appt.CancelReason,
		OccurredAt:    appt.UpdatedAt,
	})
	return appt, nil
}

// ConfirmAppointment moves a pending appointment to confirmed.
func (s *Service) ConfirmAppointment(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	return s.transitionAppointment(ctx, id, schedule.AppointmentConfirmed, nil)
}

// StartAppointment moves a confirmed appointment to in progress.
func (s *Service) StartAppointment(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	return s.transitionAppointment(ctx, id, schedule.AppointmentInProgress, nil)
}

// CancelAppointment cancels from any non-terminal status. Terminal and
// irreversible.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*schedule.Appointment, error) {
	return s.transitionAppointment(ctx, id, schedule.AppointmentCancelled, func(a *schedule.Appointment) {
		a.CancelReason = reason
	})
}

// CompleteAppointment finishes a visit. Allowed from in_progress, and from
// confirmed when the service is configured to let callers skip the explicit
// start step.
func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID, notes string) (*schedule.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == schedule.AppointmentConfirmed && !s.opts.AllowCompleteFromConfirmed {
		return nil, &TransitionError{From: appt.Status, Attempted: schedule.AppointmentCompleted}
	}
	return s.transitionAppointment(ctx, id, schedule.AppointmentCompleted, func(a *schedule.Appointment) {
		a.CompletionNotes = notes
	})
}

// MarkNoShow records a patient no-show. Terminal.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	return s.transitionAppointment(ctx, id, schedule.AppointmentNoShow, nil)
}

// RescheduleAppointment is cancel-and-recreate: the old appointment is
// stamped rescheduled and a fresh pending appointment is booked at the new
// time. If the new time conflicts, the old appointment is left untouched.
func (s *Service) RescheduleAppointment(ctx context.Context, id uuid.UUID, newStart time.Time, newDuration int) (*schedule.Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.reschedule_appointment")
	defer span.End()

	old, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if newDuration <= 0 {
		newDuration = old.DurationMinutes
	}
	now := s.clock.Now()
	if !newStart.After(now) {
		return nil, &schedule.ValidationError{Field: "startsAt", Reason: "appointment must be in the future"}
	}
	candidate, err := schedule.IntervalAt(newStart, newDuration)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(old.DoctorID)
	defer unlock()

	old, err = s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !old.Status.CanTransitionTo(schedule.AppointmentRescheduled) {
		return nil, &TransitionError{From: old.Status, Attempted: schedule.AppointmentRescheduled}
	}

	// The old slot is being vacated, so exclude it from the check.
	conflict, err := s.findConflict(ctx, old.DoctorID, candidate, schedule.CheckOptions{ExcludeAppointmentID: old.ID})
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		s.metrics.ObserveConflict(conflict.Source)
		return nil, conflict
	}

	old.Status = schedule.AppointmentRescheduled
	old.UpdatedAt = now
	if err := s.repo.UpdateAppointment(ctx, old); err != nil {
		return nil, err
	}

	replacement := *old
	replacement.ID = uuid.New()
	replacement.StartsAt = newStart.UTC()
	replacement.DurationMinutes = newDuration
	replacement.Status = schedule.AppointmentPending
	replacement.CancelReason = ""
	replacement.CreatedAt = now
	replacement.UpdatedAt = now
	if err := s.repo.CreateAppointment(ctx, &replacement); err != nil {
		if conflict, ok := asConflict(err); ok {
			return nil, conflict
		}
		return nil, err
	}

	s.invalidateSlots(ctx, old.DoctorID, schedule.NormalizeDate(old.StartsAt))
	s.invalidateSlots(ctx, old.DoctorID, candidate.Date)
	s.metrics.ObserveAppointment("reschedule", "ok")
	s.logger.Info("appointment rescheduled",
		"old_appointment_id", old.ID,
		"new_appointment_id", replacement.ID,
		"doctor_id", old.DoctorID,
	)
	return &replacement, nil
}

// HasConflict probes a candidate window without writing anything.
func (s *Service) HasConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime, endTime string, opts schedule.CheckOptions) (*schedule.ConflictError, error) {
	candidate, err := schedule.NewInterval(date, startTime, endTime)
	if err != nil {
		return nil, err
	}
	return s.findConflict(ctx, doctorID, candidate, opts)
}

func (s *Service) publish(ctx context.Context, eventType string, payload any) {
	if s.outbox == nil {
		return
	}
	if _, err := s.outbox.Insert(ctx, eventType, payload); err != nil {
		s.logger.Error("failed to publish event", "error", err, "type", eventType)
	}
}

func (s *Service) invalidateSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateDate(ctx, doctorID, date)
}

// asConflict unwraps storage-level overlap violations.
func asConflict(err error) (*schedule.ConflictError, bool) {
	var conflict *schedule.ConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
