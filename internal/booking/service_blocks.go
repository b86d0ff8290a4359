package booking

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/events"
	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
)

// maxBlockConflictScan bounds how many recurrence occurrences are checked
// when a recurring block is created or edited.
const maxBlockConflictScan = 366

// CreateTimeBlock reserves doctor time. Recurring blocks are checked
// occurrence by occurrence against existing appointments and blocks before
// anything is written.
func (s *Service) CreateTimeBlock(ctx context.Context, req *CreateTimeBlockRequest) (*schedule.TimeBlock, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.create_time_block")
	defer span.End()

	block, err := req.toBlock()
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(block.DoctorID)
	defer unlock()

	if conflict, err := s.checkBlockConflicts(ctx, block, uuid.Nil); err != nil {
		return nil, err
	} else if conflict != nil {
		s.metrics.ObserveConflict(conflict.Source)
		return nil, conflict
	}

	now := s.clock.Now()
	block.ID = uuid.New()
	block.Active = true
	block.CreatedAt = now
	block.UpdatedAt = now
	if err := s.repo.CreateTimeBlock(ctx, block); err != nil {
		if conflict, ok := asConflict(err); ok {
			return nil, conflict
		}
		return nil, err
	}

	s.invalidateDoctorSlots(ctx, block.DoctorID)
	s.publish(ctx, events.TypeTimeBlockCreated, events.TimeBlockCreatedV1{
		EventID:   uuid.NewString(),
		BlockID:   block.ID.String(),
		DoctorID:  block.DoctorID.String(),
		BlockType: string(block.Type),
		Date:      block.Date,
		Recurring: block.Recurring,
		CreatedAt: now,
	})
	s.logger.Info("time block created",
		"block_id", block.ID,
		"doctor_id", block.DoctorID,
		"recurring", block.Recurring,
	)
	return block, nil
}

// UpdateTimeBlock edits a block, re-running the conflict check with the
// block's own id excluded so it does not collide with itself.
func (s *Service) UpdateTimeBlock(ctx context.Context, req *UpdateTimeBlockRequest) (*schedule.TimeBlock, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.update_time_block")
	defer span.End()

	block, err := s.repo.GetTimeBlock(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(block.DoctorID)
	defer unlock()

	block, err = s.repo.GetTimeBlock(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := req.apply(block); err != nil {
		return nil, err
	}
	if err := block.Validate(); err != nil {
		return nil, err
	}

	if conflict, err := s.checkBlockConflicts(ctx, block, block.ID); err != nil {
		return nil, err
	} else if conflict != nil {
		s.metrics.ObserveConflict(conflict.Source)
		return nil, conflict
	}

	block.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateTimeBlock(ctx, block); err != nil {
		if conflict, ok := asConflict(err); ok {
			return nil, conflict
		}
		return nil, err
	}

	s.invalidateDoctorSlots(ctx, block.DoctorID)
	return block, nil
}

// DeleteTimeBlock soft-deletes a block. Deactivated blocks stop blocking
// immediately but stay queryable for audit.
func (s *Service) DeleteTimeBlock(ctx context.Context, id uuid.UUID) error {
	block, err := s.repo.GetTimeBlock(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.acquire(block.DoctorID)
	defer unlock()

	block, err = s.repo.GetTimeBlock(ctx, id)
	if err != nil {
		return err
	}
	if !block.Active {
		return nil
	}
	block.Active = false
	block.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateTimeBlock(ctx, block); err != nil {
		return err
	}
	s.invalidateDoctorSlots(ctx, block.DoctorID)
	return nil
}

// ListTimeBlocks returns the doctor's blocks, active ones first per the
// repository's ordering.
func (s *Service) ListTimeBlocks(ctx context.Context, doctorID uuid.UUID) ([]schedule.TimeBlock, error) {
	return s.repo.ListDoctorTimeBlocks(ctx, doctorID)
}

// checkBlockConflicts expands the candidate block over its horizon and runs
// each occurrence through the conflict checker. The first collision wins.
func (s *Service) checkBlockConflicts(ctx context.Context, block *schedule.TimeBlock, excludeID uuid.UUID) (*schedule.ConflictError, error) {
	anchor := block.Interval()

	var occurrences iter.Seq[schedule.Interval]
	if block.Recurring && block.Recurrence != nil {
		occurrences = block.Recurrence.Occurrences(anchor)
	} else {
		occurrences = func(yield func(schedule.Interval) bool) {
			yield(anchor)
		}
	}

	blocks, err := s.repo.ListDoctorTimeBlocks(ctx, block.DoctorID)
	if err != nil {
		return nil, err
	}

	scanned := 0
	for occ := range occurrences {
		if scanned++; scanned > maxBlockConflictScan {
			break
		}
		appts, err := s.repo.ListDoctorAppointments(ctx, block.DoctorID, occ.Date, occ.Date.Add(24*time.Hour))
		if err != nil {
			return nil, err
		}
		conflict := schedule.FindConflict(block.DoctorID, occ, appts, blocks, schedule.CheckOptions{ExcludeBlockID: excludeID})
		if conflict != nil {
			return conflict, nil
		}
	}
	return nil, nil
}

// CreateIntakeRequest files a patient's ask for an appointment. No calendar
// time is held until a reviewer approves it.
func (s *Service) CreateIntakeRequest(ctx context.Context, req *CreateIntakeRequest) (*schedule.AppointmentRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	ar := &schedule.AppointmentRequest{
		ID:              uuid.New(),
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		RequestedStart:  req.RequestedStart.UTC(),
		DurationMinutes: req.DurationMinutes,
		Type:            req.Type,
		Symptoms:        req.Symptoms,
		MedicalHistory:  req.MedicalHistory,
		Status:          schedule.RequestPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateRequest(ctx, ar); err != nil {
		return nil, err
	}
	s.logger.Info("intake request created", "request_id", ar.ID, "doctor_id", ar.DoctorID)
	return ar, nil
}

// ReviewIntakeRequest moves a pending request to under_review.
func (s *Service) ReviewIntakeRequest(ctx context.Context, id uuid.UUID) (*schedule.AppointmentRequest, error) {
	ar, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if ar.Status != schedule.RequestPending {
		return nil, ErrRequestClosed
	}
	ar.Status = schedule.RequestUnderReview
	ar.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateRequest(ctx, ar); err != nil {
		return nil, err
	}
	return ar, nil
}

// ApproveIntakeRequest approves an open request and books the resulting
// appointment atomically. A zero startsAt books the time the patient asked
// for; the reviewer may override it. On conflict the request stays open so
// the reviewer can pick another slot.
func (s *Service) ApproveIntakeRequest(ctx context.Context, id uuid.UUID, reviewerID uuid.UUID, startsAt time.Time) (*schedule.Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.approve_intake_request")
	defer span.End()

	ar, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ar.Status.Open() {
		return nil, ErrRequestClosed
	}

	unlock := s.locks.acquire(ar.DoctorID)
	defer unlock()

	ar, err = s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ar.Status.Open() {
		return nil, ErrRequestClosed
	}

	if startsAt.IsZero() {
		startsAt = ar.RequestedStart
	}
	candidate, err := schedule.IntervalAt(startsAt, ar.DurationMinutes)
	if err != nil {
		return nil, err
	}

	if conflict, err := s.findConflict(ctx, ar.DoctorID, candidate, schedule.CheckOptions{}); err != nil {
		return nil, err
	} else if conflict != nil {
		s.metrics.ObserveConflict(conflict.Source)
		return nil, conflict
	}

	now := s.clock.Now()
	appt := &schedule.Appointment{
		ID:              uuid.New(),
		PatientID:       ar.PatientID,
		DoctorID:        ar.DoctorID,
		StartsAt:        startsAt.UTC(),
		DurationMinutes: ar.DurationMinutes,
		Status:          schedule.AppointmentPending,
		Type:            ar.Type,
		Reason:          ar.Symptoms,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	ar.Status = schedule.RequestApproved
	ar.AppointmentID = &appt.ID
	ar.UpdatedAt = now

	if err := s.repo.ApproveRequest(ctx, ar, appt); err != nil {
		if conflict, ok := asConflict(err); ok {
			return nil, conflict
		}
		return nil, err
	}

	s.invalidateSlots(ctx, ar.DoctorID, candidate.Date)
	s.metrics.ObserveAppointment("approve", "ok")
	s.publish(ctx, events.TypeRequestApproved, events.RequestReviewedV1{
		EventID:       uuid.NewString(),
		RequestID:     ar.ID.String(),
		DoctorID:      ar.DoctorID.String(),
		PatientID:     ar.PatientID.String(),
		Outcome:       string(schedule.RequestApproved),
		AppointmentID: appt.ID.String(),
		OccurredAt:    now,
	})
	s.logger.Info("intake request approved",
		"request_id", ar.ID,
		"reviewer_id", reviewerID,
		"appointment_id", appt.ID,
	)
	return appt, nil
}

// RejectIntakeRequest closes a request without booking.
func (s *Service) RejectIntakeRequest(ctx context.Context, id uuid.UUID, reviewerID uuid.UUID, reason string) (*schedule.AppointmentRequest, error) {
	ar, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ar.Status.Open() {
		return nil, ErrRequestClosed
	}
	now := s.clock.Now()
	ar.Status = schedule.RequestRejected
	ar.RejectionReason = reason
	ar.UpdatedAt = now
	if err := s.repo.UpdateRequest(ctx, ar); err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeRequestRejected, events.RequestReviewedV1{
		EventID:    uuid.NewString(),
		RequestID:  ar.ID.String(),
		DoctorID:   ar.DoctorID.String(),
		PatientID:  ar.PatientID.String(),
		Outcome:    string(schedule.RequestRejected),
		Reason:     reason,
		OccurredAt: now,
	})
	s.logger.Info("intake request rejected", "request_id", ar.ID, "reviewer_id", reviewerID)
	return ar, nil
}

func (s *Service) invalidateDoctorSlots(ctx context.Context, doctorID uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateDoctor(ctx, doctorID)
}
