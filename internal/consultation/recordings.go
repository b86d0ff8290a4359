package consultation

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/events"
)

// StartRecording begins a capture. The session must be in progress and no
// other recording may be active; the check-then-set runs under the session
// lock so concurrent devices cannot both slip through.
func (s *Service) StartRecording(ctx context.Context, sessionID uuid.UUID, recordingType string) (*Recording, error) {
	ctx, span := consultationTracer.Start(ctx, "consultation.start_recording")
	defer span.End()

	unlock := s.locks.acquire(sessionID)
	defer unlock()

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != SessionInProgress {
		return nil, &TransitionError{From: session.Status, Attempted: SessionInProgress}
	}
	if _, err := s.repo.ActiveRecording(ctx, sessionID); err == nil {
		return nil, ErrRecordingActive
	} else if !errors.Is(err, ErrRecordingNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	if recordingType == "" {
		recordingType = "video"
	}
	rec := &Recording{
		ID:               uuid.New(),
		SessionID:        sessionID,
		Type:             recordingType,
		Status:           RecordingActive,
		DoctorAccessible: true,
		StartedAt:        now,
	}
	if err := s.repo.CreateRecording(ctx, rec); err != nil {
		return nil, err
	}

	session.Recording = true
	session.UpdatedAt = now
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.RecordingStarted()
	s.publish(ctx, events.TypeRecordingStarted, events.RecordingStartedV1{
		EventID:     uuid.NewString(),
		SessionID:   sessionID.String(),
		RecordingID: rec.ID.String(),
		StartedAt:   now,
	})
	return rec, nil
}

// StopRecording ends the active capture: the duration and file URL are
// finalized and the recording moves to processing.
func (s *Service) StopRecording(ctx context.Context, sessionID uuid.UUID, url string) (*Recording, error) {
	ctx, span := consultationTracer.Start(ctx, "consultation.stop_recording")
	defer span.End()

	unlock := s.locks.acquire(sessionID)
	defer unlock()

	rec, err := s.repo.ActiveRecording(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rec.Status = RecordingProcessing
	rec.URL = url
	rec.StoppedAt = &now
	rec.DurationSeconds = int(now.Sub(rec.StartedAt).Seconds())
	if err := s.repo.UpdateRecording(ctx, rec); err != nil {
		return nil, err
	}

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Recording = false
	session.UpdatedAt = now
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.RecordingStopped()
	return rec, nil
}

// ListRecordings returns every recording of a session.
func (s *Service) ListRecordings(ctx context.Context, sessionID uuid.UUID) ([]Recording, error) {
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListRecordings(ctx, sessionID)
}
