package consultation

import (
	"context"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/events"
)

// enroll creates a participant row with a fresh invitation token.
func (s *Service) enroll(ctx context.Context, sessionID, userID uuid.UUID, name string, role ParticipantRole, perms *Permission) (*Participant, error) {
	token, err := newInvitationToken()
	if err != nil {
		return nil, err
	}
	permissions := DefaultPermissions(role)
	if perms != nil {
		permissions = *perms
	}
	p := &Participant{
		ID:              uuid.New(),
		SessionID:       sessionID,
		UserID:          userID,
		Name:            name,
		Role:            role,
		Permissions:     permissions,
		InvitationToken: token,
		TokenExpiresAt:  s.clock.Now().Add(s.tokenTTL),
	}
	if err := s.repo.CreateParticipant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddParticipant invites someone into a non-terminal session and issues a
// single-use invitation token with a TTL.
func (s *Service) AddParticipant(ctx context.Context, req *AddParticipantRequest) (*Participant, error) {
	ctx, span := consultationTracer.Start(ctx, "consultation.add_participant")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(req.SessionID)
	defer unlock()

	session, err := s.repo.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, &TransitionError{From: session.Status, Attempted: session.Status}
	}

	p, err := s.enroll(ctx, req.SessionID, req.UserID, req.Name, req.Role, req.Permissions)
	if err != nil {
		return nil, err
	}
	s.logger.Info("participant invited",
		"session_id", req.SessionID,
		"participant_id", p.ID,
		"role", p.Role,
	)
	return p, nil
}

// JoinWithToken admits a participant by invitation token. Expiry is enforced
// lazily here; the token is invalidated on first use. Removed participants
// never rejoin.
func (s *Service) JoinWithToken(ctx context.Context, token string) (*Participant, error) {
	ctx, span := consultationTracer.Start(ctx, "consultation.join_with_token")
	defer span.End()

	p, err := s.repo.GetParticipantByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(p.SessionID)
	defer unlock()

	// Re-read under the lock; two devices may race the same token.
	p, err = s.repo.GetParticipantByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if p.Removed {
		return nil, ErrParticipantRemoved
	}

	session, err := s.repo.GetSession(ctx, p.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, &TransitionError{From: session.Status, Attempted: session.Status}
	}

	now := s.clock.Now()
	if p.TokenConsumed {
		// Doctor and patient reconnect token-free and idempotently; for
		// everyone else a used token is dead.
		if !p.Role.member() {
			return nil, ErrTokenConsumed
		}
	} else {
		if now.After(p.TokenExpiresAt) {
			return nil, ErrTokenExpired
		}
		p.TokenConsumed = true
	}

	p.Online = true
	if p.JoinedAt == nil {
		p.JoinedAt = &now
	}
	if err := s.repo.UpdateParticipant(ctx, p); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeParticipantJoined, events.ParticipantJoinedV1{
		EventID:       uuid.NewString(),
		SessionID:     p.SessionID.String(),
		ParticipantID: p.ID.String(),
		Role:          string(p.Role),
		JoinedAt:      now,
	})
	return p, nil
}

// Reconnect toggles a doctor or patient back online without a token. The
// operation is idempotent.
func (s *Service) Reconnect(ctx context.Context, sessionID, userID uuid.UUID) (*Participant, error) {
	unlock := s.locks.acquire(sessionID)
	defer unlock()

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, &TransitionError{From: session.Status, Attempted: session.Status}
	}

	p, err := s.findMember(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if p.Removed {
		return nil, ErrParticipantRemoved
	}
	if p.Online {
		return p, nil
	}
	now := s.clock.Now()
	p.Online = true
	if p.JoinedAt == nil {
		p.JoinedAt = &now
	}
	if err := s.repo.UpdateParticipant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// findMember resolves a doctor or patient participant by user id.
func (s *Service) findMember(ctx context.Context, sessionID, userID uuid.UUID) (*Participant, error) {
	participants, err := s.repo.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range participants {
		p := &participants[i]
		if p.UserID == userID && p.Role.member() {
			return p, nil
		}
	}
	return nil, ErrParticipantNotFound
}

// RemoveParticipant removes a participant from the session. Terminal per
// participant; the same token never readmits them.
func (s *Service) RemoveParticipant(ctx context.Context, sessionID, participantID uuid.UUID, reason string) (*Participant, error) {
	ctx, span := consultationTracer.Start(ctx, "consultation.remove_participant")
	defer span.End()

	unlock := s.locks.acquire(sessionID)
	defer unlock()

	if _, err := s.mutableSession(ctx, sessionID); err != nil {
		return nil, err
	}

	p, err := s.repo.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if p.SessionID != sessionID {
		return nil, ErrParticipantNotFound
	}
	if p.Removed {
		return p, nil
	}
	now := s.clock.Now()
	p.Removed = true
	p.RemovalReason = reason
	p.Online = false
	p.LeftAt = &now
	if err := s.repo.UpdateParticipant(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("participant removed",
		"session_id", sessionID,
		"participant_id", participantID,
		"reason", reason,
	)
	return p, nil
}

// Leave marks a participant offline without removing them.
func (s *Service) Leave(ctx context.Context, sessionID, participantID uuid.UUID) (*Participant, error) {
	unlock := s.locks.acquire(sessionID)
	defer unlock()

	if _, err := s.mutableSession(ctx, sessionID); err != nil {
		return nil, err
	}

	p, err := s.repo.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if p.SessionID != sessionID {
		return nil, ErrParticipantNotFound
	}
	if !p.Online {
		return p, nil
	}
	now := s.clock.Now()
	p.Online = false
	p.LeftAt = &now
	if err := s.repo.UpdateParticipant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListParticipants returns the session roster.
func (s *Service) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]Participant, error) {
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListParticipants(ctx, sessionID)
}
