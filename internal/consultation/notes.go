package consultation

import (
	"context"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
)

// AddNote attaches a clinical note to a non-terminal session.
func (s *Service) AddNote(ctx context.Context, req *AddNoteRequest) (*Note, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.mutableSession(ctx, req.SessionID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	note := &Note{
		ID:                uuid.New(),
		SessionID:         req.SessionID,
		AuthorID:          req.AuthorID,
		Content:           req.Content,
		Type:              req.Type,
		Private:           req.Private,
		SharedWithPatient: req.SharedWithPatient,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.CreateNote(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// UpdateNote edits a note. Only the author may.
func (s *Service) UpdateNote(ctx context.Context, req *UpdateNoteRequest) (*Note, error) {
	note, err := s.repo.GetNote(ctx, req.NoteID)
	if err != nil {
		return nil, err
	}
	if _, err := s.mutableSession(ctx, note.SessionID); err != nil {
		return nil, err
	}
	if note.AuthorID != req.AuthorID {
		return nil, ErrNotAuthor
	}
	if req.Content != nil {
		if *req.Content == "" {
			return nil, &schedule.ValidationError{Field: "content", Reason: "required"}
		}
		note.Content = *req.Content
	}
	if req.Private != nil {
		note.Private = *req.Private
	}
	if req.SharedWithPatient != nil {
		note.SharedWithPatient = *req.SharedWithPatient
	}
	if note.Private && note.SharedWithPatient {
		return nil, &schedule.ValidationError{Field: "isSharedWithPatient", Reason: "private notes cannot be shared"}
	}
	note.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateNote(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// DeleteNote removes a note. Only the author may.
func (s *Service) DeleteNote(ctx context.Context, noteID, authorID uuid.UUID) error {
	note, err := s.repo.GetNote(ctx, noteID)
	if err != nil {
		return err
	}
	if _, err := s.mutableSession(ctx, note.SessionID); err != nil {
		return err
	}
	if note.AuthorID != authorID {
		return ErrNotAuthor
	}
	return s.repo.DeleteNote(ctx, noteID)
}

// ListNotes returns the session's notes for a doctor-side viewer.
func (s *Service) ListNotes(ctx context.Context, sessionID uuid.UUID) ([]Note, error) {
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListNotes(ctx, sessionID)
}

// ListPatientNotes returns the patient-facing projection: private notes are
// never included, regardless of who asks.
func (s *Service) ListPatientNotes(ctx context.Context, sessionID uuid.UUID) ([]Note, error) {
	notes, err := s.ListNotes(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	visible := make([]Note, 0, len(notes))
	for _, note := range notes {
		if note.Private {
			continue
		}
		if note.SharedWithPatient {
			visible = append(visible, note)
		}
	}
	return visible, nil
}
