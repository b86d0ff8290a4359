package consultation

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Repository defines the interface for consultation storage. Implementations
// must be safe for concurrent use.
type Repository interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	GetSessionByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error

	CreateParticipant(ctx context.Context, p *Participant) error
	GetParticipant(ctx context.Context, id uuid.UUID) (*Participant, error)
	GetParticipantByToken(ctx context.Context, token string) (*Participant, error)
	UpdateParticipant(ctx context.Context, p *Participant) error
	ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]Participant, error)

	CreateRecording(ctx context.Context, rec *Recording) error
	UpdateRecording(ctx context.Context, rec *Recording) error
	ActiveRecording(ctx context.Context, sessionID uuid.UUID) (*Recording, error)
	ListRecordings(ctx context.Context, sessionID uuid.UUID) ([]Recording, error)

	CreateNote(ctx context.Context, note *Note) error
	GetNote(ctx context.Context, id uuid.UUID) (*Note, error)
	UpdateNote(ctx context.Context, note *Note) error
	DeleteNote(ctx context.Context, id uuid.UUID) error
	ListNotes(ctx context.Context, sessionID uuid.UUID) ([]Note, error)
}

// InMemoryRepository is a map-backed Repository for tests and local
// development.
type InMemoryRepository struct {
	mu           sync.RWMutex
	sessions     map[uuid.UUID]*Session
	participants map[uuid.UUID]*Participant
	recordings   map[uuid.UUID]*Recording
	notes        map[uuid.UUID]*Note
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sessions:     make(map[uuid.UUID]*Session),
		participants: make(map[uuid.UUID]*Participant),
		recordings:   make(map[uuid.UUID]*Recording),
		notes:        make(map[uuid.UUID]*Note),
	}
}

func (r *InMemoryRepository) CreateSession(_ context.Context, session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *InMemoryRepository) GetSession(_ context.Context, id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	clone := *session
	return &clone, nil
}

func (r *InMemoryRepository) GetSessionByAppointment(_ context.Context, appointmentID uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, session := range r.sessions {
		if session.AppointmentID == appointmentID {
			clone := *session
			return &clone, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (r *InMemoryRepository) UpdateSession(_ context.Context, session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return ErrSessionNotFound
	}
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *InMemoryRepository) CreateParticipant(_ context.Context, p *Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *p
	r.participants[p.ID] = &clone
	return nil
}

func (r *InMemoryRepository) GetParticipant(_ context.Context, id uuid.UUID) (*Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[id]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *InMemoryRepository) GetParticipantByToken(_ context.Context, token string) (*Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.participants {
		if p.InvitationToken == token {
			clone := *p
			return &clone, nil
		}
	}
	return nil, ErrParticipantNotFound
}

func (r *InMemoryRepository) UpdateParticipant(_ context.Context, p *Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[p.ID]; !ok {
		return ErrParticipantNotFound
	}
	clone := *p
	r.participants[p.ID] = &clone
	return nil
}

func (r *InMemoryRepository) ListParticipants(_ context.Context, sessionID uuid.UUID) ([]Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Participant
	for _, p := range r.participants {
		if p.SessionID == sessionID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) CreateRecording(_ context.Context, rec *Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *rec
	r.recordings[rec.ID] = &clone
	return nil
}

func (r *InMemoryRepository) UpdateRecording(_ context.Context, rec *Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recordings[rec.ID]; !ok {
		return ErrRecordingNotFound
	}
	clone := *rec
	r.recordings[rec.ID] = &clone
	return nil
}

func (r *InMemoryRepository) ActiveRecording(_ context.Context, sessionID uuid.UUID) (*Recording, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.recordings {
		if rec.SessionID == sessionID && rec.Status == RecordingActive {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, ErrRecordingNotFound
}

func (r *InMemoryRepository) ListRecordings(_ context.Context, sessionID uuid.UUID) ([]Recording, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Recording
	for _, rec := range r.recordings {
		if rec.SessionID == sessionID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (r *InMemoryRepository) CreateNote(_ context.Context, note *Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *note
	r.notes[note.ID] = &clone
	return nil
}

func (r *InMemoryRepository) GetNote(_ context.Context, id uuid.UUID) (*Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	note, ok := r.notes[id]
	if !ok {
		return nil, ErrNoteNotFound
	}
	clone := *note
	return &clone, nil
}

func (r *InMemoryRepository) UpdateNote(_ context.Context, note *Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notes[note.ID]; !ok {
		return ErrNoteNotFound
	}
	clone := *note
	r.notes[note.ID] = &clone
	return nil
}

func (r *InMemoryRepository) DeleteNote(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notes[id]; !ok {
		return ErrNoteNotFound
	}
	delete(r.notes, id)
	return nil
}

func (r *InMemoryRepository) ListNotes(_ context.Context, sessionID uuid.UUID) ([]Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Note
	for _, note := range r.notes {
		if note.SessionID == sessionID {
			out = append(out, *note)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
