package consultation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores sessions and their sub-entities in Postgres.
type PostgresRepository struct {
	db pgxDB
}

// NewPostgresRepository creates a Postgres-backed consultation repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("consultation: pgx pool is required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db pgxDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `
	id, appointment_id, doctor_id, patient_id, room_id, status,
	scheduled_start, actual_start, actual_end, actual_duration_minutes,
	is_recording, chief_complaint, observations, diagnosis, treatment_plan,
	follow_up_instructions, next_follow_up_date, rating, feedback,
	cancel_reason, created_at, updated_at`

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(
		&s.ID, &s.AppointmentID, &s.DoctorID, &s.PatientID, &s.RoomID, &s.Status,
		&s.ScheduledStart, &s.ActualStart, &s.ActualEnd, &s.ActualDurationMinutes,
		&s.Recording, &s.ChiefComplaint, &s.Observations, &s.Diagnosis, &s.TreatmentPlan,
		&s.FollowUpInstructions, &s.NextFollowUpDate, &s.Rating, &s.Feedback,
		&s.CancelReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, session *Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO consultation_sessions (
			id, appointment_id, doctor_id, patient_id, room_id, status,
			scheduled_start, is_recording, chief_complaint, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		session.ID, session.AppointmentID, session.DoctorID, session.PatientID,
		session.RoomID, session.Status, session.ScheduledStart, session.Recording,
		session.ChiefComplaint, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("consultation: insert session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := r.db.QueryRow(ctx, `SELECT`+sessionColumns+` FROM consultation_sessions WHERE id = $1`, id)
	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consultation: get session: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) GetSessionByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Session, error) {
	row := r.db.QueryRow(ctx, `SELECT`+sessionColumns+` FROM consultation_sessions WHERE appointment_id = $1`, appointmentID)
	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consultation: get session by appointment: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) UpdateSession(ctx context.Context, session *Session) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE consultation_sessions SET
			status = $2, actual_start = $3, actual_end = $4,
			actual_duration_minutes = $5, is_recording = $6, observations = $7,
			diagnosis = $8, treatment_plan = $9, follow_up_instructions = $10,
			next_follow_up_date = $11, rating = $12, feedback = $13,
			cancel_reason = $14, updated_at = $15
		WHERE id = $1`,
		session.ID, session.Status, session.ActualStart, session.ActualEnd,
		session.ActualDurationMinutes, session.Recording, session.Observations,
		session.Diagnosis, session.TreatmentPlan, session.FollowUpInstructions,
		session.NextFollowUpDate, session.Rating, session.Feedback,
		session.CancelReason, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("consultation: update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

const participantColumns = `
	id, session_id, user_id, name, role, permissions, invitation_token,
	token_expires_at, token_consumed, joined_at, left_at, is_online,
	is_removed, removal_reason`

func scanParticipant(row pgx.Row) (*Participant, error) {
	var p Participant
	err := row.Scan(
		&p.ID, &p.SessionID, &p.UserID, &p.Name, &p.Role, &p.Permissions,
		&p.InvitationToken, &p.TokenExpiresAt, &p.TokenConsumed, &p.JoinedAt,
		&p.LeftAt, &p.Online, &p.Removed, &p.RemovalReason,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) CreateParticipant(ctx context.Context, p *Participant) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO consultation_participants (
			id, session_id, user_id, name, role, permissions, invitation_token,
			token_expires_at, token_consumed, is_online, is_removed
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.SessionID, p.UserID, p.Name, p.Role, p.Permissions,
		p.InvitationToken, p.TokenExpiresAt, p.TokenConsumed, p.Online, p.Removed,
	)
	if err != nil {
		return fmt.Errorf("consultation: insert participant: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetParticipant(ctx context.Context, id uuid.UUID) (*Participant, error) {
	row := r.db.QueryRow(ctx, `SELECT`+participantColumns+` FROM consultation_participants WHERE id = $1`, id)
	p, err := scanParticipant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consultation: get participant: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) GetParticipantByToken(ctx context.Context, token string) (*Participant, error) {
	row := r.db.QueryRow(ctx, `SELECT`+participantColumns+` FROM consultation_participants WHERE invitation_token = $1`, token)
	p, err := scanParticipant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consultation: get participant by token: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) UpdateParticipant(ctx context.Context, p *Participant) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE consultation_participants SET
			permissions = $2, token_consumed = $3, joined_at = $4, left_at = $5,
			is_online = $6, is_removed = $7, removal_reason = $8
		WHERE id = $1`,
		p.ID, p.Permissions, p.TokenConsumed, p.JoinedAt, p.LeftAt,
		p.Online, p.Removed, p.RemovalReason,
	)
	if err != nil {
		return fmt.Errorf("consultation: update participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

func (r *PostgresRepository) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]Participant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT`+participantColumns+`
		FROM consultation_participants
		WHERE session_id = $1
		ORDER BY name`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("consultation: list participants: %w", err)
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("consultation: scan participant: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("consultation: list participants: %w", err)
	}
	return out, nil
}

const recordingColumns = `
	id, session_id, url, recording_type, status, duration_seconds, transcript,
	patient_accessible, doctor_accessible, started_at, stopped_at`

func scanRecording(row pgx.Row) (*Recording, error) {
	var rec Recording
	err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.URL, &rec.Type, &rec.Status,
		&rec.DurationSeconds, &rec.Transcript, &rec.PatientAccessible,
		&rec.DoctorAccessible, &rec.StartedAt, &rec.StoppedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresRepository) CreateRecording(ctx context.Context, rec *Recording) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO consultation_recordings (
			id, session_id, url, recording_type, status, duration_seconds,
			transcript, patient_accessible, doctor_accessible, started_at, stopped_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		rec.ID, rec.SessionID, rec.URL, rec.Type, rec.Status, rec.DurationSeconds,
		rec.Transcript, rec.PatientAccessible, rec.DoctorAccessible,
		rec.StartedAt, rec.StoppedAt,
	)
	if err != nil {
		return fmt.Errorf("consultation: insert recording: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateRecording(ctx context.Context, rec *Recording) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE consultation_recordings SET
			url = $2, status = $3, duration_seconds = $4, transcript = $5,
			patient_accessible = $6, doctor_accessible = $7, stopped_at = $8
		WHERE id = $1`,
		rec.ID, rec.URL, rec.Status, rec.DurationSeconds, rec.Transcript,
		rec.PatientAccessible, rec.DoctorAccessible, rec.StoppedAt,
	)
	if err != nil {
		return fmt.Errorf("consultation: update recording: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordingNotFound
	}
	return nil
}

func (r *PostgresRepository) ActiveRecording(ctx context.Context, sessionID uuid.UUID) (*Recording, error) {
	row := r.db.QueryRow(ctx, `
		SELECT`+recordingColumns+`
		FROM consultation_recordings
		WHERE session_id = $1 AND status = 'recording'`,
		sessionID,
	)
	rec, err := scanRecording(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consultation: get active recording: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) ListRecordings(ctx context.Context, sessionID uuid.UUID) ([]Recording, error) {
	rows, err := r.db.Query(ctx, `
		SELECT`+recordingColumns+`
		FROM consultation_recordings
		WHERE session_id = $1
		ORDER BY started_at`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("consultation: list recordings: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("consultation: scan recording: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("consultation: list recordings: %w", err)
	}
	return out, nil
}

const noteColumns = `
	id, session_id, author_id, content, note_type, is_private,
	is_shared_with_patient, created_at, updated_at`

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(
		&n.ID, &n.SessionID, &n.AuthorID, &n.Content, &n.Type, &n.Private,
		&n.SharedWithPatient, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *PostgresRepository) CreateNote(ctx context.Context, note *Note) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO consultation_notes (
			id, session_id, author_id, content, note_type, is_private,
			is_shared_with_patient, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		note.ID, note.SessionID, note.AuthorID, note.Content, note.Type,
		note.Private, note.SharedWithPatient, note.CreatedAt, note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("consultation: insert note: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetNote(ctx context.Context, id uuid.UUID) (*Note, error) {
	row := r.db.QueryRow(ctx, `SELECT`+noteColumns+` FROM consultation_notes WHERE id = $1`, id)
	note, err := scanNote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consultation: get note: %w", err)
	}
	return note, nil
}

func (r *PostgresRepository) UpdateNote(ctx context.Context, note *Note) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE consultation_notes SET
			content = $2, is_private = $3, is_shared_with_patient = $4, updated_at = $5
		WHERE id = $1`,
		note.ID, note.Content, note.Private, note.SharedWithPatient, note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("consultation: update note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteNote(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM consultation_notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("consultation: delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func (r *PostgresRepository) ListNotes(ctx context.Context, sessionID uuid.UUID) ([]Note, error) {
	rows, err := r.db.Query(ctx, `
		SELECT`+noteColumns+`
		FROM consultation_notes
		WHERE session_id = $1
		ORDER BY created_at`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("consultation: list notes: %w", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("consultation: scan note: %w", err)
		}
		out = append(out, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("consultation: list notes: %w", err)
	}
	return out, nil
}
