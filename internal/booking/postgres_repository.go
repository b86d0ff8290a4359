package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
)

// pgxDB is the subset of pgxpool.Pool the repository uses. Tests satisfy it
// with pgxmock.
type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores bookings in Postgres. The appointments table
// carries an exclusion constraint on (doctor_id, time range) so overlapping
// writes from other processes fail at commit rather than double-book.
type PostgresRepository struct {
	db pgxDB
}

// NewPostgresRepository creates a Postgres-backed booking repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("booking: pgx pool is required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db pgxDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// apptInterval computes the appointment's interval for conflict reporting.
// An appointment that cannot form a valid interval never reaches storage, so
// the zero value only appears on programmer error.
func apptInterval(a *schedule.Appointment) schedule.Interval {
	iv, err := a.Interval()
	if err != nil {
		return schedule.Interval{}
	}
	return iv
}

// translateConflict maps an exclusion or uniqueness violation on the
// appointments table to the domain conflict error.
func translateConflict(err error, doctorID uuid.UUID, candidate schedule.Interval) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "23505") {
		return &schedule.ConflictError{
			DoctorID: doctorID.String(),
			Conflict: candidate,
			Source:   "appointment",
		}
	}
	return err
}

func (r *PostgresRepository) CreateAppointment(ctx context.Context, appt *schedule.Appointment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments (
			id, patient_id, doctor_id, starts_at, duration_minutes, status,
			appointment_type, is_virtual, room_number, meeting_link, reason,
			fee_cents, is_paid, cancel_reason, completion_notes,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		appt.ID, appt.PatientID, appt.DoctorID, appt.StartsAt, appt.DurationMinutes,
		appt.Status, appt.Type, appt.Virtual, appt.RoomNumber, appt.MeetingLink,
		appt.Reason, appt.FeeCents, appt.Paid, appt.CancelReason, appt.CompletionNotes,
		appt.CreatedAt, appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: insert appointment: %w", translateConflict(err, appt.DoctorID, apptInterval(appt)))
	}
	return nil
}

const appointmentColumns = `
	id, patient_id, doctor_id, starts_at, duration_minutes, status,
	appointment_type, is_virtual, room_number, meeting_link, reason,
	fee_cents, is_paid, cancel_reason, completion_notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*schedule.Appointment, error) {
	var a schedule.Appointment
	err := row.Scan(
		&a.ID, &a.PatientID, &a.DoctorID, &a.StartsAt, &a.DurationMinutes, &a.Status,
		&a.Type, &a.Virtual, &a.RoomNumber, &a.MeetingLink, &a.Reason,
		&a.FeeCents, &a.Paid, &a.CancelReason, &a.CompletionNotes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.StartsAt = a.StartsAt.UTC()
	return &a, nil
}

func (r *PostgresRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	row := r.db.QueryRow(ctx, `SELECT`+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("booking: get appointment: %w", err)
	}
	return appt, nil
}

func (r *PostgresRepository) UpdateAppointment(ctx context.Context, appt *schedule.Appointment) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments SET
			starts_at = $2, duration_minutes = $3, status = $4, room_number = $5,
			meeting_link = $6, reason = $7, is_paid = $8, cancel_reason = $9,
			completion_notes = $10, updated_at = $11
		WHERE id = $1`,
		appt.ID, appt.StartsAt, appt.DurationMinutes, appt.Status, appt.RoomNumber,
		appt.MeetingLink, appt.Reason, appt.Paid, appt.CancelReason,
		appt.CompletionNotes, appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: update appointment: %w", translateConflict(err, appt.DoctorID, apptInterval(appt)))
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PostgresRepository) ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND starts_at >= $2 AND starts_at < $3
		ORDER BY starts_at`,
		doctorID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("booking: list appointments: %w", err)
	}
	defer rows.Close()

	var appts []schedule.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("booking: scan appointment: %w", err)
		}
		appts = append(appts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: list appointments: %w", err)
	}
	return appts, nil
}

func (r *PostgresRepository) CreateTimeBlock(ctx context.Context, block *schedule.TimeBlock) error {
	recurrence, err := marshalRecurrence(block.Recurrence)
	if err != nil {
		return fmt.Errorf("booking: encode recurrence: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO time_blocks (
			id, doctor_id, block_type, block_date, start_minute, end_minute,
			is_recurring, recurrence, notes, is_active, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		block.ID, block.DoctorID, block.Type, block.Date, block.Start, block.End,
		block.Recurring, recurrence, block.Notes, block.Active,
		block.CreatedAt, block.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: insert time block: %w", err)
	}
	return nil
}

const timeBlockColumns = `
	id, doctor_id, block_type, block_date, start_minute, end_minute,
	is_recurring, recurrence, notes, is_active, created_at, updated_at`

func scanTimeBlock(row pgx.Row) (*schedule.TimeBlock, error) {
	var (
		b          schedule.TimeBlock
		recurrence []byte
	)
	err := row.Scan(
		&b.ID, &b.DoctorID, &b.Type, &b.Date, &b.Start, &b.End,
		&b.Recurring, &recurrence, &b.Notes, &b.Active, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Date = schedule.NormalizeDate(b.Date)
	if len(recurrence) > 0 {
		var p schedule.RecurrencePattern
		if err := json.Unmarshal(recurrence, &p); err != nil {
			return nil, err
		}
		b.Recurrence = &p
	}
	return &b, nil
}

func marshalRecurrence(p *schedule.RecurrencePattern) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func (r *PostgresRepository) GetTimeBlock(ctx context.Context, id uuid.UUID) (*schedule.TimeBlock, error) {
	row := r.db.QueryRow(ctx, `SELECT`+timeBlockColumns+` FROM time_blocks WHERE id = $1`, id)
	block, err := scanTimeBlock(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTimeBlockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("booking: get time block: %w", err)
	}
	return block, nil
}

func (r *PostgresRepository) UpdateTimeBlock(ctx context.Context, block *schedule.TimeBlock) error {
	recurrence, err := marshalRecurrence(block.Recurrence)
	if err != nil {
		return fmt.Errorf("booking: encode recurrence: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE time_blocks SET
			block_type = $2, block_date = $3, start_minute = $4, end_minute = $5,
			is_recurring = $6, recurrence = $7, notes = $8, is_active = $9,
			updated_at = $10
		WHERE id = $1`,
		block.ID, block.Type, block.Date, block.Start, block.End,
		block.Recurring, recurrence, block.Notes, block.Active, block.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: update time block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTimeBlockNotFound
	}
	return nil
}

func (r *PostgresRepository) ListDoctorTimeBlocks(ctx context.Context, doctorID uuid.UUID) ([]schedule.TimeBlock, error) {
	rows, err := r.db.Query(ctx, `
		SELECT`+timeBlockColumns+`
		FROM time_blocks
		WHERE doctor_id = $1
		ORDER BY is_active DESC, block_date, start_minute`,
		doctorID,
	)
	if err != nil {
		return nil, fmt.Errorf("booking: list time blocks: %w", err)
	}
	defer rows.Close()

	var blocks []schedule.TimeBlock
	for rows.Next() {
		b, err := scanTimeBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("booking: scan time block: %w", err)
		}
		blocks = append(blocks, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: list time blocks: %w", err)
	}
	return blocks, nil
}

func (r *PostgresRepository) CreateRequest(ctx context.Context, req *schedule.AppointmentRequest) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointment_requests (
			id, patient_id, doctor_id, requested_start, duration_minutes,
			appointment_type, symptoms, medical_history, status,
			rejection_reason, appointment_id, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		req.ID, req.PatientID, req.DoctorID, req.RequestedStart, req.DurationMinutes,
		req.Type, req.Symptoms, req.MedicalHistory, req.Status,
		req.RejectionReason, req.AppointmentID, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: insert request: %w", err)
	}
	return nil
}

const requestColumns = `
	id, patient_id, doctor_id, requested_start, duration_minutes,
	appointment_type, symptoms, medical_history, status,
	rejection_reason, appointment_id, created_at, updated_at`

func scanRequest(row pgx.Row) (*schedule.AppointmentRequest, error) {
	var ar schedule.AppointmentRequest
	err := row.Scan(
		&ar.ID, &ar.PatientID, &ar.DoctorID, &ar.RequestedStart, &ar.DurationMinutes,
		&ar.Type, &ar.Symptoms, &ar.MedicalHistory, &ar.Status,
		&ar.RejectionReason, &ar.AppointmentID, &ar.CreatedAt, &ar.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ar.RequestedStart = ar.RequestedStart.UTC()
	return &ar, nil
}

func (r *PostgresRepository) GetRequest(ctx context.Context, id uuid.UUID) (*schedule.AppointmentRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT`+requestColumns+` FROM appointment_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("booking: get request: %w", err)
	}
	return req, nil
}

func (r *PostgresRepository) UpdateRequest(ctx context.Context, req *schedule.AppointmentRequest) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointment_requests SET
			status = $2, rejection_reason = $3, appointment_id = $4, updated_at = $5
		WHERE id = $1`,
		req.ID, req.Status, req.RejectionReason, req.AppointmentID, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: update request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// ApproveRequest closes the request and books the appointment in one
// transaction. A conflicting concurrent booking aborts both writes.
func (r *PostgresRepository) ApproveRequest(ctx context.Context, req *schedule.AppointmentRequest, appt *schedule.Appointment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("booking: begin approve: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE appointment_requests SET
			status = $2, appointment_id = $3, updated_at = $4
		WHERE id = $1 AND status IN ('pending', 'under_review')`,
		req.ID, req.Status, req.AppointmentID, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: approve request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestClosed
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (
			id, patient_id, doctor_id, starts_at, duration_minutes, status,
			appointment_type, is_virtual, room_number, meeting_link, reason,
			fee_cents, is_paid, cancel_reason, completion_notes,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		appt.ID, appt.PatientID, appt.DoctorID, appt.StartsAt, appt.DurationMinutes,
		appt.Status, appt.Type, appt.Virtual, appt.RoomNumber, appt.MeetingLink,
		appt.Reason, appt.FeeCents, appt.Paid, appt.CancelReason, appt.CompletionNotes,
		appt.CreatedAt, appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: insert approved appointment: %w", translateConflict(err, appt.DoctorID, apptInterval(appt)))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("booking: commit approve: %w", translateConflict(err, appt.DoctorID, apptInterval(appt)))
	}
	return nil
}
