package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, newPostgresRepositoryWithDB(mock)
}

// anyArgs builds n pgxmock.AnyArg() placeholders; pgxmock matches argument
// counts strictly, so expectations that don't care about values still need one
// placeholder per argument.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func mockAppointment() *schedule.Appointment {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	return &schedule.Appointment{
		ID:              uuid.New(),
		PatientID:       uuid.New(),
		DoctorID:        uuid.New(),
		StartsAt:        now.Add(2 * time.Hour),
		DurationMinutes: 30,
		Status:          schedule.AppointmentPending,
		Type:            schedule.TypeGeneral,
		Reason:          "checkup",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestPostgresCreateAppointment(t *testing.T) {
	mock, repo := newMockRepo(t)
	appt := mockAppointment()

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(
			appt.ID, appt.PatientID, appt.DoctorID, appt.StartsAt, appt.DurationMinutes,
			appt.Status, appt.Type, appt.Virtual, appt.RoomNumber, appt.MeetingLink,
			appt.Reason, appt.FeeCents, appt.Paid, appt.CancelReason, appt.CompletionNotes,
			appt.CreatedAt, appt.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.CreateAppointment(context.Background(), appt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateAppointmentTranslatesExclusionViolation(t *testing.T) {
	mock, repo := newMockRepo(t)
	appt := mockAppointment()

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(anyArgs(17)...).
		WillReturnError(&pgconn.PgError{Code: "23P01", ConstraintName: "appointments_no_overlap"})

	err := repo.CreateAppointment(context.Background(), appt)
	var conflict *schedule.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, appt.DoctorID.String(), conflict.DoctorID)
	assert.Equal(t, "appointment", conflict.Source)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetAppointmentNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM appointments WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.GetAppointment(context.Background(), id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateAppointmentNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)
	appt := mockAppointment()

	mock.ExpectExec("UPDATE appointments SET").
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateAppointment(context.Background(), appt)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApproveRequestCommitsBothWrites(t *testing.T) {
	mock, repo := newMockRepo(t)
	appt := mockAppointment()
	apptID := appt.ID
	req := &schedule.AppointmentRequest{
		ID:            uuid.New(),
		PatientID:     appt.PatientID,
		DoctorID:      appt.DoctorID,
		Status:        schedule.RequestApproved,
		AppointmentID: &apptID,
		UpdatedAt:     appt.UpdatedAt,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE appointment_requests SET").
		WithArgs(anyArgs(4)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(anyArgs(17)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	require.NoError(t, repo.ApproveRequest(context.Background(), req, appt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApproveRequestRollsBackOnConflict(t *testing.T) {
	mock, repo := newMockRepo(t)
	appt := mockAppointment()
	req := &schedule.AppointmentRequest{
		ID:        uuid.New(),
		Status:    schedule.RequestApproved,
		UpdatedAt: appt.UpdatedAt,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE appointment_requests SET").
		WithArgs(anyArgs(4)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(anyArgs(17)...).
		WillReturnError(&pgconn.PgError{Code: "23P01"})
	mock.ExpectRollback()

	err := repo.ApproveRequest(context.Background(), req, appt)
	var conflict *schedule.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApproveRequestAlreadyClosed(t *testing.T) {
	mock, repo := newMockRepo(t)
	appt := mockAppointment()
	req := &schedule.AppointmentRequest{ID: uuid.New(), Status: schedule.RequestApproved}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE appointment_requests SET").
		WithArgs(anyArgs(4)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.ApproveRequest(context.Background(), req, appt)
	assert.ErrorIs(t, err, ErrRequestClosed)
	require.NoError(t, mock.ExpectationsWereMet())
}
