package consultation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduling-platform/internal/clock"
	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

var testNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(testNow)
	svc := NewService(NewInMemoryRepository(), 24*time.Hour, logging.Default())
	svc.WithClock(fake)
	return svc, fake
}

func sessionReq() *CreateSessionRequest {
	return &CreateSessionRequest{
		AppointmentID:  uuid.New(),
		DoctorID:       uuid.New(),
		PatientID:      uuid.New(),
		RoomID:         "room-12",
		ScheduledStart: testNow.Add(time.Hour),
		ChiefComplaint: "recurring migraines",
	}
}

func mustCreate(t *testing.T, svc *Service) *Session {
	t.Helper()
	session, err := svc.CreateSession(context.Background(), sessionReq())
	require.NoError(t, err)
	return session
}

func TestCreateSession(t *testing.T) {
	svc, _ := newTestService(t)
	req := sessionReq()

	session, err := svc.CreateSession(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SessionScheduled, session.Status)
	assert.Equal(t, req.AppointmentID, session.AppointmentID)
	assert.Nil(t, session.ActualStart)
	assert.False(t, session.Recording)

	participants, err := svc.ListParticipants(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, participants, 2)
	roles := map[ParticipantRole]Participant{}
	for _, p := range participants {
		roles[p.Role] = p
	}
	assert.Equal(t, req.DoctorID, roles[RoleDoctor].UserID)
	assert.Equal(t, req.PatientID, roles[RolePatient].UserID)
	assert.NotEmpty(t, roles[RoleDoctor].InvitationToken)
	assert.Equal(t, DefaultPermissions(RolePatient), roles[RolePatient].Permissions)
}

func TestCreateSessionIdempotentPerAppointment(t *testing.T) {
	svc, _ := newTestService(t)
	req := sessionReq()

	first, err := svc.CreateSession(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.CreateSession(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateSessionValidation(t *testing.T) {
	svc, _ := newTestService(t)
	req := sessionReq()
	req.DoctorID = uuid.Nil

	_, err := svc.CreateSession(context.Background(), req)
	var validation *schedule.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "doctorId", validation.Field)
}

func TestSessionLifecycle(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)

	fake.Advance(time.Hour)
	started, err := svc.StartConsultation(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionInProgress, started.Status)
	require.NotNil(t, started.ActualStart)
	assert.Equal(t, fake.Current, *started.ActualStart)

	fake.Advance(25 * time.Minute)
	followUp := fake.Current.AddDate(0, 0, 14)
	ended, err := svc.EndConsultation(ctx, session.ID, &CloseSessionRequest{
		Diagnosis:        "tension headache",
		TreatmentPlan:    "hydration and rest",
		NextFollowUpDate: &followUp,
	})
	require.NoError(t, err)
	assert.Equal(t, SessionCompleted, ended.Status)
	require.NotNil(t, ended.ActualEnd)
	assert.Equal(t, 25, ended.ActualDurationMinutes)
	assert.Equal(t, "tension headache", ended.Diagnosis)
	require.NotNil(t, ended.NextFollowUpDate)
}

func TestStartRequiresScheduled(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)

	_, err := svc.StartConsultation(ctx, session.ID)
	require.NoError(t, err)

	_, err = svc.StartConsultation(ctx, session.ID)
	var transition *TransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, SessionInProgress, transition.From)
	assert.Equal(t, SessionInProgress, transition.Attempted)
}

func TestEndRequiresInProgress(t *testing.T) {
	svc, _ := newTestService(t)
	session := mustCreate(t, svc)

	_, err := svc.EndConsultation(context.Background(), session.ID, nil)
	var transition *TransitionError
	require.ErrorAs(t, err, &transition)
}

func TestCancelFromScheduledAndInProgress(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	scheduled := mustCreate(t, svc)
	cancelled, err := svc.CancelConsultation(ctx, scheduled.ID, "patient unavailable")
	require.NoError(t, err)
	assert.Equal(t, SessionCancelled, cancelled.Status)
	assert.Equal(t, "patient unavailable", cancelled.CancelReason)

	active := mustCreate(t, svc)
	_, err = svc.StartConsultation(ctx, active.ID)
	require.NoError(t, err)
	cancelled, err = svc.CancelConsultation(ctx, active.ID, "emergency")
	require.NoError(t, err)
	assert.Equal(t, SessionCancelled, cancelled.Status)
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := sessionReq()
	session, err := svc.CreateSession(ctx, req)
	require.NoError(t, err)

	// Seed a note and a guest while the session is still live.
	_, err = svc.StartConsultation(ctx, session.ID)
	require.NoError(t, err)
	note, err := svc.AddNote(ctx, &AddNoteRequest{
		SessionID: session.ID,
		AuthorID:  req.DoctorID,
		Content:   "BP elevated at intake",
	})
	require.NoError(t, err)
	guest, err := svc.AddParticipant(ctx, &AddParticipantRequest{
		SessionID: session.ID,
		Name:      "Resident observer",
		Role:      RoleObserver,
	})
	require.NoError(t, err)

	_, err = svc.CancelConsultation(ctx, session.ID, "")
	require.NoError(t, err)

	var transition *TransitionError
	_, err = svc.StartConsultation(ctx, session.ID)
	require.ErrorAs(t, err, &transition)
	_, err = svc.CancelConsultation(ctx, session.ID, "again")
	require.ErrorAs(t, err, &transition)

	_, err = svc.AddNote(ctx, &AddNoteRequest{
		SessionID: session.ID,
		AuthorID:  req.DoctorID,
		Content:   "post-mortem",
	})
	require.ErrorAs(t, err, &transition)
	content := "amended"
	_, err = svc.UpdateNote(ctx, &UpdateNoteRequest{
		NoteID:   note.ID,
		AuthorID: req.DoctorID,
		Content:  &content,
	})
	require.ErrorAs(t, err, &transition)
	err = svc.DeleteNote(ctx, note.ID, req.DoctorID)
	require.ErrorAs(t, err, &transition)

	_, err = svc.AddParticipant(ctx, &AddParticipantRequest{
		SessionID: session.ID,
		Name:      "Late observer",
		Role:      RoleObserver,
	})
	require.ErrorAs(t, err, &transition)
	_, err = svc.RemoveParticipant(ctx, session.ID, guest.ID, "cleanup")
	require.ErrorAs(t, err, &transition)
	_, err = svc.Leave(ctx, session.ID, guest.ID)
	require.ErrorAs(t, err, &transition)

	_, err = svc.StartRecording(ctx, session.ID, "video")
	require.ErrorAs(t, err, &transition)
}

func TestCompletedSessionRejectsNoteAndRosterMutations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := sessionReq()
	session, err := svc.CreateSession(ctx, req)
	require.NoError(t, err)

	_, err = svc.StartConsultation(ctx, session.ID)
	require.NoError(t, err)
	note, err := svc.AddNote(ctx, &AddNoteRequest{
		SessionID: session.ID,
		AuthorID:  req.DoctorID,
		Content:   "follow up in two weeks",
	})
	require.NoError(t, err)
	_, err = svc.EndConsultation(ctx, session.ID, nil)
	require.NoError(t, err)

	var transition *TransitionError
	_, err = svc.AddNote(ctx, &AddNoteRequest{
		SessionID: session.ID,
		AuthorID:  req.DoctorID,
		Content:   "late addendum",
	})
	require.ErrorAs(t, err, &transition)
	err = svc.DeleteNote(ctx, note.ID, req.DoctorID)
	require.ErrorAs(t, err, &transition)

	// Completed notes stay readable.
	notes, err := svc.ListNotes(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestJoinWithTokenConsumesIt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)

	guest, err := svc.AddParticipant(ctx, &AddParticipantRequest{
		SessionID: session.ID,
		Name:      "Resident observer",
		Role:      RoleObserver,
	})
	require.NoError(t, err)
	require.NotEmpty(t, guest.InvitationToken)

	joined, err := svc.JoinWithToken(ctx, guest.InvitationToken)
	require.NoError(t, err)
	assert.True(t, joined.Online)
	require.NotNil(t, joined.JoinedAt)

	// One-time use for non-member roles.
	_, err = svc.JoinWithToken(ctx, guest.InvitationToken)
	require.ErrorIs(t, err, ErrTokenConsumed)
}

func TestMemberTokenReusableForReconnect(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)

	participants, err := svc.ListParticipants(ctx, session.ID)
	require.NoError(t, err)
	var doctorToken string
	for _, p := range participants {
		if p.Role == RoleDoctor {
			doctorToken = p.InvitationToken
		}
	}
	require.NotEmpty(t, doctorToken)

	first, err := svc.JoinWithToken(ctx, doctorToken)
	require.NoError(t, err)

	_, err = svc.Leave(ctx, session.ID, first.ID)
	require.NoError(t, err)

	again, err := svc.JoinWithToken(ctx, doctorToken)
	require.NoError(t, err)
	assert.True(t, again.Online)
	assert.Equal(t, first.JoinedAt, again.JoinedAt)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)

	guest, err := svc.AddParticipant(ctx, &AddParticipantRequest{
		SessionID: session.ID,
		Name:      "Late guest",
	})
	require.NoError(t, err)

	fake.Advance(25 * time.Hour)
	_, err = svc.JoinWithToken(ctx, guest.InvitationToken)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestUnknownTokenNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.JoinWithToken(context.Background(), "deadbeef")
	require.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestJoinRejectedAfterSessionEnds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)

	guest, err := svc.AddParticipant(ctx, &AddParticipantRequest{
		SessionID: session.ID,
		Name:      "Guest",
	})
	require.NoError(t, err)

	_, err = svc.StartConsultation(ctx, session.ID)
	require.NoError(t, err)
	_, err = svc.EndConsultation(ctx, session.ID, nil)
	require.NoError(t, err)

	var transition *TransitionError
	_, err = svc.JoinWithToken(ctx, guest.InvitationToken)
	require.ErrorAs(t, err, &transition)
}

func TestRemovedParticipantCannotRejoin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)

	guest, err := svc.AddParticipant(ctx, &AddParticipantRequest{
		SessionID: session.ID,
		Name:      "Disruptive guest",
	})
	require.NoError(t, err)

	removed, err := svc.RemoveParticipant(ctx, session.ID, guest.ID, "disruption")
	require.NoError(t, err)
	assert.True(t, removed.Removed)
	assert.Equal(t, "disruption", removed.RemovalReason)
	assert.False(t, removed.Online)

	_, err = svc.JoinWithToken(ctx, guest.InvitationToken)
	require.ErrorIs(t, err, ErrParticipantRemoved)

	// Removing again is a no-op.
	again, err := svc.RemoveParticipant(ctx, session.ID, guest.ID, "other reason")
	require.NoError(t, err)
	assert.Equal(t, "disruption", again.RemovalReason)
}

func TestReconnectByUserID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := sessionReq()
	session, err := svc.CreateSession(ctx, req)
	require.NoError(t, err)

	p, err := svc.Reconnect(ctx, session.ID, req.PatientID)
	require.NoError(t, err)
	assert.Equal(t, RolePatient, p.Role)
	assert.True(t, p.Online)

	// Idempotent while already online.
	p, err = svc.Reconnect(ctx, session.ID, req.PatientID)
	require.NoError(t, err)
	assert.True(t, p.Online)

	_, err = svc.Reconnect(ctx, session.ID, uuid.New())
	require.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestAddParticipantRejectedOnTerminalSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)

	_, err := svc.CancelConsultation(ctx, session.ID, "")
	require.NoError(t, err)

	var transition *TransitionError
	_, err = svc.AddParticipant(ctx, &AddParticipantRequest{
		SessionID: session.ID,
		Name:      "Too late",
	})
	require.ErrorAs(t, err, &transition)
}

func TestRecordingLifecycle(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)

	// Recording requires an in-progress session.
	_, err := svc.StartRecording(ctx, session.ID, "")
	var transition *TransitionError
	require.ErrorAs(t, err, &transition)

	_, err = svc.StartConsultation(ctx, session.ID)
	require.NoError(t, err)

	rec, err := svc.StartRecording(ctx, session.ID, "")
	require.NoError(t, err)
	assert.Equal(t, RecordingActive, rec.Status)
	assert.Equal(t, "video", rec.Type)
	assert.True(t, rec.DoctorAccessible)

	current, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, current.Recording)

	// Only one active recording at a time.
	_, err = svc.StartRecording(ctx, session.ID, "audio")
	require.ErrorIs(t, err, ErrRecordingActive)

	fake.Advance(10 * time.Minute)
	stopped, err := svc.StopRecording(ctx, session.ID, "s3://recordings/abc")
	require.NoError(t, err)
	assert.Equal(t, RecordingProcessing, stopped.Status)
	assert.Equal(t, 600, stopped.DurationSeconds)
	assert.Equal(t, "s3://recordings/abc", stopped.URL)
	require.NotNil(t, stopped.StoppedAt)

	current, err = svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, current.Recording)

	// A new recording may start once the previous one stopped.
	second, err := svc.StartRecording(ctx, session.ID, "audio")
	require.NoError(t, err)
	assert.Equal(t, "audio", second.Type)

	recordings, err := svc.ListRecordings(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, recordings, 2)
}

func TestStopRecordingWithoutActive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)
	_, err := svc.StartConsultation(ctx, session.ID)
	require.NoError(t, err)

	_, err = svc.StopRecording(ctx, session.ID, "")
	require.ErrorIs(t, err, ErrRecordingNotFound)
}

func TestConcurrentRecordingStartsOnlyOneWins(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)
	_, err := svc.StartConsultation(ctx, session.ID)
	require.NoError(t, err)

	const attempts = 12
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.StartRecording(ctx, session.ID, "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrRecordingActive)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestEndConsultationFinalizesDanglingRecording(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)
	_, err := svc.StartConsultation(ctx, session.ID)
	require.NoError(t, err)
	_, err = svc.StartRecording(ctx, session.ID, "")
	require.NoError(t, err)

	fake.Advance(5 * time.Minute)
	ended, err := svc.EndConsultation(ctx, session.ID, nil)
	require.NoError(t, err)
	assert.False(t, ended.Recording)

	recordings, err := svc.ListRecordings(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, recordings, 1)
	assert.Equal(t, RecordingProcessing, recordings[0].Status)
	assert.Equal(t, 300, recordings[0].DurationSeconds)
}

func TestNotesPrivacyProjection(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)
	authorID := uuid.New()

	add := func(content string, private, shared bool) *Note {
		note, err := svc.AddNote(ctx, &AddNoteRequest{
			SessionID:         session.ID,
			AuthorID:          authorID,
			Content:           content,
			Private:           private,
			SharedWithPatient: shared,
		})
		require.NoError(t, err)
		return note
	}
	add("internal working hypothesis", true, false)
	add("chart annotation", false, false)
	shared := add("take medication with food", false, true)

	all, err := svc.ListNotes(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	visible, err := svc.ListPatientNotes(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, shared.ID, visible[0].ID)
}

func TestNoteCannotBeBothPrivateAndShared(t *testing.T) {
	svc, _ := newTestService(t)
	session := mustCreate(t, svc)

	_, err := svc.AddNote(context.Background(), &AddNoteRequest{
		SessionID:         session.ID,
		AuthorID:          uuid.New(),
		Content:           "contradiction",
		Private:           true,
		SharedWithPatient: true,
	})
	var validation *schedule.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestNoteAuthorScoping(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)
	authorID := uuid.New()

	note, err := svc.AddNote(ctx, &AddNoteRequest{
		SessionID: session.ID,
		AuthorID:  authorID,
		Content:   "original",
	})
	require.NoError(t, err)

	newContent := "revised"
	_, err = svc.UpdateNote(ctx, &UpdateNoteRequest{
		NoteID:   note.ID,
		AuthorID: uuid.New(),
		Content:  &newContent,
	})
	require.ErrorIs(t, err, ErrNotAuthor)

	updated, err := svc.UpdateNote(ctx, &UpdateNoteRequest{
		NoteID:   note.ID,
		AuthorID: authorID,
		Content:  &newContent,
	})
	require.NoError(t, err)
	assert.Equal(t, "revised", updated.Content)

	require.ErrorIs(t, svc.DeleteNote(ctx, note.ID, uuid.New()), ErrNotAuthor)
	require.NoError(t, svc.DeleteNote(ctx, note.ID, authorID))
	require.ErrorIs(t, svc.DeleteNote(ctx, note.ID, authorID), ErrNoteNotFound)
}

func TestNotesRejectedOnCancelledSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := mustCreate(t, svc)
	_, err := svc.CancelConsultation(ctx, session.ID, "")
	require.NoError(t, err)

	var transition *TransitionError
	_, err = svc.AddNote(ctx, &AddNoteRequest{
		SessionID: session.ID,
		AuthorID:  uuid.New(),
		Content:   "too late",
	})
	require.ErrorAs(t, err, &transition)
}
