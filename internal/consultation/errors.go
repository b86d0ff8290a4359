package consultation

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a session id does not exist
	ErrSessionNotFound = errors.New("consultation session not found")

	// ErrParticipantNotFound is returned when a participant id or token does
	// not resolve
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrRecordingNotFound is returned when no recording matches
	ErrRecordingNotFound = errors.New("recording not found")

	// ErrNoteNotFound is returned when a note id does not exist
	ErrNoteNotFound = errors.New("note not found")

	// ErrNotAuthor is returned when a caller edits a note they did not write
	ErrNotAuthor = errors.New("only the author may modify this note")

	// ErrTokenExpired is returned when an invitation token is past its TTL
	ErrTokenExpired = errors.New("invitation token expired")

	// ErrTokenConsumed is returned when an invitation token was already used
	ErrTokenConsumed = errors.New("invitation token already used")

	// ErrParticipantRemoved is returned when a removed participant tries to
	// rejoin
	ErrParticipantRemoved = errors.New("participant was removed from the session")

	// ErrRecordingActive is returned when a second recording is started while
	// one is running
	ErrRecordingActive = errors.New("a recording is already in progress")
)

// TransitionError reports a session status change the state machine forbids.
type TransitionError struct {
	From      SessionStatus
	Attempted SessionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.Attempted)
}
