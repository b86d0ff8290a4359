package booking

import (
	"errors"
	"fmt"

	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
)

var (
	// ErrAppointmentNotFound is returned when an appointment id does not exist
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrRequestNotFound is returned when an appointment request id does not exist
	ErrRequestNotFound = errors.New("appointment request not found")

	// ErrTimeBlockNotFound is returned when a time block id does not exist
	ErrTimeBlockNotFound = errors.New("time block not found")

	// ErrRequestClosed is returned when approving or rejecting a request that
	// is no longer open
	ErrRequestClosed = errors.New("appointment request already reviewed")
)

// TransitionError reports a status change the appointment state machine
// forbids. It names both states so callers can explain the failure.
type TransitionError struct {
	From      schedule.AppointmentStatus
	Attempted schedule.AppointmentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.Attempted)
}
