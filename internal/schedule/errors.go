package schedule

import "fmt"

// ValidationError reports malformed input. It is the only error kind the
// pure algorithms in this package produce.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ConflictError reports an overlap with an existing appointment or time
// block. It carries the conflicting interval so callers can suggest the next
// free slot.
type ConflictError struct {
	DoctorID string
	Conflict Interval
	// Source is "appointment" or "time_block".
	Source string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("scheduling conflict with %s at %s", e.Source, e.Conflict)
}
