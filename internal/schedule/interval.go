// Package schedule implements the pure scheduling algorithms: the interval
// primitive, recurring block expansion, conflict detection and free-slot
// planning. Nothing in this package touches storage or holds locks.
package schedule

import (
	"fmt"
	"time"
)

// minutesPerDay bounds clock times; End may equal it for a block running to midnight.
const minutesPerDay = 24 * 60

// Interval is a half-open time range [Start, End) on a single date.
// Start and End are minutes since midnight; Date is normalized to midnight UTC.
type Interval struct {
	Date  time.Time
	Start int
	End   int
}

// NewInterval builds an interval from a date and "15:04" clock strings.
func NewInterval(date time.Time, start, end string) (Interval, error) {
	startMin, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	iv := Interval{Date: NormalizeDate(date), Start: startMin, End: endMin}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// IntervalAt builds an interval from a start instant and a duration. The
// interval must not cross midnight.
func IntervalAt(startsAt time.Time, durationMinutes int) (Interval, error) {
	startsAt = startsAt.UTC()
	start := startsAt.Hour()*60 + startsAt.Minute()
	end := start + durationMinutes
	if end > minutesPerDay {
		return Interval{}, &ValidationError{Field: "durationMinutes", Reason: "interval must end on the same day"}
	}
	iv := Interval{Date: NormalizeDate(startsAt), Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate rejects empty or inverted ranges.
func (i Interval) Validate() error {
	if i.Start < 0 || i.End > minutesPerDay {
		return &ValidationError{Field: "startTime", Reason: "clock time out of range"}
	}
	if i.Start >= i.End {
		return &ValidationError{Field: "endTime", Reason: "end must be after start"}
	}
	return nil
}

// Overlaps reports whether two intervals intersect. Half-open semantics:
// back-to-back intervals (End == other.Start) do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	if !i.Date.Equal(other.Date) {
		return false
	}
	return i.Start < other.End && other.Start < i.End
}

// Minutes returns the interval length.
func (i Interval) Minutes() int { return i.End - i.Start }

// StartClock formats the start as "15:04".
func (i Interval) StartClock() string { return FormatClock(i.Start) }

// EndClock formats the end as "15:04".
func (i Interval) EndClock() string { return FormatClock(i.End) }

// StartTime returns the interval start as an instant.
func (i Interval) StartTime() time.Time {
	return i.Date.Add(time.Duration(i.Start) * time.Minute)
}

// EndTime returns the interval end as an instant.
func (i Interval) EndTime() time.Time {
	return i.Date.Add(time.Duration(i.End) * time.Minute)
}

func (i Interval) String() string {
	return fmt.Sprintf("%s %s-%s", i.Date.Format("2006-01-02"), i.StartClock(), i.EndClock())
}

// ParseClock parses a "15:04" clock string into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, &ValidationError{Field: "time", Reason: fmt.Sprintf("invalid clock time %q", s)}
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as "15:04".
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// NormalizeDate truncates an instant to midnight UTC.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
