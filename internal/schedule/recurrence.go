package schedule

import (
	"iter"
	"time"
)

// RecurrenceFrequency enumerates supported repeat frequencies.
type RecurrenceFrequency string

// FrequencyWeekly is the only supported frequency.
const FrequencyWeekly RecurrenceFrequency = "weekly"

// DefaultHorizonDays caps open-ended recurrences so expansion stays finite.
// This is policy, not a limitation: a block without repeatUntil repeats for
// one year from its anchor date.
const DefaultHorizonDays = 365

// RecurrencePattern describes how a time block repeats. An empty weekday set
// defaults to the anchor's own weekday.
type RecurrencePattern struct {
	Frequency   RecurrenceFrequency `json:"frequency"`
	Weekdays    []time.Weekday      `json:"weekdays,omitempty"`
	RepeatUntil *time.Time          `json:"repeat_until,omitempty"`
}

// Validate checks the pattern shape.
func (p RecurrencePattern) Validate() error {
	if p.Frequency != FrequencyWeekly {
		return &ValidationError{Field: "frequency", Reason: "only weekly recurrence is supported"}
	}
	for _, wd := range p.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return &ValidationError{Field: "weekdays", Reason: "invalid weekday"}
		}
	}
	return nil
}

// until resolves the last date the pattern may produce.
func (p RecurrencePattern) until(anchorDate time.Time) time.Time {
	if p.RepeatUntil != nil {
		return NormalizeDate(*p.RepeatUntil)
	}
	return anchorDate.AddDate(0, 0, DefaultHorizonDays)
}

// matches reports whether the pattern's weekday set covers wd.
func (p RecurrencePattern) matches(anchor time.Time, wd time.Weekday) bool {
	if len(p.Weekdays) == 0 {
		return wd == anchor.Weekday()
	}
	for _, d := range p.Weekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// OccursOn reports whether an occurrence falls on date. Both arguments are
// normalized to midnight UTC.
func (p RecurrencePattern) OccursOn(anchorDate, date time.Time) bool {
	anchorDate = NormalizeDate(anchorDate)
	date = NormalizeDate(date)
	if date.Before(anchorDate) || date.After(p.until(anchorDate)) {
		return false
	}
	return p.matches(anchorDate, date.Weekday())
}

// Occurrences returns the concrete intervals the pattern produces from the
// anchor through repeatUntil (or the horizon cap), in chronological order.
// The sequence is lazy so large horizons are never materialized.
func (p RecurrencePattern) Occurrences(anchor Interval) iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		last := p.until(anchor.Date)
		for date := anchor.Date; !date.After(last); date = date.AddDate(0, 0, 1) {
			if !p.matches(anchor.Date, date.Weekday()) {
				continue
			}
			if !yield(Interval{Date: date, Start: anchor.Start, End: anchor.End}) {
				return
			}
		}
	}
}
