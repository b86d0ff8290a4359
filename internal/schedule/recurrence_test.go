package schedule

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOccurrencesWeekdaySet(t *testing.T) {
	until := date(2025, 6, 30)
	pattern := RecurrencePattern{
		Frequency:   FrequencyWeekly,
		Weekdays:    []time.Weekday{time.Monday, time.Wednesday},
		RepeatUntil: &until,
	}
	anchor := mustInterval(t, "2025-06-02", "12:00", "13:00") // a Monday

	var got []Interval
	for iv := range pattern.Occurrences(anchor) {
		got = append(got, iv)
	}

	// 2025-06: Mondays 2,9,16,23,30 and Wednesdays 4,11,18,25.
	if len(got) != 9 {
		t.Fatalf("expected 9 occurrences, got %d", len(got))
	}
	if !got[0].Date.Equal(date(2025, 6, 2)) {
		t.Errorf("first occurrence %s, want 2025-06-02", got[0].Date)
	}
	if !got[1].Date.Equal(date(2025, 6, 4)) {
		t.Errorf("second occurrence %s, want 2025-06-04", got[1].Date)
	}
	for _, iv := range got {
		if iv.Date.After(until) {
			t.Errorf("occurrence %s past repeatUntil", iv.Date)
		}
		wd := iv.Date.Weekday()
		if wd != time.Monday && wd != time.Wednesday {
			t.Errorf("occurrence on %s", wd)
		}
		if iv.StartClock() != "12:00" || iv.EndClock() != "13:00" {
			t.Errorf("occurrence time drifted: %s", iv)
		}
	}
}

func TestOccurrencesEmptyWeekdaysDefaultsToAnchor(t *testing.T) {
	until := date(2025, 6, 23)
	pattern := RecurrencePattern{Frequency: FrequencyWeekly, RepeatUntil: &until}
	anchor := mustInterval(t, "2025-06-02", "09:00", "09:30") // Monday

	var got []Interval
	for iv := range pattern.Occurrences(anchor) {
		got = append(got, iv)
	}

	// Mondays 2, 9, 16, 23; repeatUntil is inclusive.
	if len(got) != 4 {
		t.Fatalf("expected 4 Mondays, got %d", len(got))
	}
	if !got[3].Date.Equal(until) {
		t.Errorf("last occurrence %s, want repeatUntil %s", got[3].Date, until)
	}
}

func TestOccurrencesHorizonCap(t *testing.T) {
	pattern := RecurrencePattern{Frequency: FrequencyWeekly}
	anchor := mustInterval(t, "2025-01-06", "08:00", "08:30")
	horizon := anchor.Date.AddDate(0, 0, DefaultHorizonDays)

	count := 0
	for iv := range pattern.Occurrences(anchor) {
		if iv.Date.After(horizon) {
			t.Fatalf("occurrence %s beyond horizon %s", iv.Date, horizon)
		}
		count++
	}
	// 365 days forward covers 52 or 53 anchor weekdays.
	if count < 52 || count > 53 {
		t.Errorf("expected ~52 occurrences under horizon cap, got %d", count)
	}
}

func TestOccurrencesLazyStop(t *testing.T) {
	pattern := RecurrencePattern{Frequency: FrequencyWeekly}
	anchor := mustInterval(t, "2025-01-06", "08:00", "08:30")

	var got []Interval
	for iv := range pattern.Occurrences(anchor) {
		got = append(got, iv)
		if len(got) == 3 {
			break
		}
	}
	if len(got) != 3 {
		t.Fatalf("early break not honored, got %d", len(got))
	}
}

func TestOccursOn(t *testing.T) {
	until := date(2025, 12, 31)
	pattern := RecurrencePattern{
		Frequency:   FrequencyWeekly,
		Weekdays:    []time.Weekday{time.Monday, time.Wednesday},
		RepeatUntil: &until,
	}
	anchor := date(2025, 6, 2)

	tests := []struct {
		day  time.Time
		want bool
	}{
		{date(2025, 6, 2), true},    // anchor Monday
		{date(2025, 6, 9), true},    // following Monday
		{date(2025, 6, 11), true},   // Wednesday
		{date(2025, 6, 10), false},  // Tuesday
		{date(2025, 5, 26), false},  // Monday before anchor
		{date(2026, 1, 5), false},   // Monday past repeatUntil
		{date(2025, 12, 29), true},  // last Monday inside range
		{date(2025, 12, 31), true},  // repeatUntil itself, a Wednesday
	}
	for _, tt := range tests {
		if got := pattern.OccursOn(anchor, tt.day); got != tt.want {
			t.Errorf("OccursOn(%s) = %v, want %v", tt.day.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestRecurrenceValidate(t *testing.T) {
	if err := (RecurrencePattern{Frequency: FrequencyWeekly}).Validate(); err != nil {
		t.Errorf("weekly pattern should validate: %v", err)
	}
	if err := (RecurrencePattern{Frequency: "daily"}).Validate(); err == nil {
		t.Error("unsupported frequency should fail validation")
	}
}
