package schedule

import (
	"errors"
	"testing"
	"time"
)

func mustInterval(t *testing.T, date string, start, end string) Interval {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("bad date %q: %v", date, err)
	}
	iv, err := NewInterval(d, start, end)
	if err != nil {
		t.Fatalf("bad interval %s %s-%s: %v", date, start, end, err)
	}
	return iv
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{
			name: "identical",
			a:    mustInterval(t, "2025-06-02", "09:00", "10:00"),
			b:    mustInterval(t, "2025-06-02", "09:00", "10:00"),
			want: true,
		},
		{
			name: "partial overlap",
			a:    mustInterval(t, "2025-06-02", "09:00", "10:00"),
			b:    mustInterval(t, "2025-06-02", "09:30", "10:30"),
			want: true,
		},
		{
			name: "contained",
			a:    mustInterval(t, "2025-06-02", "09:00", "12:00"),
			b:    mustInterval(t, "2025-06-02", "10:00", "10:30"),
			want: true,
		},
		{
			name: "back to back does not conflict",
			a:    mustInterval(t, "2025-06-02", "09:00", "10:00"),
			b:    mustInterval(t, "2025-06-02", "10:00", "11:00"),
			want: false,
		},
		{
			name: "different dates",
			a:    mustInterval(t, "2025-06-02", "09:00", "10:00"),
			b:    mustInterval(t, "2025-06-03", "09:00", "10:00"),
			want: false,
		},
		{
			name: "disjoint same day",
			a:    mustInterval(t, "2025-06-02", "09:00", "10:00"),
			b:    mustInterval(t, "2025-06-02", "14:00", "15:00"),
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			// Overlap is symmetric.
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps (reversed) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewIntervalRejectsInvertedRange(t *testing.T) {
	_, err := NewInterval(time.Now(), "10:00", "09:00")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestNewIntervalRejectsZeroLength(t *testing.T) {
	_, err := NewInterval(time.Now(), "10:00", "10:00")
	if err == nil {
		t.Fatal("expected zero-length interval to be rejected")
	}
}

func TestIntervalAt(t *testing.T) {
	startsAt := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	iv, err := IntervalAt(startsAt, 45)
	if err != nil {
		t.Fatalf("IntervalAt failed: %v", err)
	}
	if iv.StartClock() != "09:30" || iv.EndClock() != "10:15" {
		t.Errorf("unexpected interval %s", iv)
	}
	if !iv.Date.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date not normalized: %s", iv.Date)
	}
}

func TestIntervalAtRejectsMidnightCrossing(t *testing.T) {
	startsAt := time.Date(2025, 6, 2, 23, 30, 0, 0, time.UTC)
	if _, err := IntervalAt(startsAt, 60); err == nil {
		t.Fatal("expected interval crossing midnight to be rejected")
	}
}

func TestParseClock(t *testing.T) {
	min, err := ParseClock("13:45")
	if err != nil {
		t.Fatalf("ParseClock failed: %v", err)
	}
	if min != 13*60+45 {
		t.Errorf("got %d minutes", min)
	}
	if _, err := ParseClock("25:00"); err == nil {
		t.Error("expected invalid hour to fail")
	}
	if FormatClock(min) != "13:45" {
		t.Errorf("FormatClock round trip failed: %s", FormatClock(min))
	}
}
