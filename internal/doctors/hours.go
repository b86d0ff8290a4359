// Package doctors provides doctor-specific scheduling configuration, starting
// with the weekly working hours the availability planner carves into slots.
package doctors

import (
	"time"

	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
)

// DayHours represents the working hours for a single day.
// Nil means the doctor does not take appointments that day.
type DayHours struct {
	Open  string `json:"open"`  // "09:00" in 24-hour format
	Close string `json:"close"` // "17:00" in 24-hour format
}

// Window converts the day hours into planner minutes.
func (h DayHours) Window() (schedule.Window, error) {
	open, err := schedule.ParseClock(h.Open)
	if err != nil {
		return schedule.Window{}, err
	}
	closeMin, err := schedule.ParseClock(h.Close)
	if err != nil {
		return schedule.Window{}, err
	}
	w := schedule.Window{Start: open, End: closeMin}
	if err := w.Validate(); err != nil {
		return schedule.Window{}, err
	}
	return w, nil
}

// WeeklyHours maps day names to their hours.
type WeeklyHours struct {
	DoctorID  string    `json:"doctor_id"`
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// ForDate returns the hours for the date's weekday, nil when off.
func (w *WeeklyHours) ForDate(date time.Time) *DayHours {
	switch date.UTC().Weekday() {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	default:
		return w.Sunday
	}
}

// DefaultWeeklyHours is the schedule used until a doctor configures their own:
// weekdays nine to five, weekends off.
func DefaultWeeklyHours(doctorID string) *WeeklyHours {
	nineToFive := &DayHours{Open: "09:00", Close: "17:00"}
	return &WeeklyHours{
		DoctorID:  doctorID,
		Monday:    nineToFive,
		Tuesday:   nineToFive,
		Wednesday: nineToFive,
		Thursday:  nineToFive,
		Friday:    nineToFive,
	}
}
