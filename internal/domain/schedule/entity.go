package schedule

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock offset from midnight, without a date.
type TimeOfDay time.Duration

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// ParseTimeOfDay accepts "15:04" and "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	layout := "15:04"
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay(time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second), nil
}

// On anchors the time of day to the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location()).Add(time.Duration(t))
}

func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t)
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// Shift describes a same-day work shift. It is read-only to the attendance engine.
type Shift struct {
	ID            string
	Name          string
	Start         TimeOfDay
	End           TimeOfDay
	Break1Minutes int // breakfast, 0 = no such break
	Break2Minutes int // lunch, 0 = no such break

	// WorkDays are the weekdays the shift is worked; empty means every day.
	WorkDays Weekdays

	// AllowCombinedBreaks is stored but has no effect on any computed window.
	AllowCombinedBreaks bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s Shift) Break1Duration() time.Duration {
	return time.Duration(s.Break1Minutes) * time.Minute
}

func (s Shift) Break2Duration() time.Duration {
	return time.Duration(s.Break2Minutes) * time.Minute
}

func (s Shift) HasBreak1() bool { return s.Break1Minutes > 0 }

func (s Shift) HasBreak2() bool { return s.Break2Minutes > 0 }

// WorksOn reports whether d is a working day of the shift.
func (s Shift) WorksOn(d time.Weekday) bool {
	return s.WorkDays == 0 || s.WorkDays.Has(d)
}

// Midpoint returns the time of day halfway between start and end.
func (s Shift) Midpoint() TimeOfDay {
	return s.Start + (s.End-s.Start)/2
}

// Validate rejects shifts the engine refuses to evaluate.
func (s Shift) Validate() error {
	if s.Start >= s.End {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidShift, s.Start, s.End)
	}
	if s.Start < 0 || s.End > TimeOfDay(24*time.Hour) {
		return fmt.Errorf("%w: times must fall within a single day", ErrInvalidShift)
	}
	if s.Break1Minutes < 0 || s.Break2Minutes < 0 {
		return fmt.Errorf("%w: break durations must not be negative", ErrInvalidShift)
	}
	if s.WorkDays > AllWeekdays {
		return fmt.Errorf("%w: unknown weekdays in %08b", ErrInvalidShift, uint8(s.WorkDays))
	}
	return nil
}
