package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Weekdays is a set of days of the week, one bit per time.Weekday.
// The zero value is the empty set.
type Weekdays uint8

const (
	AllWeekdays    Weekdays = 1<<7 - 1
	MondayToFriday Weekdays = 1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday |
		1<<time.Thursday | 1<<time.Friday
	MondayToSaturday Weekdays = MondayToFriday | 1<<time.Saturday
)

var weekdayNames = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func NewWeekdays(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w |= 1 << d
	}
	return w
}

func (w Weekdays) Has(d time.Weekday) bool {
	return d >= time.Sunday && d <= time.Saturday && w&(1<<d) != 0
}

// ParseWeekdays reads a comma-separated list of day names ("mon,tue").
// Full English names are accepted too; case and blanks are ignored.
func ParseWeekdays(s string) (Weekdays, error) {
	var w Weekdays
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		found := false
		for i, short := range weekdayNames {
			if name == short || name == strings.ToLower(time.Weekday(i).String()) {
				w |= 1 << i
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidShift, part)
		}
	}
	return w, nil
}

// String lists the days from Sunday to Saturday, e.g. "mon,tue,wed".
func (w Weekdays) String() string {
	names := make([]string, 0, 7)
	for i, name := range weekdayNames {
		if w.Has(time.Weekday(i)) {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}
