package timecalc

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWeekStart is returned for a week key that is not YYYY-MM-DD.
var ErrInvalidWeekStart = errors.New("invalid_week_start")

const (
	DaysPerWeek = 7
	KeyLayout   = "2006-01-02"
)

// DayNames lists the fixed day keys of a week in calendar order.
var DayNames = [DaysPerWeek]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Week is one user's timesheet for the seven days starting at WeekStart.
type Week struct {
	WeekStart   time.Time
	Days        [DaysPerWeek]Day
	WeeklyTotal string
}

// Day returns the day stored under name.
func (w Week) Day(name string) (Day, bool) {
	for i, n := range DayNames {
		if n == name {
			return w.Days[i], true
		}
	}
	return Day{}, false
}

func (w Week) Key() string {
	return WeekKey(w.WeekStart)
}

// Schedule seeds the first WorkingDays of a new week. Remaining days are blank.
type Schedule struct {
	Start       string
	Finish      string
	Break       Break
	WorkingDays int
}

var DefaultSchedule = Schedule{
	Start:       "08:30",
	Finish:      "17:00",
	Break:       Break{Minutes: 30},
	WorkingDays: 5,
}

// InitializeWeek builds a fresh week using DefaultSchedule. DefaultSchedule
// parses, so Recompute has nothing to report and the error is dropped.
func InitializeWeek(weekStart time.Time) Week {
	week, _ := InitializeWeekWithSchedule(weekStart, DefaultSchedule)
	return week
}

// InitializeWeekWithSchedule builds a fresh week. Day i is dated weekStart+i.
func InitializeWeekWithSchedule(weekStart time.Time, s Schedule) (Week, error) {
	week := Week{WeekStart: weekStart}
	for i, name := range DayNames {
		day := Day{
			Name: name,
			Date: weekStart.AddDate(0, 0, i).Format(KeyLayout),
		}
		if i < s.WorkingDays {
			day.Start = s.Start
			day.Finish = s.Finish
			day.Break = s.Break
		}
		week.Days[i] = day
	}
	return Recompute(week)
}

// Recompute refreshes every day total and the weekly total from the source
// fields. Stored totals are never trusted. A day that fails to parse counts
// as 0:00; the week is still fully recomputed and the per-day errors are
// returned joined.
func Recompute(w Week) (Week, error) {
	sum, errs := 0, []error(nil)
	for i := range w.Days {
		if w.Days[i].Name == "" {
			w.Days[i].Name = DayNames[i]
		}
		minutes, err := DayMinutes(w.Days[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", DayNames[i], err))
			minutes = 0
		}
		w.Days[i].Total = ToClockString(minutes)
		sum += minutes
	}
	w.WeeklyTotal = ToClockString(sum)
	return w, errors.Join(errs...)
}

// TotalMinutes sums the worked minutes of all seven days. Days that fail to
// parse contribute nothing, and their errors are returned joined.
func TotalMinutes(w Week) (int, error) {
	sum, errs := 0, []error(nil)
	for i := range w.Days {
		minutes, err := DayMinutes(w.Days[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", DayNames[i], err))
			continue
		}
		sum += minutes
	}
	return sum, errors.Join(errs...)
}

// HasWorkingHours reports whether any day has both start and finish.
func HasWorkingHours(w Week) bool {
	for _, d := range w.Days {
		if d.HasHours() {
			return true
		}
	}
	return false
}

// StartOfWeek snaps t to Monday 00:00 in t's location.
func StartOfWeek(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	monday := t.AddDate(0, 0, -(wd - 1))
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
}

func PreviousWeek(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, -DaysPerWeek)
}

func NextWeek(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, DaysPerWeek)
}

// WeekKey is the canonical YYYY-MM-DD key of the Monday of t's week.
func WeekKey(t time.Time) string {
	return StartOfWeek(t).Format(KeyLayout)
}

// ParseWeekKey parses a YYYY-MM-DD date in UTC and snaps it to its Monday.
func ParseWeekKey(s string) (time.Time, error) {
	t, err := time.ParseInLocation(KeyLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWeekStart, s)
	}
	return StartOfWeek(t), nil
}
