// Package timecalc converts clock strings to minutes and derives day and week
// totals for a timesheet. Everything here is pure and safe for concurrent use.
package timecalc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFormat is returned for a clock string that is not H:MM or HH:MM.
var ErrInvalidFormat = errors.New("invalid_time_format")

// ErrInvalidBreak is returned for a negative break or break minutes above 59.
var ErrInvalidBreak = errors.New("invalid_break")

const MinutesPerHour = 60

// ToMinutes parses "H:MM" or "HH:MM" into minutes since midnight.
func ToMinutes(s string) (int, error) {
	value := strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(value, ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	hours, err := parseDigits(hh)
	if err != nil || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	minutes, err := parseDigits(mm)
	if err != nil || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return hours*MinutesPerHour + minutes, nil
}

// ToClockString formats minutes as "H:MM". Hours are not padded and have no
// upper bound, so weekly totals render as e.g. "40:00". Negative input is
// treated as zero.
func ToClockString(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%d:%02d", minutes/MinutesPerHour, minutes%MinutesPerHour)
}

func parseDigits(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidFormat
		}
	}
	return strconv.Atoi(s)
}

// Break is an unpaid break subtracted from worked time.
type Break struct {
	Hours   int
	Minutes int
}

func (b Break) Duration() int {
	return b.Hours*MinutesPerHour + b.Minutes
}

func (b Break) Validate() error {
	if b.Hours < 0 || b.Minutes < 0 || b.Minutes > 59 {
		return fmt.Errorf("%w: %dh%02dm", ErrInvalidBreak, b.Hours, b.Minutes)
	}
	return nil
}

// Day is one calendar day of a week. Total is derived from the other fields.
type Day struct {
	Name   string
	Date   string
	Start  string
	Finish string
	Break  Break
	Total  string
}

// HasHours reports whether both start and finish are recorded.
func (d Day) HasHours() bool {
	return strings.TrimSpace(d.Start) != "" && strings.TrimSpace(d.Finish) != ""
}

// DayMinutes returns worked minutes for the day. A day missing either end is
// zero, and a finish at or before start plus break floors to zero.
func DayMinutes(d Day) (int, error) {
	if !d.HasHours() {
		return 0, nil
	}
	if err := d.Break.Validate(); err != nil {
		return 0, err
	}
	start, err := ToMinutes(d.Start)
	if err != nil {
		return 0, err
	}
	finish, err := ToMinutes(d.Finish)
	if err != nil {
		return 0, err
	}
	raw := finish - start - d.Break.Duration()
	if raw <= 0 {
		return 0, nil
	}
	return raw, nil
}

// DayTotal returns DayMinutes formatted as a clock string.
func DayTotal(d Day) (string, error) {
	minutes, err := DayMinutes(d)
	if err != nil {
		return "", err
	}
	return ToClockString(minutes), nil
}
