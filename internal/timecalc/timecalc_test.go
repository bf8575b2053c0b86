package timecalc_test

import (
	"errors"
	"testing"

	"github.com/smallbiznis/timesheet/internal/timecalc"
)

func TestToMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0:00", 0},
		{"00:00", 0},
		{"8:30", 510},
		{"08:30", 510},
		{"17:00", 1020},
		{"23:59", 1439},
		{" 9:05 ", 545},
	}
	for _, tt := range tests {
		got, err := timecalc.ToMinutes(tt.in)
		if err != nil {
			t.Errorf("ToMinutes(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ToMinutes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestToMinutesInvalid(t *testing.T) {
	for _, in := range []string{"", "8", "830", "8:3", "8:300", "24:00", "12:60", "ab:cd", "-1:00", "1:-5", "123:00"} {
		_, err := timecalc.ToMinutes(in)
		if !errors.Is(err, timecalc.ErrInvalidFormat) {
			t.Errorf("ToMinutes(%q) error = %v, want ErrInvalidFormat", in, err)
		}
	}
}

func TestToClockString(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0:00"},
		{5, "0:05"},
		{60, "1:00"},
		{450, "7:30"},
		{480, "8:00"},
		{2400, "40:00"},
		{6001, "100:01"},
		{-15, "0:00"},
	}
	for _, tt := range tests {
		if got := timecalc.ToClockString(tt.minutes); got != tt.want {
			t.Errorf("ToClockString(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestClockStringRoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"8:30", "8:30"},
		{"08:30", "8:30"},
		{"00:00", "0:00"},
		{"23:59", "23:59"},
		{"10:05", "10:05"},
	}
	for _, tt := range tests {
		minutes, err := timecalc.ToMinutes(tt.in)
		if err != nil {
			t.Fatalf("ToMinutes(%q): %v", tt.in, err)
		}
		if got := timecalc.ToClockString(minutes); got != tt.want {
			t.Errorf("round trip %q = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDayMinutes(t *testing.T) {
	tests := []struct {
		name string
		day  timecalc.Day
		want int
	}{
		{"default weekday", timecalc.Day{Start: "08:30", Finish: "17:00", Break: timecalc.Break{Minutes: 30}}, 480},
		{"no break", timecalc.Day{Start: "9:00", Finish: "17:30"}, 510},
		{"hour break", timecalc.Day{Start: "07:00", Finish: "16:15", Break: timecalc.Break{Hours: 1, Minutes: 15}}, 480},
		{"finish equals start", timecalc.Day{Start: "08:00", Finish: "08:00"}, 0},
		{"finish before start", timecalc.Day{Start: "22:00", Finish: "06:00"}, 0},
		{"break swallows shift", timecalc.Day{Start: "08:00", Finish: "09:00", Break: timecalc.Break{Hours: 2}}, 0},
		{"break equals shift", timecalc.Day{Start: "08:00", Finish: "09:00", Break: timecalc.Break{Hours: 1}}, 0},
		{"missing start", timecalc.Day{Finish: "17:00", Break: timecalc.Break{Minutes: 30}}, 0},
		{"missing finish", timecalc.Day{Start: "08:30"}, 0},
		{"blank", timecalc.Day{}, 0},
	}
	for _, tt := range tests {
		got, err := timecalc.DayMinutes(tt.day)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: DayMinutes = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestDayMinutesErrors(t *testing.T) {
	_, err := timecalc.DayMinutes(timecalc.Day{Start: "8.30", Finish: "17:00"})
	if !errors.Is(err, timecalc.ErrInvalidFormat) {
		t.Errorf("malformed start: error = %v, want ErrInvalidFormat", err)
	}

	_, err = timecalc.DayMinutes(timecalc.Day{Start: "08:30", Finish: "17:00", Break: timecalc.Break{Minutes: 75}})
	if !errors.Is(err, timecalc.ErrInvalidBreak) {
		t.Errorf("break minutes 75: error = %v, want ErrInvalidBreak", err)
	}

	_, err = timecalc.DayMinutes(timecalc.Day{Start: "08:30", Finish: "17:00", Break: timecalc.Break{Hours: -1}})
	if !errors.Is(err, timecalc.ErrInvalidBreak) {
		t.Errorf("negative break: error = %v, want ErrInvalidBreak", err)
	}

	// A blank day ignores the break entirely.
	if _, err := timecalc.DayMinutes(timecalc.Day{Break: timecalc.Break{Minutes: 75}}); err != nil {
		t.Errorf("blank day with bad break: unexpected error %v", err)
	}
}

func TestScenarioDefaultWeekday(t *testing.T) {
	got, err := timecalc.DayTotal(timecalc.Day{Start: "08:30", Finish: "17:00", Break: timecalc.Break{Minutes: 30}})
	if err != nil {
		t.Fatalf("DayTotal: %v", err)
	}
	if got != "8:00" {
		t.Errorf("DayTotal = %q, want %q", got, "8:00")
	}
}

func TestScenarioDegenerateDay(t *testing.T) {
	got, err := timecalc.DayTotal(timecalc.Day{Start: "08:00", Finish: "08:00"})
	if err != nil {
		t.Fatalf("DayTotal: %v", err)
	}
	if got != "0:00" {
		t.Errorf("DayTotal = %q, want %q", got, "0:00")
	}
}
