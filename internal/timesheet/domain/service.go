package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/timecalc"
)

type DayInput struct {
	Date         string
	Start        string
	Finish       string
	BreakHours   int
	BreakMinutes int
}

type SaveRequest struct {
	UserID    snowflake.ID
	WeekStart string
	Days      map[string]DayInput
}

type Service interface {
	// NewWeek returns a freshly initialized week containing date.
	NewWeek(ctx context.Context, date string) (timecalc.Week, error)
	Get(ctx context.Context, userID snowflake.ID, weekStart string) (*Record, error)
	// FindWeek returns nil when the user has no saved week.
	FindWeek(ctx context.Context, userID snowflake.ID, weekStart time.Time) (*timecalc.Week, error)
	Save(ctx context.Context, req SaveRequest) (*Record, error)
}

var (
	ErrNotFound     = errors.New("not_found")
	ErrInvalidUser  = errors.New("invalid_user")
	ErrInvalidDays  = errors.New("invalid_data")
	ErrInvalidDay   = errors.New("invalid_day")
	ErrInvalidDate  = errors.New("invalid_date")
	ErrSaveInFlight = errors.New("timesheet save in progress")
)
