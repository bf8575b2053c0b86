package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/clock"
	"github.com/smallbiznis/timesheet/internal/config"
	"github.com/smallbiznis/timesheet/internal/timecalc"
	"github.com/smallbiznis/timesheet/internal/timesheet/domain"
	"github.com/smallbiznis/timesheet/internal/timesheet/repository"
	"github.com/smallbiznis/timesheet/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Timesheet{}, &domain.DayEntry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		Schedule: config.NewStaticScheduleConfigHolder(config.DefaultScheduleConfig()),
		Clock:    clock.NewFakeClock(time.Date(2025, 1, 29, 10, 0, 0, 0, time.UTC)),
	})
}

func standardDays() map[string]domain.DayInput {
	days := map[string]domain.DayInput{}
	for _, name := range []string{"mon", "tue", "wed", "thu", "fri"} {
		days[name] = domain.DayInput{Start: "08:30", Finish: "17:00", BreakMinutes: 30}
	}
	days["sat"] = domain.DayInput{}
	days["sun"] = domain.DayInput{}
	return days
}

func TestNewWeekUsesSchedule(t *testing.T) {
	svc := newTestService(t)

	week, err := svc.NewWeek(context.Background(), "2025-01-30")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-27", week.Key())
	assert.Equal(t, "40:00", week.WeeklyTotal)
	assert.Equal(t, "8:00", week.Days[0].Total)
	assert.Equal(t, "0:00", week.Days[6].Total)

	current, err := svc.NewWeek(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-27", current.Key())

	_, err = svc.NewWeek(context.Background(), "27/01/2025")
	assert.ErrorIs(t, err, timecalc.ErrInvalidWeekStart)
}

func TestSaveAndGetRecomputesTotals(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := snowflake.ID(7)

	saved, err := svc.Save(ctx, domain.SaveRequest{UserID: userID, WeekStart: "2025-01-27", Days: standardDays()})
	require.NoError(t, err)
	assert.Equal(t, "40:00", saved.Week.WeeklyTotal)
	assert.Equal(t, "2025-01-27", saved.Week.Days[0].Date)
	assert.Equal(t, "2025-02-02", saved.Week.Days[6].Date)

	got, err := svc.Get(ctx, userID, "2025-01-27")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "40:00", got.Week.WeeklyTotal)
	assert.Equal(t, "08:30", got.Week.Days[0].Start)
	assert.Equal(t, 30, got.Week.Days[0].Break.Minutes)
}

func TestSaveReplacesWholeWeek(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := snowflake.ID(8)

	first, err := svc.Save(ctx, domain.SaveRequest{UserID: userID, WeekStart: "2025-01-27", Days: standardDays()})
	require.NoError(t, err)

	second, err := svc.Save(ctx, domain.SaveRequest{
		UserID:    userID,
		WeekStart: "2025-01-27",
		Days: map[string]domain.DayInput{
			"mon": {Start: "09:00", Finish: "17:30", BreakHours: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "7:30", second.Week.WeeklyTotal)

	got, err := svc.Get(ctx, userID, "2025-01-27")
	require.NoError(t, err)
	assert.Equal(t, "7:30", got.Week.WeeklyTotal)
	assert.Equal(t, "", got.Week.Days[1].Start)
	assert.Equal(t, "0:00", got.Week.Days[1].Total)
}

func TestSaveSnapsWeekStartToMonday(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	saved, err := svc.Save(ctx, domain.SaveRequest{UserID: 9, WeekStart: "2025-01-29", Days: standardDays()})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-27", saved.Week.Key())

	week, err := svc.FindWeek(ctx, 9, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, week)
	assert.Equal(t, "40:00", week.WeeklyTotal)
}

func TestSaveRejectsInvalidInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.SaveRequest
		want error
	}{
		{"no user", domain.SaveRequest{WeekStart: "2025-01-27", Days: standardDays()}, domain.ErrInvalidUser},
		{"bad week", domain.SaveRequest{UserID: 1, WeekStart: "soon", Days: standardDays()}, timecalc.ErrInvalidWeekStart},
		{"no data", domain.SaveRequest{UserID: 1, WeekStart: "2025-01-27"}, domain.ErrInvalidDays},
		{"unknown day", domain.SaveRequest{UserID: 1, WeekStart: "2025-01-27", Days: map[string]domain.DayInput{"funday": {}}}, domain.ErrInvalidDay},
		{"bad time", domain.SaveRequest{UserID: 1, WeekStart: "2025-01-27", Days: map[string]domain.DayInput{"mon": {Start: "8.30", Finish: "17:00"}}}, timecalc.ErrInvalidFormat},
		{"bad break", domain.SaveRequest{UserID: 1, WeekStart: "2025-01-27", Days: map[string]domain.DayInput{"mon": {Start: "08:30", Finish: "17:00", BreakMinutes: 75}}}, timecalc.ErrInvalidBreak},
		{"negative break on blank day", domain.SaveRequest{UserID: 1, WeekStart: "2025-01-27", Days: map[string]domain.DayInput{"sat": {BreakHours: -1}}}, timecalc.ErrInvalidBreak},
		{"bad date", domain.SaveRequest{UserID: 1, WeekStart: "2025-01-27", Days: map[string]domain.DayInput{"mon": {Date: "Monday"}}}, domain.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Save(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestGetAndFindWeekMissing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, 10, "2025-01-27")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	week, err := svc.FindWeek(ctx, 10, time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, week)
}

func TestScheduleFrom(t *testing.T) {
	s := scheduleFrom(config.ScheduleConfig{DefaultStart: "07:00", DefaultFinish: "15:00", DefaultBreakMinutes: 90, Weekdays: 4})
	assert.Equal(t, timecalc.Break{Hours: 1, Minutes: 30}, s.Break)
	assert.Equal(t, 4, s.WorkingDays)
}
