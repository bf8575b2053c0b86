package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/clock"
	"github.com/smallbiznis/timesheet/internal/config"
	obsmetrics "github.com/smallbiznis/timesheet/internal/observability/metrics"
	"github.com/smallbiznis/timesheet/internal/ratelimit"
	"github.com/smallbiznis/timesheet/internal/timecalc"
	"github.com/smallbiznis/timesheet/internal/timesheet/domain"
	"github.com/smallbiznis/timesheet/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const saveAttempts = 2

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Schedule *config.ScheduleConfigHolder
	Clock    clock.Clock
	Limiter  *ratelimit.Limiter  `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	schedule *config.ScheduleConfigHolder
	clock    clock.Clock
	limiter  *ratelimit.Limiter
	metrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	schedule := p.Schedule
	if schedule == nil {
		schedule = config.NewStaticScheduleConfigHolder(config.DefaultScheduleConfig())
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("timesheet.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		schedule: schedule,
		clock:    c,
		limiter:  p.Limiter,
		metrics:  p.Metrics,
	}
}

// NewWeek seeds a week from the schedule config without touching storage.
func (s *Service) NewWeek(_ context.Context, date string) (timecalc.Week, error) {
	weekStart := timecalc.StartOfWeek(s.clock.Now().UTC())
	if strings.TrimSpace(date) != "" {
		parsed, err := timecalc.ParseWeekKey(strings.TrimSpace(date))
		if err != nil {
			return timecalc.Week{}, err
		}
		weekStart = parsed
	}
	return timecalc.InitializeWeekWithSchedule(weekStart, scheduleFrom(s.schedule.Get()))
}

func (s *Service) Get(ctx context.Context, userID snowflake.ID, weekStart string) (*domain.Record, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	start, err := timecalc.ParseWeekKey(strings.TrimSpace(weekStart))
	if err != nil {
		return nil, err
	}

	ts, err := s.repo.FindByUserWeek(ctx, s.db, userID, start)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, domain.ErrNotFound
	}
	return s.load(ctx, s.db, ts)
}

func (s *Service) FindWeek(ctx context.Context, userID snowflake.ID, weekStart time.Time) (*timecalc.Week, error) {
	ts, err := s.repo.FindByUserWeek(ctx, s.db, userID, timecalc.StartOfWeek(weekStart.UTC()))
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, nil
	}
	record, err := s.load(ctx, s.db, ts)
	if err != nil {
		return nil, err
	}
	return &record.Week, nil
}

func (s *Service) load(ctx context.Context, tx *gorm.DB, ts *domain.Timesheet) (*domain.Record, error) {
	entries, err := s.repo.ListEntries(ctx, tx, ts.ID)
	if err != nil {
		return nil, err
	}
	week, err := domain.ToWeek(*ts, entries)
	if err != nil {
		// A malformed stored day counts as 0:00 and the rest of the week is
		// still recomputed.
		s.log.Warn("stored timesheet failed to recompute",
			zap.String("timesheet_id", ts.ID.String()),
			zap.Error(err),
		)
	}
	return &domain.Record{ID: ts.ID, Week: week, UpdatedAt: ts.UpdatedAt}, nil
}

// Save replaces the whole week for the user. Client supplied totals are
// ignored and recomputed from start, finish and break.
func (s *Service) Save(ctx context.Context, req domain.SaveRequest) (*domain.Record, error) {
	record, err := s.save(ctx, req)
	if s.metrics != nil {
		outcome, minutes := "failed", 0
		if err == nil {
			outcome = "saved"
			minutes, _ = timecalc.TotalMinutes(record.Week)
		}
		s.metrics.RecordTimesheetSave(ctx, outcome, minutes)
	}
	return record, err
}

func (s *Service) save(ctx context.Context, req domain.SaveRequest) (*domain.Record, error) {
	if req.UserID == 0 {
		return nil, domain.ErrInvalidUser
	}
	weekStart, err := timecalc.ParseWeekKey(strings.TrimSpace(req.WeekStart))
	if err != nil {
		return nil, err
	}
	week, err := buildWeek(weekStart, req.Days)
	if err != nil {
		return nil, err
	}

	weekKey := week.Key()
	lockToken, ok, err := s.limiter.LockWeek(ctx, req.UserID.String(), weekKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSaveInFlight
	}
	defer func() {
		if err := s.limiter.UnlockWeek(ctx, req.UserID.String(), weekKey, lockToken); err != nil {
			s.log.Warn("week lock release failed", zap.String("week_start", weekKey), zap.Error(err))
		}
	}()

	var record *domain.Record
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		record, err = s.replaceWeek(ctx, req.UserID, week)
		if err == nil || !db.IsDuplicateKeyErr(err) {
			break
		}
		// A concurrent first save created the row; retry as an update.
		s.log.Info("timesheet insert raced, retrying", zap.String("week_start", weekKey), zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("timesheet saved",
		zap.String("timesheet_id", record.ID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.String("week_start", weekKey),
		zap.String("weekly_total", week.WeeklyTotal),
	)
	return record, nil
}

func (s *Service) replaceWeek(ctx context.Context, userID snowflake.ID, week timecalc.Week) (*domain.Record, error) {
	now := s.clock.Now().UTC()
	var record *domain.Record

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ts, err := s.repo.FindByUserWeek(ctx, tx, userID, week.WeekStart)
		if err != nil {
			return err
		}
		if ts == nil {
			ts = &domain.Timesheet{
				ID:          s.genID.Generate(),
				UserID:      userID,
				WeekStart:   week.WeekStart,
				WeeklyTotal: week.WeeklyTotal,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.repo.Insert(ctx, tx, ts); err != nil {
				return err
			}
		} else {
			if err := s.repo.UpdateTotal(ctx, tx, ts.ID, week.WeeklyTotal, now); err != nil {
				return err
			}
			ts.WeeklyTotal = week.WeeklyTotal
			ts.UpdatedAt = now
		}

		if err := s.repo.DeleteEntries(ctx, tx, ts.ID); err != nil {
			return err
		}
		entries := make([]domain.DayEntry, 0, timecalc.DaysPerWeek)
		for _, day := range week.Days {
			entries = append(entries, domain.DayEntry{
				ID:           s.genID.Generate(),
				TimesheetID:  ts.ID,
				DayName:      day.Name,
				Date:         day.Date,
				StartTime:    strings.TrimSpace(day.Start),
				FinishTime:   strings.TrimSpace(day.Finish),
				BreakHours:   day.Break.Hours,
				BreakMinutes: day.Break.Minutes,
				TotalHours:   day.Total,
				CreatedAt:    now,
			})
		}
		if err := s.repo.InsertEntries(ctx, tx, entries); err != nil {
			return err
		}

		record = &domain.Record{ID: ts.ID, Week: week, UpdatedAt: ts.UpdatedAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func buildWeek(weekStart time.Time, days map[string]domain.DayInput) (timecalc.Week, error) {
	if days == nil {
		return timecalc.Week{}, domain.ErrInvalidDays
	}
	for name := range days {
		if !isDayName(name) {
			return timecalc.Week{}, fmt.Errorf("%w: %q", domain.ErrInvalidDay, name)
		}
	}

	week := timecalc.Week{WeekStart: weekStart}
	for i, name := range timecalc.DayNames {
		in := days[name]
		date := strings.TrimSpace(in.Date)
		if date == "" {
			date = weekStart.AddDate(0, 0, i).Format(timecalc.KeyLayout)
		} else if _, err := time.Parse(timecalc.KeyLayout, date); err != nil {
			return timecalc.Week{}, fmt.Errorf("%s: %w", name, domain.ErrInvalidDate)
		}
		// Blank days skip the break check in DayMinutes, so validate here.
		brk := timecalc.Break{Hours: in.BreakHours, Minutes: in.BreakMinutes}
		if err := brk.Validate(); err != nil {
			return timecalc.Week{}, fmt.Errorf("%s: %w", name, err)
		}
		week.Days[i] = timecalc.Day{
			Name:   name,
			Date:   date,
			Start:  strings.TrimSpace(in.Start),
			Finish: strings.TrimSpace(in.Finish),
			Break:  brk,
		}
	}
	return timecalc.Recompute(week)
}

func isDayName(name string) bool {
	for _, n := range timecalc.DayNames {
		if n == name {
			return true
		}
	}
	return false
}

func scheduleFrom(cfg config.ScheduleConfig) timecalc.Schedule {
	breakMinutes := cfg.DefaultBreakMinutes
	if breakMinutes < 0 {
		breakMinutes = 0
	}
	return timecalc.Schedule{
		Start:       cfg.DefaultStart,
		Finish:      cfg.DefaultFinish,
		Break:       timecalc.Break{Hours: breakMinutes / timecalc.MinutesPerHour, Minutes: breakMinutes % timecalc.MinutesPerHour},
		WorkingDays: cfg.Weekdays,
	}
}

// IsValidationError reports whether err stems from bad client input.
func IsValidationError(err error) bool {
	return errors.Is(err, timecalc.ErrInvalidFormat) ||
		errors.Is(err, timecalc.ErrInvalidBreak) ||
		errors.Is(err, timecalc.ErrInvalidWeekStart) ||
		errors.Is(err, domain.ErrInvalidDays) ||
		errors.Is(err, domain.ErrInvalidDay) ||
		errors.Is(err, domain.ErrInvalidDate) ||
		errors.Is(err, domain.ErrInvalidUser)
}
