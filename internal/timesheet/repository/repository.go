package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/timesheet/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByUserWeek(ctx context.Context, db *gorm.DB, userID snowflake.ID, weekStart time.Time) (*domain.Timesheet, error) {
	var ts domain.Timesheet
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, week_start, weekly_total, created_at, updated_at
		 FROM timesheets WHERE user_id = ? AND week_start = ?`,
		userID,
		weekStart,
	).Scan(&ts).Error
	if err != nil {
		return nil, err
	}
	if ts.ID == 0 {
		return nil, nil
	}
	return &ts, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, ts *domain.Timesheet) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO timesheets (id, user_id, week_start, weekly_total, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ts.ID,
		ts.UserID,
		ts.WeekStart,
		ts.WeeklyTotal,
		ts.CreatedAt,
		ts.UpdatedAt,
	).Error
}

func (r *repo) UpdateTotal(ctx context.Context, db *gorm.DB, id snowflake.ID, weeklyTotal string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE timesheets SET weekly_total = ?, updated_at = ? WHERE id = ?`,
		weeklyTotal,
		updatedAt,
		id,
	).Error
}

func (r *repo) ListEntries(ctx context.Context, db *gorm.DB, timesheetID snowflake.ID) ([]domain.DayEntry, error) {
	var entries []domain.DayEntry
	err := db.WithContext(ctx).
		Where("timesheet_id = ?", timesheetID).
		Order("date asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) DeleteEntries(ctx context.Context, db *gorm.DB, timesheetID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM day_entries WHERE timesheet_id = ?`,
		timesheetID,
	).Error
}

func (r *repo) InsertEntries(ctx context.Context, db *gorm.DB, entries []domain.DayEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&entries).Error
}

func (r *repo) CountByUser(ctx context.Context, db *gorm.DB, userIDs []snowflake.ID) (map[snowflake.ID]int64, error) {
	counts := make(map[snowflake.ID]int64, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		UserID snowflake.ID `gorm:"column:user_id"`
		Total  int64        `gorm:"column:total"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, COUNT(*) AS total
		 FROM timesheets WHERE user_id IN ?
		 GROUP BY user_id`,
		userIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.UserID] = row.Total
	}
	return counts, nil
}
