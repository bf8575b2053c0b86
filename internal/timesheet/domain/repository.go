package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByUserWeek(ctx context.Context, db *gorm.DB, userID snowflake.ID, weekStart time.Time) (*Timesheet, error)
	Insert(ctx context.Context, db *gorm.DB, ts *Timesheet) error
	UpdateTotal(ctx context.Context, db *gorm.DB, id snowflake.ID, weeklyTotal string, updatedAt time.Time) error
	ListEntries(ctx context.Context, db *gorm.DB, timesheetID snowflake.ID) ([]DayEntry, error)
	DeleteEntries(ctx context.Context, db *gorm.DB, timesheetID snowflake.ID) error
	InsertEntries(ctx context.Context, db *gorm.DB, entries []DayEntry) error
	CountByUser(ctx context.Context, db *gorm.DB, userIDs []snowflake.ID) (map[snowflake.ID]int64, error)
}
