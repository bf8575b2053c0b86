package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/timecalc"
)

// Timesheet is one user's saved week. WeeklyTotal is a cache of the day
// totals and is rewritten on every save.
type Timesheet struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID      snowflake.ID `gorm:"column:user_id;not null;uniqueIndex:ux_timesheets_user_week" json:"userId"`
	WeekStart   time.Time    `gorm:"column:week_start;not null;uniqueIndex:ux_timesheets_user_week" json:"weekStart"`
	WeeklyTotal string       `gorm:"column:weekly_total;type:text;not null;default:'0:00'" json:"weeklyTotal"`
	CreatedAt   time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updatedAt"`
}

func (Timesheet) TableName() string { return "timesheets" }

type DayEntry struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	TimesheetID  snowflake.ID `gorm:"column:timesheet_id;not null;uniqueIndex:ux_day_entries_timesheet_day"`
	DayName      string       `gorm:"column:day_name;type:text;not null;uniqueIndex:ux_day_entries_timesheet_day"`
	Date         string       `gorm:"column:date;type:text;not null"`
	StartTime    string       `gorm:"column:start_time;type:text"`
	FinishTime   string       `gorm:"column:finish_time;type:text"`
	BreakHours   int          `gorm:"column:break_hours;not null;default:0"`
	BreakMinutes int          `gorm:"column:break_minutes;not null;default:0"`
	TotalHours   string       `gorm:"column:total_hours;type:text;not null;default:'0:00'"`
	CreatedAt    time.Time    `gorm:"not null"`
}

func (DayEntry) TableName() string { return "day_entries" }

// Record is a saved week with its derived totals recomputed.
type Record struct {
	ID        snowflake.ID
	Week      timecalc.Week
	UpdatedAt time.Time
}

// ToWeek rebuilds a week from stored rows. Days without a row keep their
// calendar date and no hours.
func ToWeek(ts Timesheet, entries []DayEntry) (timecalc.Week, error) {
	week := timecalc.Week{WeekStart: ts.WeekStart.UTC()}
	for i, name := range timecalc.DayNames {
		week.Days[i] = timecalc.Day{
			Name: name,
			Date: week.WeekStart.AddDate(0, 0, i).Format(timecalc.KeyLayout),
		}
	}
	for _, e := range entries {
		for i, name := range timecalc.DayNames {
			if e.DayName != name {
				continue
			}
			week.Days[i] = timecalc.Day{
				Name:   name,
				Date:   e.Date,
				Start:  e.StartTime,
				Finish: e.FinishTime,
				Break:  timecalc.Break{Hours: e.BreakHours, Minutes: e.BreakMinutes},
				Total:  e.TotalHours,
			}
		}
	}
	return timecalc.Recompute(week)
}
