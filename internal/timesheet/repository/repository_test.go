package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/timesheet/domain"
	"github.com/smallbiznis/timesheet/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountByUser(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Timesheet{}, &domain.DayEntry{}))

	r := Provide()
	ctx := context.Background()
	now := time.Now().UTC()
	monday := time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC)

	rows := []domain.Timesheet{
		{ID: 1, UserID: 100, WeekStart: monday, WeeklyTotal: "0:00", CreatedAt: now, UpdatedAt: now},
		{ID: 2, UserID: 100, WeekStart: monday.AddDate(0, 0, 7), WeeklyTotal: "0:00", CreatedAt: now, UpdatedAt: now},
		{ID: 3, UserID: 200, WeekStart: monday, WeeklyTotal: "0:00", CreatedAt: now, UpdatedAt: now},
	}
	for i := range rows {
		require.NoError(t, r.Insert(ctx, conn, &rows[i]))
	}

	counts, err := r.CountByUser(ctx, conn, []snowflake.ID{100, 200, 300})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[100])
	assert.Equal(t, int64(1), counts[200])
	assert.Equal(t, int64(0), counts[300])

	err = r.Insert(ctx, conn, &domain.Timesheet{ID: 4, UserID: 100, WeekStart: monday, CreatedAt: now, UpdatedAt: now})
	assert.True(t, db.IsDuplicateKeyErr(err))
}
