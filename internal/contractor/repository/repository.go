package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/contractor/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Settings, error) {
	var settings domain.Settings
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, contractor_name, abn, bank_bsb, bank_account,
		        address_line1, address_line2, city, state, postcode, created_at, updated_at
		 FROM contractor_settings WHERE user_id = ?`,
		userID,
	).Scan(&settings).Error
	if err != nil {
		return nil, err
	}
	if settings.ID == 0 {
		return nil, nil
	}
	return &settings, nil
}

// Upsert inserts the row or overwrites every editable column of the user's
// existing row. The existing id and created_at are kept.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, settings *domain.Settings) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"contractor_name",
			"abn",
			"bank_bsb",
			"bank_account",
			"address_line1",
			"address_line2",
			"city",
			"state",
			"postcode",
			"updated_at",
		}),
	}).Create(settings).Error
}
