package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/smallbiznis/timesheet/internal/invoicetemplate/domain"
	"gorm.io/gorm"
)

const templateColumns = `id, user_id, template_name, client_name, day_rate, gst_percentage, is_active,
	custom_contractor_name, custom_abn, custom_bank_bsb, custom_bank_account, custom_address,
	created_at, updated_at`

type repo struct{}

func Provide() templatedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tmpl *templatedomain.Template) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoice_templates (`+templateColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tmpl.ID,
		tmpl.UserID,
		tmpl.TemplateName,
		tmpl.ClientName,
		tmpl.DayRate,
		tmpl.GSTPercentage,
		tmpl.IsActive,
		tmpl.CustomContractorName,
		tmpl.CustomABN,
		tmpl.CustomBankBSB,
		tmpl.CustomBankAccount,
		tmpl.CustomAddress,
		tmpl.CreatedAt,
		tmpl.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, tmpl *templatedomain.Template) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoice_templates
		 SET template_name = ?, client_name = ?, day_rate = ?, gst_percentage = ?, is_active = ?,
		     custom_contractor_name = ?, custom_abn = ?, custom_bank_bsb = ?, custom_bank_account = ?,
		     custom_address = ?, updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		tmpl.TemplateName,
		tmpl.ClientName,
		tmpl.DayRate,
		tmpl.GSTPercentage,
		tmpl.IsActive,
		tmpl.CustomContractorName,
		tmpl.CustomABN,
		tmpl.CustomBankBSB,
		tmpl.CustomBankAccount,
		tmpl.CustomAddress,
		tmpl.UpdatedAt,
		tmpl.UserID,
		tmpl.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*templatedomain.Template, error) {
	var tmpl templatedomain.Template
	err := db.WithContext(ctx).Raw(
		`SELECT `+templateColumns+`
		 FROM invoice_templates
		 WHERE user_id = ? AND id = ?`,
		userID,
		id,
	).Scan(&tmpl).Error
	if err != nil {
		return nil, err
	}
	if tmpl.ID == 0 {
		return nil, nil
	}
	return &tmpl, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]templatedomain.Template, error) {
	var items []templatedomain.Template
	err := db.WithContext(ctx).Raw(
		`SELECT `+templateColumns+`
		 FROM invoice_templates
		 WHERE user_id = ? AND is_active = ?
		 ORDER BY template_name ASC`,
		userID,
		true,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM invoice_templates WHERE user_id = ? AND id = ?`,
		userID,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) DefaultID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (snowflake.ID, error) {
	var row struct {
		DefaultTemplateID *int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT default_template_id FROM users WHERE id = ?`,
		userID,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.DefaultTemplateID == nil {
		return 0, nil
	}
	return snowflake.ID(*row.DefaultTemplateID), nil
}

func (r *repo) SetDefault(ctx context.Context, db *gorm.DB, userID, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET default_template_id = ?, updated_at = ? WHERE id = ?`,
		id,
		at,
		userID,
	).Error
}

// ClearDefault unsets the default only while it still points at id.
func (r *repo) ClearDefault(ctx context.Context, db *gorm.DB, userID, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET default_template_id = NULL, updated_at = ?
		 WHERE id = ? AND default_template_id = ?`,
		at,
		userID,
		id,
	).Error
}
