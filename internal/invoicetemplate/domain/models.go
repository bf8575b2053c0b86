package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Template is a per-client billing profile. Custom* fields override the
// owner's contractor settings when non-empty. Whether a template is the
// owner's default lives on users.default_template_id.
type Template struct {
	ID                   snowflake.ID `gorm:"primaryKey"`
	UserID               snowflake.ID `gorm:"not null;index"`
	TemplateName         string       `gorm:"column:template_name;not null"`
	ClientName           string       `gorm:"column:client_name;not null"`
	DayRate              float64      `gorm:"column:day_rate;not null"`
	GSTPercentage        *float64     `gorm:"column:gst_percentage"`
	IsActive             bool         `gorm:"column:is_active;not null;default:true"`
	CustomContractorName string       `gorm:"column:custom_contractor_name"`
	CustomABN            string       `gorm:"column:custom_abn"`
	CustomBankBSB        string       `gorm:"column:custom_bank_bsb"`
	CustomBankAccount    string       `gorm:"column:custom_bank_account"`
	CustomAddress        string       `gorm:"column:custom_address"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (Template) TableName() string { return "invoice_templates" }

// GST returns the stored GST fraction, or fallback when none is stored.
func (t Template) GST(fallback float64) float64 {
	if t.GSTPercentage == nil {
		return fallback
	}
	return *t.GSTPercentage
}
