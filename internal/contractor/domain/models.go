package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Settings holds the contractor identity, bank and postal details printed on
// every invoice. There is at most one row per user.
type Settings struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID         snowflake.ID `gorm:"not null;uniqueIndex" json:"userId"`
	ContractorName string       `gorm:"column:contractor_name" json:"contractorName"`
	ABN            string       `gorm:"column:abn" json:"abn"`
	BankBSB        string       `gorm:"column:bank_bsb" json:"bankBsb"`
	BankAccount    string       `gorm:"column:bank_account" json:"bankAccount"`
	AddressLine1   string       `gorm:"column:address_line1" json:"addressLine1"`
	AddressLine2   string       `gorm:"column:address_line2" json:"addressLine2"`
	City           string       `gorm:"column:city" json:"city"`
	State          string       `gorm:"column:state" json:"state"`
	Postcode       string       `gorm:"column:postcode" json:"postcode"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

func (Settings) TableName() string { return "contractor_settings" }

// Address joins the postal fields as "line1[, line2] city state postcode".
func (s Settings) Address() string {
	line := strings.TrimSpace(s.AddressLine1)
	if line2 := strings.TrimSpace(s.AddressLine2); line2 != "" {
		line += ", " + line2
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{line, s.City, s.State, s.Postcode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
