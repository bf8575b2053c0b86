package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type UpsertRequest struct {
	UserID         snowflake.ID
	ContractorName string
	ABN            string
	BankBSB        string
	BankAccount    string
	AddressLine1   string
	AddressLine2   string
	City           string
	State          string
	Postcode       string
}

type Repository interface {
	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Settings, error)
	Upsert(ctx context.Context, db *gorm.DB, settings *Settings) error
}

type Service interface {
	// Get returns nil when the user has not saved settings yet.
	Get(ctx context.Context, userID snowflake.ID) (*Settings, error)
	Upsert(ctx context.Context, req UpsertRequest) (*Settings, error)
}

var (
	ErrInvalidUser        = errors.New("invalid_user")
	ErrInvalidABN         = errors.New("invalid_abn")
	ErrInvalidBankBSB     = errors.New("invalid_bank_bsb")
	ErrInvalidBankAccount = errors.New("invalid_bank_account")
	ErrInvalidPostcode    = errors.New("invalid_postcode")
)
