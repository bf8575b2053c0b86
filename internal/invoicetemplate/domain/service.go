package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tmpl *Template) error
	Update(ctx context.Context, db *gorm.DB, tmpl *Template) error
	FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*Template, error)
	ListActive(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Template, error)
	Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error)

	// DefaultID returns 0 when the user has no default template.
	DefaultID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (snowflake.ID, error)
	SetDefault(ctx context.Context, db *gorm.DB, userID, id snowflake.ID, at time.Time) error
	ClearDefault(ctx context.Context, db *gorm.DB, userID, id snowflake.ID, at time.Time) error
}

type CreateRequest struct {
	UserID               snowflake.ID
	TemplateName         string
	ClientName           string
	DayRate              float64
	GSTPercentage        *float64
	IsActive             *bool
	IsDefault            bool
	CustomContractorName string
	CustomABN            string
	CustomBankBSB        string
	CustomBankAccount    string
	CustomAddress        string
}

// UpdateRequest changes only the fields that are set.
type UpdateRequest struct {
	UserID               snowflake.ID
	ID                   string
	TemplateName         *string
	ClientName           *string
	DayRate              *float64
	GSTPercentage        *float64
	ClearGST             bool
	IsActive             *bool
	IsDefault            *bool
	CustomContractorName *string
	CustomABN            *string
	CustomBankBSB        *string
	CustomBankAccount    *string
	CustomAddress        *string
}

type Response struct {
	ID                   string    `json:"id"`
	TemplateName         string    `json:"templateName"`
	ClientName           string    `json:"clientName"`
	DayRate              float64   `json:"dayRate"`
	GSTPercentage        *float64  `json:"gstPercentage"`
	IsDefault            bool      `json:"isDefault"`
	IsActive             bool      `json:"isActive"`
	CustomContractorName string    `json:"customContractorName"`
	CustomABN            string    `json:"customAbn"`
	CustomBankBSB        string    `json:"customBankBsb"`
	CustomBankAccount    string    `json:"customBankAccount"`
	CustomAddress        string    `json:"customAddress"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	// List returns the user's active templates, default first then by name.
	List(ctx context.Context, userID snowflake.ID) ([]Response, error)
	Get(ctx context.Context, userID snowflake.ID, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, userID snowflake.ID, id string) error
	SetDefault(ctx context.Context, userID snowflake.ID, id string) (*Response, error)

	// Active returns the raw active templates together with the default id.
	Active(ctx context.Context, userID snowflake.ID) ([]Template, snowflake.ID, error)
}

var (
	ErrInvalidUser          = errors.New("invalid_user")
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidTemplateName  = errors.New("invalid_template_name")
	ErrInvalidClientName    = errors.New("invalid_client_name")
	ErrInvalidDayRate       = errors.New("invalid_day_rate")
	ErrInvalidGSTPercentage = errors.New("invalid_gst_percentage")
	ErrNotFound             = errors.New("not_found")
)

func ParseID(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidID
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
