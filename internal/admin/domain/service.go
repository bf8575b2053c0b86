package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/timesheet/internal/auth/domain"
	"gorm.io/gorm"
)

// UserSummary is one row of the admin user listing.
type UserSummary struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	Role           authdomain.Role   `json:"role"`
	Status         authdomain.Status `json:"status"`
	TimesheetCount int64             `json:"timesheetCount"`
	LastLoginAt    *time.Time        `json:"lastLoginAt"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// UpdateRequest changes a user's role and/or status. Empty values are left
// untouched.
type UpdateRequest struct {
	ActorID snowflake.ID
	UserID  string
	Role    string
	Status  string
}

type Repository interface {
	ListUsers(ctx context.Context, db *gorm.DB) ([]authdomain.User, error)
}

type Service interface {
	// ListUsers returns every user, newest first, with timesheet counts.
	ListUsers(ctx context.Context) ([]UserSummary, error)
	UpdateUser(ctx context.Context, req UpdateRequest) (*UserSummary, error)
	// Promote makes an existing user an active admin.
	Promote(ctx context.Context, email string) (*UserSummary, error)
}

var (
	ErrInvalidUserID = errors.New("invalid_user_id")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrInvalidEmail  = errors.New("invalid_email")
)
