package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/auth/domain"
	"gorm.io/gorm"
)

type users struct {
	db *gorm.DB
}

func (r *users) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail matches case-insensitively; emails are stored lowercased.
func (r *users) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email)))
	return first[domain.User](q, domain.ErrUserNotFound)
}

func (r *users) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return first[domain.User](r.db.WithContext(ctx).Where("id = ?", id), domain.ErrUserNotFound)
}

func (r *users) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	return exactlyOne(tx, domain.ErrUserNotFound)
}
