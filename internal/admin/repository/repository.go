package repository

import (
	"context"

	admindomain "github.com/smallbiznis/timesheet/internal/admin/domain"
	authdomain "github.com/smallbiznis/timesheet/internal/auth/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() admindomain.Repository {
	return &repo{}
}

func (r *repo) ListUsers(ctx context.Context, db *gorm.DB) ([]authdomain.User, error) {
	var users []authdomain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, external_id, provider, email, name, image, role, status,
		        default_template_id, last_login_at, created_at, updated_at
		 FROM users
		 ORDER BY created_at DESC, id DESC`,
	).Scan(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
