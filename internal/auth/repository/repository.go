package repository

import (
	"errors"

	"github.com/smallbiznis/timesheet/internal/auth/domain"
	"gorm.io/gorm"
)

// New returns the gorm backed user and session stores sharing one handle.
func New(db *gorm.DB) (domain.Repository, domain.SessionRepository) {
	return &users{db: db}, &sessions{db: db}
}

// first loads a single row, mapping a miss to notFound.
func first[T any](q *gorm.DB, notFound error) (*T, error) {
	var row T
	err := q.First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, notFound
	case err != nil:
		return nil, err
	}
	return &row, nil
}

// exactlyOne turns a write that matched nothing into notFound.
func exactlyOne(tx *gorm.DB, notFound error) error {
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return notFound
	}
	return nil
}
