package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/auth/domain"
	"gorm.io/gorm"
)

type sessions struct {
	db *gorm.DB
}

func (r *sessions) model(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&domain.Session{})
}

func (r *sessions) CreateSession(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessions) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	q := r.db.WithContext(ctx).Where("session_token_hash = ?", tokenHash)
	return first[domain.Session](q, domain.ErrSessionNotFound)
}

func (r *sessions) UpdateLastSeen(ctx context.Context, sessionID snowflake.ID, lastSeen time.Time) error {
	tx := r.model(ctx).Where("id = ?", sessionID).Update("last_seen_at", lastSeen)
	return exactlyOne(tx, domain.ErrSessionNotFound)
}

// RevokeSession keeps the first revocation time when called twice.
func (r *sessions) RevokeSession(ctx context.Context, sessionID snowflake.ID, revokedAt time.Time) error {
	tx := r.model(ctx).
		Where("id = ?", sessionID).
		Update("revoked_at", gorm.Expr("COALESCE(revoked_at, ?)", revokedAt))
	return exactlyOne(tx, domain.ErrSessionNotFound)
}

func (r *sessions) RevokeUserSessions(ctx context.Context, userID snowflake.ID, revokedAt time.Time) (int64, error) {
	tx := r.model(ctx).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", revokedAt)
	return tx.RowsAffected, tx.Error
}

// PurgeSessions deletes sessions that expired, or were revoked, before the
// cutoff.
func (r *sessions) PurgeSessions(ctx context.Context, before time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Or("revoked_at IS NOT NULL AND revoked_at < ?", before).
		Delete(&domain.Session{})
	return tx.RowsAffected, tx.Error
}
