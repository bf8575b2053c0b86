package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Repository stores users. Lookups return ErrUserNotFound on a miss.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
}

// SessionRepository stores sessions keyed by the sha256 of the raw token.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	UpdateLastSeen(ctx context.Context, sessionID snowflake.ID, lastSeen time.Time) error
	RevokeSession(ctx context.Context, sessionID snowflake.ID, revokedAt time.Time) error
	// RevokeUserSessions reports how many live sessions were revoked.
	RevokeUserSessions(ctx context.Context, userID snowflake.ID, revokedAt time.Time) (int64, error)
	PurgeSessions(ctx context.Context, before time.Time) (int64, error)
}
