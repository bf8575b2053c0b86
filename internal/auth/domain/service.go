package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	SignIn(ctx context.Context, req SignInRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, *User, error)
	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
	RevokeUserSessions(ctx context.Context, userID snowflake.ID) error
	PurgeSessions(ctx context.Context, retention time.Duration) (int64, error)
}

type SignInRequest struct {
	Identity  Identity
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	User      *User
	Created   bool
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}
