package domain

import "errors"

var (
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrUserNotFound     = errors.New("user not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExpired   = errors.New("session expired")
	ErrSessionRevoked   = errors.New("session revoked")
	ErrInvalidSession   = errors.New("invalid session")
	ErrAccountPending   = errors.New("account pending approval")
	ErrAccountInactive  = errors.New("account inactive")
	ErrEmailNotVerified = errors.New("email not verified")
)
