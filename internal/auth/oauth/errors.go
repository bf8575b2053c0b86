package oauth

import "errors"

var (
	ErrNotConfigured  = errors.New("oauth provider not configured")
	ErrInvalidRequest = errors.New("invalid oauth request")
	ErrUnauthorized   = errors.New("oauth exchange rejected")
)
