package domain

import "errors"

var (
	ErrMissingTemplate = errors.New("missing_template")
	ErrMissingSettings = errors.New("missing_settings")
	ErrInvalidTemplate = errors.New("invalid_template_id")
	ErrInvalidUser     = errors.New("invalid_user")
)
