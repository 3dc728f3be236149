package auth

import "errors"

var (
	ErrInvalidCredentials       = errors.New("invalid username or API key")
	ErrInvalidToken             = errors.New("invalid or expired token")
	ErrSupervisorAccessRequired = errors.New("supervisor access required")
	ErrAdminKeyNotConfigured    = errors.New("admin API key is not configured")
)
