package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the submitted password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRateLimited is returned when a client exceeded its attempt budget.
	ErrRateLimited = errors.New("too many attempts")

	// ErrUnauthorized is returned for a missing, expired or invalid session.
	// Every privileged route maps it to HTTP 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConfigurationMissing is returned when the admin secret or the signing
	// key is not configured. It is never recovered from: the operation aborts
	// with a 500 rather than running with authentication disabled.
	ErrConfigurationMissing = errors.New("authentication is not configured")
)
