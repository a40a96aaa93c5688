package auth

import "errors"

var (
	// identifier unknown or password mismatch
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user is inactive")
	// token subject no longer exists
	ErrUnknownUser = errors.New("user no longer exists")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")

	// logout without a configured denylist
	ErrRevocationDisabled = errors.New("token revocation is not configured")
)
