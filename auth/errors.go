package auth

import "errors"

// Sentinel errors returned by KeyRing.Verify.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrKeyExpired         = errors.New("auth: key expired")
)
