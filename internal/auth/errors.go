package auth

import "errors"

// Authentication failures. The internal cause is distinguished for logging
// and metrics, but every one of these surfaces to the caller as the same
// 401-equivalent response so the API does not leak which check failed.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked or expired server-side")
	ErrUserInactive       = errors.New("user account inactive")
	ErrMFAInvalid         = errors.New("mfa code invalid")

	// ErrStoreUnavailable means the revocation store could not be reached.
	// Auth fails closed: verification is denied rather than trusting a
	// signature we cannot check against the revocation list.
	ErrStoreUnavailable = errors.New("auth store unavailable")
)

// Authorization failures surface as 403-equivalent responses.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrRoleRequired     = errors.New("required role missing")
)

// IsAuthenticationError reports whether err belongs to the 401 class.
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrUserInactive) ||
		errors.Is(err, ErrMFAInvalid) ||
		errors.Is(err, ErrStoreUnavailable)
}

// IsAuthorizationError reports whether err belongs to the 403 class.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrRoleRequired)
}
