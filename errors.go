package tokenauth

import "errors"

// Error codes carried by [AuthError]. They double as the machine-readable
// codes returned by the HTTP adapter.
const (
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeRevokedRefreshToken = "REVOKED_REFRESH_TOKEN"
	CodeInvalidToken        = "INVALID_TOKEN"
)

// AuthError is an expected authentication failure. It never wraps a backend
// error; unexpected failures are returned as ordinary wrapped errors.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// Is matches any *AuthError with the same Code.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Code == e.Code
}

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = &AuthError{Code: CodeInvalidCredentials, Message: "Invalid email or password"}
	// ErrInvalidRefreshToken is returned when a refresh token fails signature or expiry checks.
	ErrInvalidRefreshToken = &AuthError{Code: CodeInvalidRefreshToken, Message: "Invalid or expired refresh token"}
	// ErrRevokedRefreshToken is returned when a well-formed refresh token is not a live session.
	ErrRevokedRefreshToken = &AuthError{Code: CodeRevokedRefreshToken, Message: "Refresh token has been revoked"}
	// ErrInvalidAccessToken is returned by [Engine.VerifyAccess].
	ErrInvalidAccessToken = &AuthError{Code: CodeInvalidToken, Message: "Invalid or expired token"}

	ErrEngineNotReady = errors.New("engine not initialized")
)

// IsAuthFailure reports whether err is an expected authentication failure
// rather than an unexpected (internal) one.
func IsAuthFailure(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
