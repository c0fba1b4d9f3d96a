// Package errors provides custom error types for the CityGate API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication errors. InvalidCredentials is deliberately shared
// between unknown-email and wrong-password failures so callers cannot
// enumerate registered accounts.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is locked; verify MFA to unlock", StatusCode: http.StatusLocked}
	ErrTooManyRequests    = &AppError{Code: "TOO_MANY_REQUESTS", Message: "Too many login attempts, slow down", StatusCode: http.StatusTooManyRequests}
)

// MFA errors.
var (
	ErrMfaRequired      = &AppError{Code: "MFA_REQUIRED", Message: "An MFA token is required for this account", StatusCode: http.StatusUnauthorized}
	ErrMfaNotConfigured = &AppError{Code: "MFA_NOT_CONFIGURED", Message: "MFA is enabled but no enrollment exists", StatusCode: http.StatusConflict}
	ErrInvalidMfaToken  = &AppError{Code: "INVALID_MFA_TOKEN", Message: "Invalid MFA token", StatusCode: http.StatusUnauthorized}
	ErrNewIPRequiresMfa = &AppError{Code: "NEW_IP_REQUIRES_MFA", Message: "Login from an unrecognized IP requires MFA verification", StatusCode: http.StatusForbidden}
)

// Token and session errors.
var (
	ErrInvalidRefreshToken = &AppError{Code: "INVALID_REFRESH_TOKEN", Message: "Refresh token is invalid, expired, or revoked", StatusCode: http.StatusUnauthorized}
	ErrSessionNotFound     = &AppError{Code: "SESSION_NOT_FOUND", Message: "Session not found", StatusCode: http.StatusNotFound}
)

// Password recovery errors.
var (
	ErrInvalidResetCode = &AppError{Code: "INVALID_RESET_CODE", Message: "Reset code is invalid or expired", StatusCode: http.StatusUnauthorized}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)
