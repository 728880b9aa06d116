package errors

import (
	"errors"
	"fmt"
)

var (
	// Generic errors.
	ErrInternal       = errors.New("internal server error")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("resource not found")
	ErrDuplicateValue = errors.New("resource already exists")
	ErrForbidden      = errors.New("access denied")

	// Authentication errors. All of these surface to clients as the same
	// generic 401 so that callers cannot distinguish causes.
	ErrAuthentication     = errors.New("authentication failed")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrTokenTypeMismatch  = errors.New("unexpected token type")
	ErrOAuthStateNotFound = errors.New("oauth state not found or expired")
	ErrOAuthExchange      = errors.New("oauth code exchange failed")
	ErrProviderUserInfo   = errors.New("failed to fetch user info from provider")

	// User errors.
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailExists      = errors.New("email already in use")
	ErrUserInactive     = errors.New("user account is deactivated")
	ErrLastProviderLink = errors.New("cannot disconnect the only linked provider")

	// Provider configuration errors.
	ErrOAuthProviderNotFound = errors.New("oauth provider not configured")
)

// AppError carries an error with the HTTP status and API code it maps to.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

// IsNotFound reports whether err is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsUnauthorized reports whether err must surface as a 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrAuthentication) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrTokenTypeMismatch) ||
		errors.Is(err, ErrOAuthStateNotFound) ||
		errors.Is(err, ErrOAuthExchange) ||
		errors.Is(err, ErrProviderUserInfo) ||
		errors.Is(err, ErrUserInactive)
}

// IsConflict reports whether err is a uniqueness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateValue) ||
		errors.Is(err, ErrEmailExists) ||
		errors.Is(err, ErrLastProviderLink)
}
