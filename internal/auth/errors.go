package auth

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrHashing            = errors.New("password hashing failed")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrPasswordTooLong    = errors.New("password exceeds maximum length of 72 bytes")
)

// ValidationError reports the first input field that failed validation.
type ValidationError struct {
	Field   string // form field name, e.g. "email"
	Tag     string // failed rule, e.g. "required"
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%q %s", e.Field, e.Message)
}

// UserMessage converts a Signup/Login error into the text shown on the form.
// ok is false for internal errors, which must not be shown to the user.
func UserMessage(err error) (msg string, ok bool) {
	var (
		verr  *ValidationError
		rlerr *RateLimitError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Error(), true
	case errors.As(err, &rlerr):
		return "Too many login attempts. Please try again later.", true
	case errors.Is(err, ErrDuplicateEmail):
		return "Email already registered", true
	case errors.Is(err, ErrUserNotFound):
		return "User not found", true
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid password", true
	}
	return "", false
}
