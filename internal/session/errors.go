package session

import "errors"

// Client-side validation errors. They are advisory; the backend remains the
// authority on every rule.
var (
	ErrPasswordTooShort = errors.New("Password must be at least 8 characters long")
	ErrPasswordNoLower  = errors.New("Password must contain at least one lowercase letter")
	ErrPasswordNoUpper  = errors.New("Password must contain at least one uppercase letter")
	ErrPasswordNoDigit  = errors.New("Password must contain at least one number")
	ErrPasswordNoSymbol = errors.New("Password must contain at least one special character (@$!%*?&)")
	ErrPasswordMismatch = errors.New("Passwords do not match")

	ErrEmailRequired      = errors.New("Email is required")
	ErrNameRequired       = errors.New("Name is required")
	ErrPasswordRequired   = errors.New("Password is required")
	ErrResetTokenRequired = errors.New("Reset token is required")
	ErrInvalidCode        = errors.New("Enter the 6-digit code from your email")
)

// Session errors
var (
	ErrNotAuthenticated = errors.New("not logged in")
	ErrCorruptUser      = errors.New("stored user profile is unreadable")
)
