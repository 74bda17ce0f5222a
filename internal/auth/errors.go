package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every input validation error.
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailNotVerified    = errors.New("please verify your email first")
	ErrNotFound            = errors.New("account not found")
	ErrVerificationExpired = errors.New("verification link has expired")
	ErrInvalidOTP          = errors.New("invalid or expired OTP")
	ErrStore               = errors.New("account store unavailable")
	ErrNotify              = errors.New("failed to send email")
)

// ErrInvalidVerificationToken is a not-found error for unknown or consumed tokens.
var ErrInvalidVerificationToken = fmt.Errorf("%w: invalid or already used verification token", ErrNotFound)

// validationError carries a user-facing message and matches ErrValidation.
type validationError string

func (e validationError) Error() string { return string(e) }

func (e validationError) Is(target error) bool { return target == ErrValidation }

var (
	ErrAllFieldsRequired         = validationError("all fields are required")
	ErrEmailRequired             = validationError("email is required")
	ErrInvalidEmailFormat        = validationError("invalid email format")
	ErrPasswordRequired          = validationError("password is required")
	ErrPasswordTooShort          = validationError("password must be at least 8 characters")
	ErrCredentialsRequired       = validationError("email and password are required")
	ErrVerificationTokenRequired = validationError("verification token is required")
	ErrNothingToUpdate           = validationError("provide at least one of firstName, lastName or password")
)
