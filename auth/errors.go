package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrServerMisconfigured means the signing secret or site password is
	// not configured. Nothing is audited for it.
	ErrServerMisconfigured = errors.New("server misconfigured")

	// ErrMissingSecret is returned by TokenCodec.Issue without a secret.
	ErrMissingSecret = errors.New("session signing secret is not configured")

	ErrEmailRequired = errors.New("email required")
	ErrInvalidEmail  = errors.New("invalid email address")

	// ErrUnauthorized is returned by the session guard for absent and
	// invalid tokens alike.
	ErrUnauthorized = errors.New("unauthorized")
)

// TooManyAttemptsError is returned while a backoff window is outstanding.
type TooManyAttemptsError struct {
	RetryAfterSeconds int
}

func (e *TooManyAttemptsError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %ds", e.RetryAfterSeconds)
}

// InvalidPasswordError is returned when the password does not match.
type InvalidPasswordError struct {
	RequireEmailNextTime bool
}

func (e *InvalidPasswordError) Error() string {
	return "invalid password"
}
