package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session client
var (
	// Session errors
	ErrNotProvisioned = errors.New("session not provisioned")
	ErrSuperseded     = errors.New("superseded by a newer token generation")
	ErrNotLoggedIn    = errors.New("not logged in")

	// Credential errors
	ErrMalformedCredentials = errors.New("malformed credentials")
	ErrInvalidToken         = errors.New("invalid token")

	// Configuration errors
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrUnknownBackend = errors.New("unknown credential store backend")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
