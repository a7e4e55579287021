// Package common defines the error taxonomy and shared constants used across
// the server layers. Callers match errors with errors.Is; wrapped variants
// (ErrEmailExists, ErrInsufficientPosition, ...) also match their kind.
package common

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
	ErrSymbolUnknown    = errors.New("symbol unknown")
	ErrQuoteUnavailable = errors.New("quote unavailable")
	ErrRequestTimeout   = errors.New("request timeout")
	ErrOverCapacity     = errors.New("over capacity")
	ErrInternal         = errors.New("internal error")
)

var (
	// Token errors are reported uniformly; expiry and forgery are not told apart.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthenticated)

	// Login failures never reveal whether the email exists.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrValidation)

	ErrEmailExists          = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrInsufficientPosition = fmt.Errorf("%w: sell exceeds position", ErrConflict)
)

// Validationf builds a validation error with a field-level message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
