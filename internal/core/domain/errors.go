package domain

import (
	"errors"
	"fmt"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrJobNotFound         = errors.New("job not found")
	ErrSettingsNotFound    = errors.New("pipeline settings not found")
	ErrStaleEvent          = errors.New("stale event")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrProviderUnavailable = errors.New("scoring provider unavailable")
	ErrDimensionMismatch   = errors.New("vector dimension mismatch")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrInvalidInput        = errors.New("invalid input")
	ErrTemporary           = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
