package domain

import (
	"errors"
	"strings"
)

// NotFoundError is returned when the requested client does not exist.
type NotFoundError struct {
	Detail string
}

func (e *NotFoundError) Error() string {
	return e.Detail
}

// ValidationError carries every business-rule violation in discovery order.
type ValidationError struct {
	Reasons []string
}

// NewValidationError builds a ValidationError from the supplied reasons.
func NewValidationError(reasons ...string) *ValidationError {
	return &ValidationError{Reasons: append([]string(nil), reasons...)}
}

func (e *ValidationError) Error() string {
	if len(e.Reasons) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// Reasons extracts the validation reasons from err, or nil when err is not a
// validation failure.
func Reasons(err error) []string {
	var target *ValidationError
	if errors.As(err, &target) {
		return target.Reasons
	}
	return nil
}
