/*
errors.go - Centralized error types for the calendar engine

PURPOSE:
  All error types in one place. User-facing operations (create/update/
  delete/list) propagate these synchronously; everything ancillary (cache,
  events, notifications, sweep) returns errors to a single logging boundary
  and never fails the primary path.

ERROR CATEGORIES:
  1. Validation errors - bad input, rejected before any state change
  2. Not-found errors - the entry/rule does not exist or is not yours
  3. Protected-entity errors - system holidays cannot be edited or deleted

USAGE:
  if errors.Is(err, calendar.ErrNotFound) { ... }
*/
package calendar

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the root of all synchronous input rejections.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when an item, rule, or notification does not
	// exist for the requesting user.
	ErrNotFound = errors.New("not found")

	// ErrProtectedItem is returned on attempts to edit or delete a
	// system-generated holiday entry.
	ErrProtectedItem = errors.New("system holiday entries cannot be modified")
)

// ValidationError carries the offending field alongside ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrProtectedItem)
}
