package verify

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Error reports user input that violates a stated constraint.
// It is surfaced to the user as is and never retried.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errorf builds a validation error for field.
func Errorf(field, format string, args ...any) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err (or anything it wraps) is an *Error.
func IsValidationError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

// Required fails when s is empty after trimming spaces.
func Required(field, s string) error {
	if strings.TrimSpace(s) == "" {
		return Errorf(field, "is required")
	}
	return nil
}

// MaxLength fails when s holds more than max characters (runes, not bytes).
func MaxLength(field, s string, max int) error {
	if utf8.RuneCountInString(s) > max {
		return Errorf(field, "must be at most %d characters", max)
	}
	return nil
}

// MinLength fails when s holds fewer than min characters.
func MinLength(field, s string, min int) error {
	if utf8.RuneCountInString(s) < min {
		return Errorf(field, "must be at least %d characters", min)
	}
	return nil
}

// StringRequest checks a required string bounded by max characters.
func StringRequest(field, s string, max int) error {
	if err := Required(field, s); err != nil {
		return err
	}
	return MaxLength(field, s, max)
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Truncate cuts s to at most max characters.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
