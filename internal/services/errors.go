package services

import (
	"errors"
	"fmt"
	"strings"

	"taskhub/internal/repositories"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("forbidden")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence error")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func forbiddenf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// persistence wraps a store failure. Not-found from the store is passed
// through as ErrNotFound so the caller does not have to know repositories.
func persistence(op string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

// Reason strips the sentinel prefix and returns the text shown to clients.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, s := range []error{ErrValidation, ErrNotFound, ErrForbidden, ErrConflict} {
		if errors.Is(err, s) {
			if rest := strings.TrimPrefix(msg, s.Error()+": "); rest != msg {
				return rest
			}
			return msg
		}
	}
	if errors.Is(err, ErrPersistence) {
		return "internal server error"
	}
	return msg
}
