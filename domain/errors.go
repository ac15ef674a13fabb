package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthenticated means the presented credential is missing, malformed
	// or does not resolve to an active user.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the authorization gate rejected the mutation. No
	// state was changed.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means a referenced entity id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTimeout means a mutation request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
)

// InvalidInputError reports field-level validation failures. Fields holds the
// names of the violated fields.
type InvalidInputError struct {
	Fields []string
}

func (e *InvalidInputError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	return "invalid input: " + strings.Join(e.Fields, ", ")
}

// NotFoundf wraps ErrNotFound with a formatted description.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Forbiddenf wraps ErrForbidden with a formatted description.
func Forbiddenf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrForbidden)...)
}
