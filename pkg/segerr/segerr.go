// Package segerr defines the error taxonomy shared by the segmentation codec.
//
// Three kinds of failure exist: malformed header content (FormatError),
// missing or unsupported data for an operation (ValueError), and lookups that
// match no segment (NotFoundError). Each typed error reports errors.Is against
// its sentinel, so callers can branch on the kind without a type assertion.
package segerr

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is matched by every *FormatError.
	ErrFormat = errors.New("format error")

	// ErrValue is matched by every *ValueError.
	ErrValue = errors.New("value error")

	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")
)

// FormatError reports a malformed header field.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type FormatError struct {
	Field string
	Msg   string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("format error: %s", e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("format error in %s: %s: %v", e.Field, e.Msg, e.Err)
	}
	return fmt.Sprintf("format error in %s: %s", e.Field, e.Msg)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// ValueError reports missing or unsupported data.
type ValueError struct {
	Msg string
	Err error
}

func (e *ValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("value error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("value error: %s", e.Msg)
}

func (e *ValueError) Unwrap() error { return e.Err }

func (e *ValueError) Is(target error) bool { return target == ErrValue }

// NotFoundError reports a selector that matched no segment.
type NotFoundError struct {
	Selector string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("segment not found: %s", e.Selector)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Formatf builds a *FormatError for field.
func Formatf(field, format string, args ...any) error {
	return &FormatError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Valuef builds a *ValueError.
func Valuef(format string, args ...any) error {
	return &ValueError{Msg: fmt.Sprintf(format, args...)}
}
