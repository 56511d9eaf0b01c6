// Package parsing turns loosely formatted page text into typed values.
package parsing

import (
	"errors"
	"fmt"
)

// ErrUnresolvableDate is returned when no year within the search window matches the date text.
var ErrUnresolvableDate = errors.New("no matching year for date text")

// DateError describes a date fragment that could not be resolved.
type DateError struct {
	Text      string
	Layout    string
	StartYear int
	Cause     error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("date error: %q (layout %q, from %d): %v", e.Text, e.Layout, e.StartYear, e.Cause)
}

func (e *DateError) Unwrap() error {
	return e.Cause
}
