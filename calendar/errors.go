package calendar

import (
	"errors"
	"fmt"
)

// ErrInvalidDate is returned, wrapped in InvalidDateError, when a date string
// cannot be parsed. Dates are never silently coerced.
var ErrInvalidDate = errors.New("invalid date")

// InvalidDateError carries the rejected input.
type InvalidDateError struct {
	Input string
	Err   error
}

func (e *InvalidDateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid date %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("invalid date %q", e.Input)
}

func (e *InvalidDateError) Unwrap() error {
	return ErrInvalidDate
}
