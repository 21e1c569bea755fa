package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions is returned, wrapped in OptionsError, when engine options
// are unusable.
var ErrInvalidOptions = errors.New("invalid engine options")

// OptionsError names the offending option.
type OptionsError struct {
	Field  string
	Reason string
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("invalid engine options: %s: %s", e.Field, e.Reason)
}

func (e *OptionsError) Unwrap() error {
	return ErrInvalidOptions
}
