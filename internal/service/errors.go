package service

import (
	"errors"
	"fmt"
)

// ErrCheckoutInFlight rejects a submit while a previous attempt is still
// loading or awaiting payment
var ErrCheckoutInFlight = errors.New("checkout already in progress")

// ValidationError is a guard failure tied to a specific input field.
// The checkout state stays idle; the caller surfaces the message inline.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErr(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
