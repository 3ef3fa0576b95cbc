package billing

import (
	"errors"
	"fmt"
)

var (
	ErrPartyRequired = errors.New("please select a party")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrInvalidDate   = errors.New("invalid invoice date")
)

// ValidationError reports a user-correctable problem with an operation's
// input. No state is changed when one is returned.
type ValidationError struct {
	Err     error
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func Invalid(err error, details string) error {
	return &ValidationError{Err: err, Details: details}
}
