package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for missing or malformed input
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when no eligible expense or credential exists
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned for role or ownership failures
	ErrForbidden = errors.New("forbidden")

	// ErrOTPState is returned when a credential is expired, used, locked or mismatched
	ErrOTPState = errors.New("otp state")
)

// Error carries a user-facing message together with one of the error kinds above
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Validationf builds an ErrValidation error
func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds an ErrNotFound error
func NotFoundf(format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbiddenf builds an ErrForbidden error
func Forbiddenf(format string, args ...interface{}) error {
	return &Error{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

// OTPStatef builds an ErrOTPState error
func OTPStatef(format string, args ...interface{}) error {
	return &Error{Kind: ErrOTPState, Message: fmt.Sprintf(format, args...)}
}

// Message returns the user-facing text of err, falling back to fallback
// for errors that are not *Error.
func Message(err error, fallback string) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	return fallback
}
