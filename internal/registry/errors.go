package registry

import (
	"errors"
	"fmt"
)

// Code categorizes ledger errors raised by this package. Backend failures
// are not coded; they wrap the driver error and propagate unchanged.
type Code string

const (
	// CodeRegistrationConflict indicates a project name or URI collision
	// during project registration.
	CodeRegistrationConflict Code = "REGISTRATION_CONFLICT"

	// CodeInvalidArgument indicates a malformed search option.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// Error is a ledger error with a machine-readable code.
type Error struct {
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func registrationConflictf(format string, args ...any) error {
	return &Error{Code: CodeRegistrationConflict, Message: fmt.Sprintf(format, args...)}
}

func invalidArgumentf(format string, args ...any) error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// IsRegistrationConflict reports whether err is a project registration
// conflict. Uses errors.As to handle wrapped errors.
func IsRegistrationConflict(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeRegistrationConflict
}

// IsInvalidArgument reports whether err is a search option validation error.
// Uses errors.As to handle wrapped errors.
func IsInvalidArgument(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeInvalidArgument
}
