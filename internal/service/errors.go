package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failed operation for the transport layer.
type Kind int

const (
	KindValidation Kind = iota + 1 // missing or malformed input
	KindConflict                   // slot-state precondition violated
	KindInternal                   // storage or unexpected failure
)

// Error carries a failure kind alongside a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func conflictError(cause error) *Error {
	return &Error{Kind: KindConflict, Message: cause.Error(), cause: cause}
}

func internalError(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", cause: cause}
}

// KindOf extracts the failure kind; unknown errors count as internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
