package livegui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrMalformedMessage means an inbound message does not match the wire grammar.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrUnknownNode means an id has no registry entry.
	ErrUnknownNode = errors.New("unknown node")
	// ErrInvalidPayload means a payload is not valid JSON, or not an object where one is required.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrNoHandler means the node has no handler for the event. Dispatch treats it as a no-op.
	ErrNoHandler = errors.New("no handler")
	// ErrUnknownProperty means a key is not on the node kind's allow-list.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrNotConnected means there is no active connection to emit to.
	ErrNotConnected = errors.New("not connected")
)

// ParseError describes an inbound message that could not be dispatched.
type ParseError struct {
	Input  string
	Reason string
	Err    error // one of the sentinels above
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %s (%q)", e.Err, e.Reason, truncate(e.Input, 64))
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// HandlerError wraps an error returned, or a panic raised, by an event handler.
type HandlerError struct {
	NodeID int
	Event  string
	Err    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s on node %d: %v", e.Event, e.NodeID, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiError is a collection of field errors (implements error interface)
type MultiError []FieldError

func (m MultiError) Error() string {
	if len(m) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(m))
	for _, err := range m {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidationToMultiError converts go-playground/validator errors to MultiError
func ValidationToMultiError(err error) MultiError {
	var fieldErrors MultiError

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fieldErrors
	}

	for _, e := range validationErrs {
		var message string
		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", e.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of [%s]", e.Field(), e.Param())
		default:
			message = fmt.Sprintf("%s is invalid", e.Field())
		}

		fieldErrors = append(fieldErrors, FieldError{
			Field:   strings.ToLower(e.Field()),
			Message: message,
		})
	}

	return fieldErrors
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
