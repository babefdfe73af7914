package tool

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ErrorCodeInvalidInput is returned when tool arguments are missing or
	// of the wrong type.
	ErrorCodeInvalidInput = "INVALID_INPUT"
	// ErrorCodeCollaboratorFailure is returned when an external collaborator
	// fails during a tool call.
	ErrorCodeCollaboratorFailure = "COLLABORATOR_FAILURE"
	// ErrorCodeNotFound is returned when a tool or task lookup misses.
	ErrorCodeNotFound = "NOT_FOUND"
)

// DispatchError is the typed boundary for failures inside a tool call.
// It never crosses the dispatcher: callers only ever see the Message in a
// {success:false} payload.
type DispatchError struct {
	Code    string
	Message string
	Cause   error
}

func (e *DispatchError) Error() string {
	if e == nil {
		return ""
	}
	code := strings.TrimSpace(e.Code)
	msg := strings.TrimSpace(e.Message)
	switch {
	case code == "" && msg == "":
		return ErrorCodeCollaboratorFailure
	case code == "":
		return msg
	case msg == "":
		return code
	default:
		return fmt.Sprintf("%s: %s", code, msg)
	}
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *DispatchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newDispatchError(code, message string, cause error) *DispatchError {
	cleanCode := strings.TrimSpace(code)
	if cleanCode == "" {
		cleanCode = ErrorCodeCollaboratorFailure
	}
	cleanMsg := strings.TrimSpace(message)
	if cleanMsg == "" && cause != nil {
		cleanMsg = cause.Error()
	}
	return &DispatchError{Code: cleanCode, Message: cleanMsg, Cause: cause}
}

func invalidInput(format string, args ...any) *DispatchError {
	return newDispatchError(ErrorCodeInvalidInput, fmt.Sprintf(format, args...), nil)
}

func collaboratorFailure(message string, cause error) *DispatchError {
	return newDispatchError(ErrorCodeCollaboratorFailure, message, cause)
}

// failureMessage extracts the user-facing message for a payload. Typed
// dispatch errors contribute their message; anything else is stringified.
func failureMessage(err error) string {
	if err == nil {
		return ""
	}
	var de *DispatchError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}
