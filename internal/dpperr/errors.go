package dpperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable codes for every failure the DPP core can surface. Handlers
// map these to HTTP statuses; callers branch on the code, never on message text.
const (
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeConfigNotFound       = "CONFIG_NOT_FOUND"
	CodeNoQuestionsAvailable = "NO_QUESTIONS_AVAILABLE"
	CodeAssignmentNotFound   = "ASSIGNMENT_NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeAlreadyAnswered      = "ALREADY_ANSWERED"
	CodeDPPError             = "DPP_ERROR"
)

// Error is the single discriminated error kind used across the DPP core.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return "dpp error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func UserNotFound(err error) *Error {
	return New(http.StatusNotFound, CodeUserNotFound, err)
}

func ConfigNotFound(err error) *Error {
	return New(http.StatusNotFound, CodeConfigNotFound, err)
}

func NoQuestionsAvailable(err error) *Error {
	return New(http.StatusUnprocessableEntity, CodeNoQuestionsAvailable, err)
}

func AssignmentNotFound(err error) *Error {
	return New(http.StatusNotFound, CodeAssignmentNotFound, err)
}

func Unauthorized(err error) *Error {
	return New(http.StatusForbidden, CodeUnauthorized, err)
}

func AlreadyAnswered(err error) *Error {
	return New(http.StatusConflict, CodeAlreadyAnswered, err)
}

// Wrap marks an unexpected persistence/query failure. The wrapped error is
// logged by the caller but never leaks into the HTTP response body.
func Wrap(err error, msg string) *Error {
	return New(http.StatusInternalServerError, CodeDPPError, fmt.Errorf("%s: %w", msg, err))
}

// CodeOf extracts the taxonomy code, defaulting to CodeDPPError for errors
// that did not originate in the core.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeDPPError
}

// StatusOf extracts the HTTP status, defaulting to 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Is reports whether err carries the given taxonomy code.
func Is(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
