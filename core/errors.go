package core

import (
	"net/http"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// User-visible messages. The backend's raw error text never travels
// past the gateway; these short strings are all the UI may render.
const (
	MsgSessionExpired     = "Your session has expired. Please sign in again."
	MsgPermissionDenied   = "You do not have permission to perform this action."
	MsgGenericError       = "An error occurred. Please try again."
	MsgServiceUnavailable = "The service is currently unavailable. Please try again later."
)

// APIError is a classified remote-call failure: a status class and a
// localized message, nothing else.
type APIError struct {
	StatusCode int // 0 for network/transport failures
	Message    string
}

func (err *APIError) Error() string {
	return err.Message
}

// NewAPIError classifies an HTTP-style status code, discarding whatever
// the backend had to say about it.
func NewAPIError(statusCode int) *APIError {
	var msg string
	switch {
	case statusCode == http.StatusUnauthorized:
		msg = MsgSessionExpired
	case statusCode == http.StatusForbidden:
		msg = MsgPermissionDenied
	case statusCode == 0 || statusCode >= http.StatusInternalServerError:
		msg = MsgServiceUnavailable
	default:
		msg = MsgGenericError
	}
	return &APIError{StatusCode: statusCode, Message: msg}
}

func IsAuthExpired(err error) bool {
	apiErr, ok := errors.Cause(err).(*APIError)
	return ok && apiErr.StatusCode == http.StatusUnauthorized
}

func IsPermissionDenied(err error) bool {
	apiErr, ok := errors.Cause(err).(*APIError)
	return ok && apiErr.StatusCode == http.StatusForbidden
}

func IsUnavailable(err error) bool {
	apiErr, ok := errors.Cause(err).(*APIError)
	return ok && (apiErr.StatusCode == 0 || apiErr.StatusCode >= http.StatusInternalServerError)
}

// UserMessage extracts the displayable message from an error; anything
// unclassified collapses to the generic one.
func UserMessage(err error) string {
	switch origErr := errors.Cause(err).(type) {
	case *APIError:
		return origErr.Message
	case *ValidationError:
		if msg := origErr.Error(); msg != "" {
			return msg
		}
		return MsgGenericError
	default:
		return MsgGenericError
	}
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
