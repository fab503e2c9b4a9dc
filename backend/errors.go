// ABOUTME: Error hierarchy for backend calls: transport failures, API failures, validation, malformed bodies.
// ABOUTME: UserMessage maps any of them to the single form-level string shown to the author.

package backend

import (
	"errors"
	"fmt"
)

// GenericFailureMessage is shown when the backend's answer cannot be interpreted.
const GenericFailureMessage = "Something went wrong. Please try again."

// NetworkFailureMessage is shown when the backend could not be reached.
const NetworkFailureMessage = "Could not reach the server. Please check your connection and try again."

// BaseError is the base type for all backend errors.
type BaseError struct {
	Message string
	Cause   error
}

func (e *BaseError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *BaseError) Unwrap() error {
	return e.Cause
}

// NetworkError reports that the request never produced a response.
type NetworkError struct {
	BaseError
	Method string
	Path   string
}

func (e *NetworkError) Error() string { return e.BaseError.Error() }
func (e *NetworkError) Unwrap() error { return e.BaseError.Unwrap() }

// APIError reports a response that was understood but signalled failure,
// either through a non-2xx status or status:false in the envelope.
type APIError struct {
	BaseError
	StatusCode int
	// ServerMessage is the envelope's message field, if any.
	ServerMessage string
}

func (e *APIError) Error() string { return e.BaseError.Error() }
func (e *APIError) Unwrap() error { return e.BaseError.Unwrap() }

// ValidationError carries structured field errors from the backend.
type ValidationError struct {
	APIError
	Fields FieldErrors
}

func (e *ValidationError) Error() string { return e.APIError.Error() }
func (e *ValidationError) Unwrap() error { return e.APIError.Unwrap() }

// As lets errors.As match *APIError from a ValidationError.
func (e *ValidationError) As(target any) bool {
	switch t := target.(type) {
	case **APIError:
		*t = &e.APIError
		return true
	default:
		return false
	}
}

// First returns the first field and message in response order.
func (e *ValidationError) First() (field, message string, ok bool) {
	for _, fe := range e.Fields {
		if len(fe.Messages) > 0 {
			return fe.Field, fe.Messages[0], true
		}
	}
	return "", "", false
}

// MalformedResponseError reports a body that is not a JSON envelope, such as
// an HTML error page from a proxy.
type MalformedResponseError struct {
	BaseError
	StatusCode  int
	ContentType string
	// Snippet holds the start of the body for logs.
	Snippet string
}

func (e *MalformedResponseError) Error() string { return e.BaseError.Error() }
func (e *MalformedResponseError) Unwrap() error { return e.BaseError.Unwrap() }

func newMalformed(status int, contentType string, body []byte, cause error) *MalformedResponseError {
	snippet := string(body)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return &MalformedResponseError{
		BaseError:   BaseError{Message: fmt.Sprintf("malformed response (status %d, %s)", status, contentType), Cause: cause},
		StatusCode:  status,
		ContentType: contentType,
		Snippet:     snippet,
	}
}

// UserMessage returns the form-level message for err. Validation errors yield
// their first field message; API errors yield the server's message when it
// sent one; everything else yields a fixed fallback.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		if _, msg, ok := ve.First(); ok {
			return msg
		}
		if ve.ServerMessage != "" {
			return ve.ServerMessage
		}
		return GenericFailureMessage
	}

	var ae *APIError
	if errors.As(err, &ae) {
		if ae.ServerMessage != "" {
			return ae.ServerMessage
		}
		return GenericFailureMessage
	}

	var ne *NetworkError
	if errors.As(err, &ne) {
		return NetworkFailureMessage
	}

	return GenericFailureMessage
}
