package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidResponse is returned when a 2xx body lacks the fields the client
// depends on.
var ErrInvalidResponse = errors.New("invalid response format")

// APIError is a non-success HTTP status. Message is the server's own
// explanation when it gave one, so it can be shown to the user verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Reason extracts the user-facing reason for a failed call.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Message
	}
	if errors.Is(err, ErrInvalidResponse) {
		return ErrInvalidResponse.Error()
	}
	return errors.Cause(err).Error()
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Status
	}
	return 0
}

// failure says how a call turns an error body into a message.
type failure struct {
	fallback string
	// errorOnly ignores the detail field. Conversation creation only ever
	// reports through error.
	errorOnly bool
}

func newAPIError(status int, body errorBody, f failure) *APIError {
	msg := body.Error
	if msg == "" && !f.errorOnly {
		msg = body.Detail
	}
	if msg == "" {
		msg = f.fallback
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}
	return &APIError{Status: status, Message: msg}
}
