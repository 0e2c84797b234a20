package client

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned for any 401 response. By the time the caller
// sees it the session has already been reset (Authenticated -> Anonymous).
var ErrUnauthorized = errors.New("unauthorized: session has been reset")

// APIError is a non-2xx response from the gallery backend, with whatever
// message the server put in the body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// ValidationError is a client-side rejection of a request that was never
// sent, such as an empty required field on an auth call.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}
