package api

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when headers are requested before a successful Authenticate.
var ErrNotAuthenticated = errors.New("not authenticated: call Authenticate first")

// AuthError is returned when the authentication handshake fails.
// StatusCode is 0 when the request never got a response.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed with status code: %v", e.StatusCode)
	}
	return fmt.Sprintf("authentication error: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// FetchError is returned when a summary or detail request fails.
type FetchError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to get %v: status code: %v", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("error getting %v: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// statusError carries a non-200 response between the transport and the typed errors above.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %v: %v", e.StatusCode, e.Body)
}

// retryable reports whether a failed request is worth another attempt.
func (e *statusError) retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
