package services

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated indicates the backend rejected the bearer credential.
	ErrUnauthenticated = errors.New("services: unauthenticated")
	// ErrNotFound indicates the addressed resource does not exist.
	ErrNotFound = errors.New("services: not found")
	// ErrEmptyResponse indicates a successful response without the expected body.
	ErrEmptyResponse = errors.New("services: empty response body")
)

// APIError is returned for every failed backend call. StatusCode is zero when
// no HTTP response was received.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	cause      error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
	}

	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() []error {
	var errs []error
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	switch e.StatusCode {
	case http.StatusUnauthorized:
		errs = append(errs, ErrUnauthenticated)
	case http.StatusNotFound:
		errs = append(errs, ErrNotFound)
	}

	return errs
}
