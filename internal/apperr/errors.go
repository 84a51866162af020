// Package apperr defines the error taxonomy shared by the gateway, the
// catalog service and the client.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrUnreachable = errors.New("upstream unreachable")
)

// ValidationError is a locally detected input problem. Message and Details
// become the error and details fields of the 400 envelope.
type ValidationError struct {
	Message string
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

// Invalid returns a ValidationError.
func Invalid(message, details string) *ValidationError {
	return &ValidationError{Message: message, Details: details}
}

// UpstreamError is a non-2xx response from the OpenPecha API.
type UpstreamError struct {
	Status int
	Body   []byte
}

func (e *UpstreamError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("upstream returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("upstream returned %d: %s", e.Status, truncate(string(e.Body), 200))
}

// Is makes errors.Is(err, ErrNotFound) true for upstream 404s.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Details returns the upstream body decoded as JSON, or as a plain string
// when it is not valid JSON. An empty body yields fallback.
func (e *UpstreamError) Details(fallback string) any {
	if len(e.Body) == 0 {
		return fallback
	}
	var v any
	if err := json.Unmarshal(e.Body, &v); err == nil {
		return v
	}
	return string(e.Body)
}

// AsValidation unwraps a ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	ok := errors.As(err, &v)
	return v, ok
}

// AsUpstream unwraps an UpstreamError.
func AsUpstream(err error) (*UpstreamError, bool) {
	var u *UpstreamError
	ok := errors.As(err, &u)
	return u, ok
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
