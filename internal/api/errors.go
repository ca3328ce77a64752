package api

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrTransport matches any failure to get a response from the backend
	ErrTransport = errors.New("network error")

	// ErrMalformedEnvelope indicates a successful status with a body that is not {"data": ...}
	ErrMalformedEnvelope = errors.New("malformed response envelope")
)

// APIError represents a non-successful HTTP response from the backend.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Unauthorized reports whether the backend rejected the credentials
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// TransportError wraps a failed round trip (DNS, refused connection, reset).
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return e.Method + " " + e.Path + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrTransport) match any TransportError
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Message turns an error into the one-line text shown next to a form or panel.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return msg
		}
		return http.StatusText(apiErr.Status)
	}
	if errors.Is(err, ErrTransport) {
		return "Network error: could not reach the server"
	}
	return err.Error()
}

// IsUnauthorized reports whether err is a 401 from the backend
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}
