package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized marks any 401 response from the server. Callers detect
// authorization failures with errors.Is(err, api.ErrUnauthorized).
var ErrUnauthorized = errors.New("unauthorized")

// APIError represents a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Unwrap привязывает 401 к sentinel ErrUnauthorized
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}
