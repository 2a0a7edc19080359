package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError represents an unexpected HTTP status
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
	Method     string
}

// Error returns the error message
func (e *HTTPError) Error() string {
	method := e.Method
	if method == "" {
		method = http.MethodGet
	}
	return fmt.Sprintf("HTTP %d for %s %s: %s", e.StatusCode, method, e.URL, e.Message)
}

// Temporary reports whether the status is worth retrying
func (e *HTTPError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return e.StatusCode >= http.StatusInternalServerError
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, method, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Method:     method,
		Message:    message,
	}
}

// StatusCode returns the status of the HTTPError wrapped in err, or 0
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
