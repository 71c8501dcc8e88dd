package pesc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingField is wrapped by errors returned when a response lacks a field
// the caller asked for.
var ErrMissingField = errors.New("missing field in response")

// ErrInvalidPathSegment is wrapped by errors returned when an identifier can't
// be used as a URL path segment.
var ErrInvalidPathSegment = errors.New("invalid path segment")

// APIError is a single entry of the errors list the API returns on failure.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ResponseError is returned when the API answers with an errors envelope,
// usually with a 200 status. Use errors.As to inspect the codes.
type ResponseError struct {
	Path   string
	Errors []APIError
}

func (e *ResponseError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ae := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%d: %s", ae.Code, ae.Message))
	}
	return fmt.Sprintf("pesc api error on %s: %s", e.Path, strings.Join(msgs, "; "))
}

// HasCode reports whether any of the returned errors carries code.
func (e *ResponseError) HasCode(code int) bool {
	for _, ae := range e.Errors {
		if ae.Code == code {
			return true
		}
	}
	return false
}

// StatusError is returned for a non-2xx response that did not carry an errors
// envelope.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d", e.StatusCode)
}
