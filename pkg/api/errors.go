package api

import (
	"errors"
	"fmt"
)

// ErrorClass classifies request failures for metrics and logging.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport failures (no response at all).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassParse represents non-JSON bodies where JSON was expected.
	ErrorClassParse ErrorClass = "parse"

	// ErrorClassServer represents a decoded failure envelope from the store.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassUnauthorized represents an authorization failure that
	// survived (or had no) refresh attempt.
	ErrorClassUnauthorized ErrorClass = "unauthorized"
)

// NetworkError indicates the request never produced a response.
type NetworkError struct {
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError indicates a non-empty response body that was not valid JSON.
type ParseError struct {
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %v", e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ServerError is a decoded failure envelope from the remote store.
type ServerError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (status %d, code %s): %s",
		e.StatusCode, e.Code, e.Message)
}

// UnauthorizedError is an authorization failure that could not be repaired
// by the single refresh-and-replay attempt. Callers are expected to redirect
// to authentication exactly once, never to retry.
type UnauthorizedError struct {
	Err error
}

// Error implements the error interface.
func (e *UnauthorizedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unauthorized: %v", e.Err)
	}
	return "unauthorized"
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UnauthorizedError) Unwrap() error {
	return e.Err
}

// Classify maps a request error to its ErrorClass for metrics labels.
// A nil error returns the empty class.
func Classify(err error) ErrorClass {
	var netErr *NetworkError
	var parseErr *ParseError
	var srvErr *ServerError
	var authErr *UnauthorizedError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &authErr):
		return ErrorClassUnauthorized
	case errors.As(err, &netErr):
		return ErrorClassNetwork
	case errors.As(err, &parseErr):
		return ErrorClassParse
	case errors.As(err, &srvErr):
		return ErrorClassServer
	default:
		return ErrorClassServer
	}
}
