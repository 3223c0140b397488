package github

import (
	"errors"
	"fmt"
)

// Common errors returned by the fetcher.
var (
	// ErrQuotaExhausted is returned when the run's call budget or the remote
	// quota window is spent. It ends detail fetching for the run; it is not
	// an operator-facing failure.
	ErrQuotaExhausted = errors.New("call budget exhausted")

	// ErrNotFound is returned when the repository no longer exists upstream.
	// Not-found is terminal per item and never retried.
	ErrNotFound = errors.New("repository not found")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents rate limit rejections (403/429 with a
	// spent quota window).
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError represents a GitHub API error with additional context.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("github %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("github %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx errors are deterministic, retrying wastes budget
		return false
	case ErrorClassServer:
		return true
	case ErrorClassNetwork:
		return true
	case ErrorClassRateLimit:
		// A spent quota window ends the run instead of being retried
		return false
	default:
		return false
	}
}
