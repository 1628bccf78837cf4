// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Registry errors.
	ErrRegistryLoad = errors.New("registry load failed")
	ErrInvalidRule  = errors.New("invalid rule")
	ErrPersistence  = errors.New("registry persistence failed")
	ErrNoBackup     = errors.New("backup file not found")

	// Extraction errors.
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrMalformedResponse = errors.New("malformed response")
	ErrEmptyCompletion   = errors.New("empty completion")

	// Validation errors.
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")

	// Document errors.
	ErrUnsupportedDocument = errors.New("unsupported document type")
	ErrEmptyDocument       = errors.New("document has no text")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return true
}
