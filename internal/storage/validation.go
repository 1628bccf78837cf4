package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/invoice-flow/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidStatus = errors.New("invalid result status")
	ErrNotFound      = errors.New("document not found in ledger")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateEntry(entry *model.LedgerEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if err := validateString(entry.ContentHash, "content_hash"); err != nil {
		return err
	}
	switch entry.Status {
	case model.StatusSuccess, model.StatusFailed:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, entry.Status)
	}
}
