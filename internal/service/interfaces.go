// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/invoice-flow/internal/model"
)

// Storage defines the contract for the processed-document ledger.
type Storage interface {
	SaveResult(ctx context.Context, entry *model.LedgerEntry) error
	GetResult(ctx context.Context, contentHash string) (*model.LedgerEntry, error)
	IsProcessed(ctx context.Context, contentHash string) (bool, error)
	ListResults(ctx context.Context, limit int) ([]model.LedgerEntry, error)

	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// WithDefaults fills unset fields with three attempts, a two second initial
// delay doubling up to a one minute ceiling.
func (o RetryOptions) WithDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 2 * time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = time.Minute
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2.0
	}
	return o
}

// BatchSummary shows the results of a processing run.
type BatchSummary struct {
	Total            int
	Succeeded        int
	Failed           int
	IdentifiedByRule int
	IdentifiedByLLM  int
	RulesLearned     int
	Skipped          int
	Duration         time.Duration
}
