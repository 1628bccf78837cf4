// Package extraction asks a language model for the billing fields of a
// document and parses its delimited reply.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/invoice-flow/internal/common"
	"github.com/Veraticus/invoice-flow/internal/llm"
	"github.com/Veraticus/invoice-flow/internal/model"
	"github.com/Veraticus/invoice-flow/internal/service"
)

// DefaultRequestTimeout bounds a single inference attempt.
const DefaultRequestTimeout = 60 * time.Second

// Config controls retries and timeouts.
type Config struct {
	Retry          service.RetryOptions
	RequestTimeout time.Duration
}

// Extractor turns document text into raw extraction fields.
type Extractor struct {
	client  llm.Client
	logger  *slog.Logger
	retry   service.RetryOptions
	timeout time.Duration
}

// New creates an Extractor. Zero values in cfg take the defaults: three
// attempts, backoff from two seconds doubling, sixty seconds per attempt.
func New(client llm.Client, cfg Config, logger *slog.Logger) *Extractor {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Extractor{
		client:  client,
		logger:  common.LoggerOrDefault(logger),
		retry:   cfg.Retry.WithDefaults(),
		timeout: timeout,
	}
}

// Extract requests the fields of text. With a non-empty knownProvider it runs
// in reduced mode, asks only for date, amount and currency, and fills the
// provider in itself; otherwise the service is asked for all four fields.
//
// Transport failures and empty replies are retried; exhausting the attempts
// returns ErrExtractionFailed. A reply with the wrong number of fields returns
// ErrMalformedResponse without further attempts.
func (e *Extractor) Extract(ctx context.Context, text, knownProvider string) (model.ExtractionFields, model.ExtractionMode, error) {
	mode := model.ModeFull
	if knownProvider != "" {
		mode = model.ModeReduced
	}

	prompt := BuildPrompt(text, knownProvider, mode)

	content, err := e.complete(ctx, prompt)
	if err != nil {
		return model.ExtractionFields{}, mode, fmt.Errorf("%w: %w", common.ErrExtractionFailed, err)
	}

	fields, err := ParseResponse(content, mode)
	if err != nil {
		e.logger.Error("unexpected response format", "mode", mode, "response", content)
		return model.ExtractionFields{}, mode, err
	}

	if mode == model.ModeReduced {
		fields.Provider = knownProvider
	}

	e.logger.Debug("extracted fields",
		"mode", mode,
		"provider", fields.Provider,
		"date", fields.Date,
		"amount", fields.Amount,
		"currency", fields.Currency)

	return fields, mode, nil
}

// complete returns the first non-empty reply within the retry budget.
func (e *Extractor) complete(ctx context.Context, prompt string) (string, error) {
	var content string

	err := common.WithRetry(ctx, func(attempt int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		reply, err := e.client.Complete(attemptCtx, prompt)
		if err != nil {
			e.logger.Warn("inference request failed",
				"attempt", attempt,
				"max_attempts", e.retry.MaxAttempts,
				"error", err)
			return err
		}

		reply = strings.TrimSpace(reply)
		if reply == "" {
			e.logger.Warn("empty inference response", "attempt", attempt)
			return common.ErrEmptyCompletion
		}

		content = reply
		return nil
	}, e.retry)

	return content, err
}
