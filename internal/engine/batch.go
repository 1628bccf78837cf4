package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/invoice-flow/internal/common"
	"github.com/Veraticus/invoice-flow/internal/model"
	"github.com/Veraticus/invoice-flow/internal/service"
)

// BatchMode selects what a batch does with each document.
type BatchMode string

const (
	// BatchProcess extracts fields and copies the document under its new name.
	BatchProcess BatchMode = "process"
	// BatchDryRun extracts fields and reports the name without copying.
	BatchDryRun BatchMode = "dry-run"
	// BatchValidate only inspects documents; no inference is performed.
	BatchValidate BatchMode = "validate"
)

// ParseBatchMode validates a mode name.
func ParseBatchMode(s string) (BatchMode, error) {
	switch m := BatchMode(s); m {
	case BatchProcess, BatchDryRun, BatchValidate:
		return m, nil
	case "":
		return BatchProcess, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", common.ErrInvalidConfig, s)
	}
}

// BatchOptions configures a batch run.
type BatchOptions struct {
	// OnResult is called once per finished document. Calls are serialized.
	OnResult      func(model.DocumentResult)
	Mode          BatchMode
	Workers       int
	SkipProcessed bool
}

// BatchDeps are the collaborators of a Batch. Storage is optional.
type BatchDeps struct {
	Pipeline *Pipeline
	Reader   DocumentReader
	Checker  DocumentChecker
	Output   OutputWriter
	Storage  service.Storage
	Logger   *slog.Logger
}

// Batch runs many documents through the pipeline. A failing document never
// stops the others.
type Batch struct {
	pipeline *Pipeline
	reader   DocumentReader
	checker  DocumentChecker
	output   OutputWriter
	storage  service.Storage
	logger   *slog.Logger
	now      func() time.Time
}

// NewBatch creates a batch runner.
func NewBatch(deps BatchDeps) *Batch {
	return &Batch{
		pipeline: deps.Pipeline,
		reader:   deps.Reader,
		checker:  deps.Checker,
		output:   deps.Output,
		storage:  deps.Storage,
		logger:   common.LoggerOrDefault(deps.Logger),
		now:      time.Now,
	}
}

// Run processes paths and returns one result per path, in input order.
//
// With one worker documents are handled strictly one after another. More
// workers process documents concurrently; registry mutations are serialized
// by the registry itself. Cancelling ctx stops scheduling new documents;
// unscheduled documents are reported as failed and ctx's error is returned.
func (b *Batch) Run(ctx context.Context, paths []string, opts BatchOptions) ([]model.DocumentResult, service.BatchSummary, error) {
	start := b.now()

	if opts.Mode == "" {
		opts.Mode = BatchProcess
	}
	workers := max(opts.Workers, 1)

	b.logger.Info("starting batch",
		"documents", len(paths),
		"mode", opts.Mode,
		"workers", workers)

	results := make([]model.DocumentResult, len(paths))
	scheduled := make([]bool, len(paths))

	var callbackMu sync.Mutex
	report := func(result model.DocumentResult) {
		if opts.OnResult == nil {
			return
		}
		callbackMu.Lock()
		defer callbackMu.Unlock()
		opts.OnResult(result)
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		scheduled[i] = true
		g.Go(func() error {
			results[i] = b.processOne(ctx, path, opts)
			report(results[i])
			return nil
		})
	}
	_ = g.Wait()

	for i, path := range paths {
		if !scheduled[i] {
			results[i] = model.DocumentResult{
				Filename:     filepath.Base(path),
				Status:       model.StatusFailed,
				Err:          ctx.Err(),
				ErrorMessage: fmt.Sprint(ctx.Err()),
			}
		}
	}

	summary := Summarize(results, b.now().Sub(start))

	b.logger.Info("batch finished",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"rules_learned", summary.RulesLearned,
		"duration", summary.Duration.Round(time.Millisecond))

	return results, summary, ctx.Err()
}

// processOne handles a single document. Every error ends up in the result.
func (b *Batch) processOne(ctx context.Context, path string, opts BatchOptions) model.DocumentResult {
	result := model.DocumentResult{
		Filename:  filepath.Base(path),
		StartedAt: b.now(),
	}
	logger := b.logger.With("file", result.Filename)

	finish := func(err error) model.DocumentResult {
		result.Duration = b.now().Sub(result.StartedAt)
		if err != nil {
			result.Status = model.StatusFailed
			result.Err = err
			result.ErrorMessage = err.Error()
			logger.Error("failed to process document", "error", err)
		} else if result.Status == "" {
			result.Status = model.StatusSuccess
		}
		return result
	}

	if opts.Mode == BatchValidate {
		check := b.checker.Check(path)
		result.Check = &check
		if !check.Valid {
			return finish(fmt.Errorf("%w: %s", common.ErrUnsupportedDocument, check.Error))
		}
		return finish(nil)
	}

	hash, err := b.reader.Hash(path)
	if err != nil {
		return finish(err)
	}
	result.ContentHash = hash

	if opts.SkipProcessed && b.storage != nil {
		done, err := b.storage.IsProcessed(ctx, hash)
		if err != nil {
			logger.Warn("failed to check ledger, processing anyway", "error", err)
		} else if done {
			logger.Info("already processed, skipping")
			result.Status = model.StatusSkipped
			return finish(nil)
		}
	}

	text, err := b.reader.Text(ctx, path)
	if err != nil {
		return finish(err)
	}

	outcome, err := b.pipeline.Process(ctx, text)
	if outcome != nil {
		result.Mode = outcome.Mode
		result.Learned = outcome.Learned != nil
		result.Record = outcome.Record
	}
	if err != nil {
		if opts.Mode == BatchProcess {
			b.record(ctx, &result, err)
		}
		return finish(err)
	}

	switch opts.Mode {
	case BatchDryRun:
		result.OutputFilename = b.output.Filename(result.Record)
	default:
		dest, err := b.output.Place(path, result.Record)
		if err != nil {
			b.record(ctx, &result, err)
			return finish(err)
		}
		result.OutputFilename = filepath.Base(dest)
		logger.Info("renamed document", "output", result.OutputFilename)
	}

	if opts.Mode == BatchProcess {
		b.record(ctx, &result, nil)
	}
	return finish(nil)
}

// record writes the outcome to the ledger. Ledger failures are logged only.
func (b *Batch) record(ctx context.Context, result *model.DocumentResult, procErr error) {
	if b.storage == nil || result.ContentHash == "" {
		return
	}
	if errors.Is(procErr, context.Canceled) {
		return
	}

	entry := &model.LedgerEntry{
		ContentHash: result.ContentHash,
		Filename:    result.Filename,
		Status:      model.StatusSuccess,
		ProcessedAt: b.now(),
	}
	if rec := result.Record; rec != nil {
		entry.Provider = rec.Provider
		entry.InvoiceDate = rec.Date
		entry.AmountSource = rec.AmountSource.StringFixed(2)
		entry.AmountConverted = rec.AmountConverted.StringFixed(2)
	}
	if procErr != nil {
		entry.Status = model.StatusFailed
		entry.Error = procErr.Error()
	}

	if err := b.storage.SaveResult(context.WithoutCancel(ctx), entry); err != nil {
		b.logger.Warn("failed to record document in ledger", "file", result.Filename, "error", err)
	}
}

// Summarize counts the outcomes of a batch.
func Summarize(results []model.DocumentResult, elapsed time.Duration) service.BatchSummary {
	summary := service.BatchSummary{
		Total:    len(results),
		Duration: elapsed,
	}

	for _, r := range results {
		switch r.Status {
		case model.StatusSuccess:
			summary.Succeeded++
		case model.StatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}

		switch r.Mode {
		case model.ModeReduced:
			summary.IdentifiedByRule++
		case model.ModeFull:
			summary.IdentifiedByLLM++
		}

		if r.Learned {
			summary.RulesLearned++
		}
	}

	return summary
}
