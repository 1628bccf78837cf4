// Package engine turns document text into validated invoice records and runs
// batches of documents through that pipeline.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/invoice-flow/internal/common"
	"github.com/Veraticus/invoice-flow/internal/model"
)

// Stage is a step of the per-document pipeline.
type Stage string

// Pipeline stages, in order.
const (
	StageIdentifying Stage = "identifying_provider"
	StageExtracting  Stage = "extracting"
	StageValidating  Stage = "validating"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// StageError reports the stage in which a document failed.
type StageError struct {
	Err   error
	Stage Stage
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Outcome is the result of running one document through the pipeline.
type Outcome struct {
	Record           *model.ExtractedRecord
	Learned          *model.ProviderRule
	Mode             model.ExtractionMode
	IdentifiedByRule bool
}

// Pipeline identifies, extracts and validates a single document. It holds no
// per-document state and may be shared by concurrent workers.
type Pipeline struct {
	registry  Registry
	extractor FieldExtractor
	converter Converter
	logger    *slog.Logger
}

// NewPipeline wires a pipeline from its collaborators.
func NewPipeline(registry Registry, extractor FieldExtractor, converter Converter, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		registry:  registry,
		extractor: extractor,
		converter: converter,
		logger:    common.LoggerOrDefault(logger),
	}
}

// Process resolves text into a record.
//
// A provider known to the registry switches extraction to reduced mode. A
// provider named by the inference service is fed back to the registry as a
// learned rule before validation, so it is kept even if validation fails.
// Errors are *StageError values wrapping the common error kinds.
func (p *Pipeline) Process(ctx context.Context, text string) (*Outcome, error) {
	out := &Outcome{}

	p.enter(StageIdentifying)
	known, found := p.registry.Identify(text)
	out.IdentifiedByRule = found
	if found {
		p.logger.Info("provider identified from registry", "provider", known)
	} else {
		p.logger.Info("provider not in registry, asking inference service")
	}

	p.enter(StageExtracting)
	fields, mode, err := p.extractor.Extract(ctx, text, known)
	out.Mode = mode
	if err != nil {
		return out, p.fail(StageExtracting, err)
	}

	if mode == model.ModeFull {
		if fields.Provider == "" {
			return out, p.fail(StageExtracting, fmt.Errorf("%w: empty provider", common.ErrMalformedResponse))
		}
		out.Learned = p.registry.LearnFromResolution(text, fields.Provider)
	}

	p.enter(StageValidating)
	date, err := NormalizeDate(fields.Date)
	if err != nil {
		return out, p.fail(StageValidating, err)
	}

	amount, err := CleanAmount(fields.Amount)
	if err != nil {
		return out, p.fail(StageValidating, err)
	}

	CheckCurrency(fields.Currency, p.logger)

	out.Record = &model.ExtractedRecord{
		Provider:        fields.Provider,
		Date:            date,
		AmountSource:    amount,
		AmountConverted: p.converter.Convert(amount),
		TargetCurrency:  p.converter.Target(),
	}

	p.enter(StageDone)
	p.logger.Info("extracted invoice",
		"provider", out.Record.Provider,
		"date", out.Record.Date,
		"amount", out.Record.AmountSource.String(),
		"mode", mode)

	return out, nil
}

func (p *Pipeline) enter(stage Stage) {
	p.logger.Debug("pipeline stage", "stage", stage)
}

func (p *Pipeline) fail(stage Stage, err error) error {
	p.logger.Error("document failed", "stage", stage, "error", err)
	p.enter(StageFailed)
	return &StageError{Stage: stage, Err: err}
}
