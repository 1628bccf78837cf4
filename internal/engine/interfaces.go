package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/invoice-flow/internal/model"
)

// Registry resolves providers from document text and learns new rules.
type Registry interface {
	Identify(text string) (string, bool)
	LearnFromResolution(text, provider string) *model.ProviderRule
}

// FieldExtractor asks the inference service for the fields of a document.
type FieldExtractor interface {
	Extract(ctx context.Context, text, knownProvider string) (model.ExtractionFields, model.ExtractionMode, error)
}

// Converter turns source-currency amounts into the reporting currency.
type Converter interface {
	Convert(amount decimal.Decimal) decimal.Decimal
	Target() string
}

// DocumentReader reads the text and content hash of a document.
type DocumentReader interface {
	Text(ctx context.Context, path string) (string, error)
	Hash(path string) (string, error)
}

// DocumentChecker inspects a document without extracting fields.
type DocumentChecker interface {
	Check(path string) model.DocumentCheck
}

// OutputWriter names processed documents and places them in the output folder.
type OutputWriter interface {
	Filename(record *model.ExtractedRecord) string
	Place(srcPath string, record *model.ExtractedRecord) (string, error)
}
