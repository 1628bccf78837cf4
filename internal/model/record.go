package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical dd_MM_yyyy date representation.
const DateLayout = "02_01_2006"

// SourceCurrency is the only currency amounts are extracted in.
const SourceCurrency = "USD"

// ExtractionMode selects how many fields the inference service is asked for.
type ExtractionMode string

const (
	// ModeReduced asks for date, amount and currency when the provider is already known.
	ModeReduced ExtractionMode = "reduced"
	// ModeFull additionally asks the service to name the provider.
	ModeFull ExtractionMode = "full"
)

// FieldCount returns the number of delimited fields expected in a response.
func (m ExtractionMode) FieldCount() int {
	if m == ModeReduced {
		return 3
	}
	return 4
}

// ExtractionFields holds the raw, unvalidated fields parsed from an inference response.
type ExtractionFields struct {
	Provider string
	Date     string
	Amount   string
	Currency string
}

// ExtractedRecord is a fully resolved and validated document.
type ExtractedRecord struct {
	AmountSource    decimal.Decimal `json:"amount_source"`
	AmountConverted decimal.Decimal `json:"amount_converted"`
	Provider        string          `json:"provider"`
	Date            string          `json:"date"`
	TargetCurrency  string          `json:"target_currency"`
}

// ResultStatus is the outcome of processing one document.
type ResultStatus string

const (
	// StatusSuccess indicates the document was processed.
	StatusSuccess ResultStatus = "success"
	// StatusFailed indicates processing stopped with an error.
	StatusFailed ResultStatus = "failed"
	// StatusSkipped indicates the document was processed in an earlier run.
	StatusSkipped ResultStatus = "skipped"
)

// DocumentCheck describes a document inspected without running extraction.
type DocumentCheck struct {
	Error    string `json:"error,omitempty"`
	FileSize int64  `json:"file_size"`
	Pages    int    `json:"pages"`
	Valid    bool   `json:"valid"`
	Readable bool   `json:"readable"`
	HasText  bool   `json:"has_text"`
}

// DocumentResult is the per-document outcome reported to batch callers.
type DocumentResult struct {
	StartedAt      time.Time        `json:"start_time"`
	Err            error            `json:"-"`
	Record         *ExtractedRecord `json:"record,omitempty"`
	Check          *DocumentCheck   `json:"check,omitempty"`
	Filename       string           `json:"filename"`
	ContentHash    string           `json:"content_hash,omitempty"`
	Status         ResultStatus     `json:"status"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	OutputFilename string           `json:"output_filename,omitempty"`
	Mode           ExtractionMode   `json:"mode,omitempty"`
	Duration       time.Duration    `json:"processing_time"`
	Learned        bool             `json:"learned"`
}

// LedgerEntry is a row of the processed-document ledger.
type LedgerEntry struct {
	ProcessedAt     time.Time
	ContentHash     string
	Filename        string
	Provider        string
	InvoiceDate     string
	AmountSource    string
	AmountConverted string
	Status          ResultStatus
	Error           string
}
