package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/invoice-flow/internal/model"
)

var columns = []string{
	"filename",
	"provider",
	"date",
	"usd_amount",
	"converted_amount",
	"target_currency",
	"status",
	"error_message",
	"processing_time",
	"output_filename",
}

// row flattens a result into the export columns.
func row(r model.DocumentResult) []string {
	var provider, date, amount, converted, target string
	if rec := r.Record; rec != nil {
		provider = rec.Provider
		date = rec.Date
		amount = rec.AmountSource.StringFixed(2)
		converted = rec.AmountConverted.StringFixed(2)
		target = rec.TargetCurrency
	}

	return []string{
		r.Filename,
		provider,
		date,
		amount,
		converted,
		target,
		string(r.Status),
		r.ErrorMessage,
		fmt.Sprintf("%.3f", r.Duration.Seconds()),
		r.OutputFilename,
	}
}

// WriteCSV writes one line per result with a header row.
func WriteCSV(w io.Writer, results []model.DocumentResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonReport is the document written by WriteJSON.
type jsonReport struct {
	ExportTimestamp time.Time              `json:"export_timestamp"`
	Results         []model.DocumentResult `json:"results"`
	TotalFiles      int                    `json:"total_files"`
	Successful      int                    `json:"successful"`
	Failed          int                    `json:"failed"`
}

// WriteJSON writes the results with export time and totals.
func WriteJSON(w io.Writer, results []model.DocumentResult, exportedAt time.Time) error {
	report := jsonReport{
		ExportTimestamp: exportedAt,
		TotalFiles:      len(results),
		Results:         results,
	}
	if report.Results == nil {
		report.Results = []model.DocumentResult{}
	}
	for _, r := range results {
		switch r.Status {
		case model.StatusSuccess:
			report.Successful++
		case model.StatusFailed:
			report.Failed++
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

const resultsSheet = "Results"

// BuildWorkbook returns a workbook with one row per result.
func BuildWorkbook(results []model.DocumentResult) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(resultsSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("remove default sheet: %w", err)
	}

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(resultsSheet, cell, h)
	}

	for i, r := range results {
		rowNum := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, rowNum)
			_ = f.SetCellValue(resultsSheet, cell, v)
		}

		values := row(r)
		for col, v := range values {
			write(col+1, v)
		}

		// Amounts as numbers so spreadsheets can sum them.
		if rec := r.Record; rec != nil {
			write(4, rec.AmountSource.InexactFloat64())
			write(5, rec.AmountConverted.InexactFloat64())
		}
	}

	_ = f.SetColWidth(resultsSheet, "A", "A", 32)
	_ = f.SetColWidth(resultsSheet, "B", "B", 28)
	_ = f.SetColWidth(resultsSheet, "C", "F", 14)
	_ = f.SetColWidth(resultsSheet, "H", "H", 48)
	_ = f.SetColWidth(resultsSheet, "J", "J", 60)

	return f, nil
}

// SaveCSV writes results to path as CSV.
func SaveCSV(path string, results []model.DocumentResult) error {
	return writeFile(path, func(w io.Writer) error { return WriteCSV(w, results) })
}

// SaveJSON writes results to path as JSON.
func SaveJSON(path string, results []model.DocumentResult, exportedAt time.Time) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(w, results, exportedAt) })
}

// SaveXLSX writes results to path as an Excel workbook.
func SaveXLSX(path string, results []model.DocumentResult) error {
	f, err := BuildWorkbook(results)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(f)
}
