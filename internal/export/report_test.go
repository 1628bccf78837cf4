package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/invoice-flow/internal/model"
)

func sampleResults() []model.DocumentResult {
	other := testRecord("Globex")
	other.AmountSource = decimal.RequireFromString("99.5")
	other.AmountConverted = decimal.RequireFromString("571.13")

	return []model.DocumentResult{
		{
			Filename:       "a.pdf",
			Status:         model.StatusSuccess,
			Record:         testRecord("Acme Services"),
			Duration:       1500 * time.Millisecond,
			OutputFilename: "Acme Services - 01_01_2024 - USD 250.00 - BRL 1435.00.pdf",
		},
		{
			Filename: "b.pdf",
			Status:   model.StatusSuccess,
			Record:   other,
			Duration: 500 * time.Millisecond,
		},
		{
			Filename:     "c.pdf",
			Status:       model.StatusFailed,
			Err:          errors.New("boom"),
			ErrorMessage: "extracting: malformed response",
			Duration:     time.Second,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResults()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, columns, rows[0])
	assert.Equal(t, []string{
		"a.pdf", "Acme Services", "01_01_2024", "250.00", "1435.00", "BRL",
		"success", "", "1.500", "Acme Services - 01_01_2024 - USD 250.00 - BRL 1435.00.pdf",
	}, rows[1])
	assert.Equal(t, "failed", rows[3][6])
	assert.Equal(t, "extracting: malformed response", rows[3][7])
	assert.Empty(t, rows[3][1])
}

func TestWriteJSON(t *testing.T) {
	exportedAt := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResults(), exportedAt))

	var decoded struct {
		ExportTimestamp time.Time        `json:"export_timestamp"`
		Results         []map[string]any `json:"results"`
		TotalFiles      int              `json:"total_files"`
		Successful      int              `json:"successful"`
		Failed          int              `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.True(t, exportedAt.Equal(decoded.ExportTimestamp))
	assert.Equal(t, 3, decoded.TotalFiles)
	assert.Equal(t, 2, decoded.Successful)
	assert.Equal(t, 1, decoded.Failed)
	require.Len(t, decoded.Results, 3)
	assert.Equal(t, "a.pdf", decoded.Results[0]["filename"])

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil, exportedAt))
	assert.Contains(t, buf.String(), `"results": []`)
}

func TestSaveXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, SaveXLSX(path, sampleResults()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{resultsSheet}, f.GetSheetList())

	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "filename", rows[0][0])
	assert.Equal(t, "Acme Services", rows[1][1])
	assert.Equal(t, "250", rows[1][3])
	assert.Equal(t, "99.5", rows[2][3])
}

func TestSaveCSVAndJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveCSV(filepath.Join(dir, "r.csv"), sampleResults()))
	require.NoError(t, SaveJSON(filepath.Join(dir, "r.json"), sampleResults(), time.Now()))

	assert.FileExists(t, filepath.Join(dir, "r.csv"))
	assert.FileExists(t, filepath.Join(dir, "r.json"))

	err := SaveCSV(filepath.Join(dir, "missing", "r.csv"), nil)
	assert.Error(t, err)
}
