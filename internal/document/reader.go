// Package document reads invoice text from disk and checks documents before
// they are processed.
package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/invoice-flow/internal/common"
)

// Reader extracts plain text from supported documents.
type Reader struct {
	runner    Runner
	logger    *slog.Logger
	pdftotext string
}

// NewReader creates a Reader. An empty pdftotext means the binary on PATH.
func NewReader(runner Runner, pdftotext string, logger *slog.Logger) *Reader {
	logger = common.LoggerOrDefault(logger)
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	if pdftotext == "" {
		pdftotext = "pdftotext"
	}
	return &Reader{runner: runner, logger: logger, pdftotext: pdftotext}
}

// Supported reports whether path has an extension the reader understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt":
		return true
	}
	return false
}

// Text returns the text of path. PDFs go through pdftotext; .txt files are
// read as is. Documents without any text return ErrEmptyDocument.
func (r *Reader) Text(ctx context.Context, path string) (string, error) {
	var (
		text string
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = r.pdfText(ctx, path)
	case ".txt":
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %s", common.ErrUnsupportedDocument, filepath.Ext(path))
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", common.ErrEmptyDocument, filepath.Base(path))
	}

	r.logger.Debug("read document text", "file", filepath.Base(path), "chars", len(text))
	return text, nil
}

// pdfText runs pdftotext -layout -enc UTF-8 <path> - and returns stdout.
func (r *Reader) pdfText(ctx context.Context, path string) (string, error) {
	stdout, stderr, err := r.runner.Run(ctx, r.pdftotext, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			return "", fmt.Errorf("pdftotext %s: %w", filepath.Base(path), err)
		}
		return "", fmt.Errorf("pdftotext %s: %w: %s", filepath.Base(path), err, msg)
	}
	return string(stdout), nil
}

// Hash returns the hex SHA-256 of the file contents.
func (r *Reader) Hash(path string) (string, error) {
	return HashFile(path)
}

// HashFile returns the hex SHA-256 of the file contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// List returns the supported documents directly inside dir, sorted by name.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}
