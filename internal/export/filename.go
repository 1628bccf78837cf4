// Package export names and copies processed documents and writes batch
// results as CSV, JSON or XLSX.
package export

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/Veraticus/invoice-flow/internal/common"
	"github.com/Veraticus/invoice-flow/internal/model"
)

// replacements are applied in order; "c/o" must run before "/".
var replacements = []struct{ old, new string }{
	{"c/o", "-"},
	{"/", "-"},
	{"\\", "-"},
	{":", "-"},
	{"*", ""},
	{"?", ""},
	{"\"", ""},
	{"<", ""},
	{">", ""},
	{"|", "-"},
}

// Sanitize makes name safe to use as a file name.
func Sanitize(name string) string {
	for _, r := range replacements {
		name = strings.ReplaceAll(name, r.old, r.new)
	}

	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("- ./_", r) {
			return r
		}
		return -1
	}, name)

	return strings.TrimSpace(name)
}

// BuildFilename formats record as
// "{provider} - {date} - USD {amount} - {TARGET} {converted}.pdf", sanitized.
func BuildFilename(record *model.ExtractedRecord) string {
	name := fmt.Sprintf("%s - %s - %s %s - %s %s.pdf",
		record.Provider,
		record.Date,
		model.SourceCurrency,
		record.AmountSource.StringFixed(2),
		record.TargetCurrency,
		record.AmountConverted.StringFixed(2))
	return Sanitize(name)
}

// Writer copies processed documents into an output folder.
type Writer struct {
	logger *slog.Logger
	now    func() time.Time
	dir    string
}

// NewWriter creates a Writer for dir, creating it if needed.
func NewWriter(dir string, logger *slog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}
	return &Writer{
		logger: common.LoggerOrDefault(logger),
		now:    time.Now,
		dir:    dir,
	}, nil
}

// Filename returns the name record would be stored under.
func (w *Writer) Filename(record *model.ExtractedRecord) string {
	return BuildFilename(record)
}

// Place copies srcPath into the output folder under the record's name. An
// existing file is never overwritten; a _YYYYmmddHHMMSS suffix is added
// instead. It returns the destination path.
func (w *Writer) Place(srcPath string, record *model.ExtractedRecord) (string, error) {
	name := BuildFilename(record)
	dest := filepath.Join(w.dir, name)

	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		alt := fmt.Sprintf("%s_%s%s", strings.TrimSuffix(name, ext), w.now().Format("20060102150405"), ext)
		w.logger.Warn("output file already exists, using alternative name",
			"file", name,
			"alternative", alt)
		dest = filepath.Join(w.dir, alt)
	}

	if err := copyFile(srcPath, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// copyFile copies src to dest, keeping the modification time. dest must not exist.
func copyFile(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", dest, cerr)
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("copy to %s: %w", dest, err)
	}

	_ = os.Chtimes(dest, info.ModTime(), info.ModTime())
	return nil
}
