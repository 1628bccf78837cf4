package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Veraticus/invoice-flow/internal/model"
)

// Check reports whether path is a usable document: it exists, is not empty,
// has pages (PDFs) and yields text.
func (r *Reader) Check(path string) model.DocumentCheck {
	var check model.DocumentCheck

	info, err := os.Stat(path)
	if err != nil {
		check.Error = "file does not exist"
		return check
	}
	if info.IsDir() {
		check.Error = "path is a directory"
		return check
	}
	check.FileSize = info.Size()
	if check.FileSize == 0 {
		check.Error = "file is empty"
		return check
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err := pageCount(path)
		if err != nil {
			check.Error = fmt.Sprintf("cannot read PDF: %v", err)
			return check
		}
		check.Pages = pages
		if pages == 0 {
			check.Error = "PDF has no pages"
			return check
		}
	case ".txt":
		check.Pages = 1
	default:
		check.Error = fmt.Sprintf("unsupported file type %q", filepath.Ext(path))
		return check
	}

	check.Readable = true

	text, err := r.Text(context.Background(), path)
	if err != nil {
		check.Error = err.Error()
		return check
	}
	check.HasText = strings.TrimSpace(text) != ""
	check.Valid = check.HasText

	return check
}

func pageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	return api.PageCount(f, nil)
}
