package extraction

import (
	"fmt"
	"strings"

	"github.com/Veraticus/invoice-flow/internal/common"
	"github.com/Veraticus/invoice-flow/internal/model"
)

// ParseResponse splits content into the fields expected for mode. When the
// first split yields the wrong number of fields, newlines are replaced with
// spaces and the split is tried once more. Fields are trimmed.
func ParseResponse(content string, mode model.ExtractionMode) (model.ExtractionFields, error) {
	want := mode.FieldCount()
	content = strings.TrimSpace(content)

	parts := strings.Split(content, Delimiter)
	if len(parts) != want {
		parts = strings.Split(strings.ReplaceAll(content, "\n", " "), Delimiter)
	}
	if len(parts) != want {
		return model.ExtractionFields{}, fmt.Errorf("%w: expected %d elements separated by %q, got %d in %q",
			common.ErrMalformedResponse, want, Delimiter, len(parts), content)
	}

	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if mode == model.ModeReduced {
		return model.ExtractionFields{
			Date:     parts[0],
			Amount:   parts[1],
			Currency: parts[2],
		}, nil
	}

	return model.ExtractionFields{
		Provider: parts[0],
		Date:     parts[1],
		Amount:   parts[2],
		Currency: parts[3],
	}, nil
}
