package extraction

import (
	"fmt"
	"strings"

	"github.com/Veraticus/invoice-flow/internal/model"
)

// Delimiter separates the fields of an inference response.
const Delimiter = " - "

// BuildPrompt returns the request text for mode. knownProvider is only used in
// reduced mode.
func BuildPrompt(text, knownProvider string, mode model.ExtractionMode) string {
	n := mode.FieldCount()

	var b strings.Builder
	if mode == model.ModeReduced {
		fmt.Fprintf(&b, "I already know the service provider is '%s'.\n", knownProvider)
		fmt.Fprintf(&b, "Extract ONLY the following details from the invoice text and return them in a strict format of %d elements separated by '%s':\n", n, Delimiter)
	} else {
		fmt.Fprintf(&b, "Extract the following details from the invoice text and return them in a strict format of %d elements separated by '%s':\n", n, Delimiter)
	}

	fields := []string{
		"Date in dd_MM_yyyy format",
		"Amount in USD (just the number)",
		"'" + model.SourceCurrency + "'",
	}
	if mode == model.ModeFull {
		fields = append([]string{"Service Provider"}, fields...)
	}
	for i, field := range fields {
		fmt.Fprintf(&b, "%d. %s\n", i+1, field)
	}

	fmt.Fprintf(&b, "\nText from invoice:\n%s\n\n", text)
	fmt.Fprintf(&b, "Important: Respond ONLY with the %d elements separated by '%s' without any additional text.", n, Delimiter)

	return b.String()
}
