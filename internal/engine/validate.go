package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/invoice-flow/internal/common"
	"github.com/Veraticus/invoice-flow/internal/model"
)

// NormalizeDate returns value in dd_MM_yyyy form.
//
// A value that does not parse but contains slashes is read as day/month/year
// with day and month zero-padded, then parsed again. The year is never
// expanded, so "5/3/25" becomes "05_03_25" and is rejected.
func NormalizeDate(value string) (string, error) {
	value = strings.TrimSpace(value)

	if t, err := time.Parse(model.DateLayout, value); err == nil {
		return t.Format(model.DateLayout), nil
	}

	if !strings.Contains(value, "/") {
		return "", fmt.Errorf("%w: %q is not dd_MM_yyyy", common.ErrInvalidDate, value)
	}

	parts := strings.Split(value, "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: %q is not day/month/year", common.ErrInvalidDate, value)
	}

	repaired := fmt.Sprintf("%s_%s_%s", zeroPad(parts[0]), zeroPad(parts[1]), strings.TrimSpace(parts[2]))

	t, err := time.Parse(model.DateLayout, repaired)
	if err != nil {
		return "", fmt.Errorf("%w: %q repaired to %q: %w", common.ErrInvalidDate, value, repaired, err)
	}

	return t.Format(model.DateLayout), nil
}

func zeroPad(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// CleanAmount keeps only the digits and decimal points of value and parses
// the result, so "$1,234.56 USD" becomes 1234.56.
func CleanAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, value)

	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: no digits in %q", common.ErrInvalidAmount, value)
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q: %w", common.ErrInvalidAmount, value, err)
	}

	return amount, nil
}

// CheckCurrency warns when code is not the source currency. Amounts are still
// treated as USD.
func CheckCurrency(code string, logger *slog.Logger) bool {
	if strings.EqualFold(strings.TrimSpace(code), model.SourceCurrency) {
		return true
	}
	common.LoggerOrDefault(logger).Warn("unexpected currency, assuming USD",
		"currency", code,
		"expected", model.SourceCurrency)
	return false
}
