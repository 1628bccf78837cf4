// Package currency converts source-currency amounts into the reporting currency.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/invoice-flow/internal/common"
)

// Defaults used when no rate is configured.
const (
	DefaultTarget = "BRL"
	DefaultRate   = "5.74"
)

// Converter applies a fixed exchange rate.
type Converter struct {
	rate   decimal.Decimal
	target string
}

// NewConverter returns a converter into target at rate. An empty target or a
// zero rate fall back to the defaults; a negative rate is rejected.
func NewConverter(target string, rate decimal.Decimal) (*Converter, error) {
	target = strings.ToUpper(strings.TrimSpace(target))
	if target == "" {
		target = DefaultTarget
	}

	if rate.IsZero() {
		rate = decimal.RequireFromString(DefaultRate)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("%w: exchange rate must be positive, got %s", common.ErrInvalidConfig, rate)
	}

	return &Converter{rate: rate, target: target}, nil
}

// Default returns a converter into BRL at the fallback rate.
func Default() *Converter {
	return &Converter{rate: decimal.RequireFromString(DefaultRate), target: DefaultTarget}
}

// Convert returns amount in the target currency, rounded to cents.
func (c *Converter) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(c.rate).Round(2)
}

// Target returns the ISO code amounts are converted into.
func (c *Converter) Target() string {
	return c.target
}

// Rate returns the configured exchange rate.
func (c *Converter) Rate() decimal.Decimal {
	return c.rate
}
