// Package pattern compiles provider rules and identifies providers in document text.
package pattern

import "github.com/Veraticus/invoice-flow/internal/model"

// Identifier resolves a canonical provider name from document text.
type Identifier interface {
	// Identify returns the rule that first matches text in stored order.
	Identify(text string) (Match, bool)
}

// Match is a successful identification.
type Match struct {
	Rule  Rule
	Index int
}

// Rule is an alias to the model.ProviderRule type for convenience.
type Rule = model.ProviderRule
