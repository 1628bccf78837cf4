// Package model defines the provider rules, registry snapshots and extraction records shared across the application.
package model

import "time"

// RuleSource indicates how a provider rule was created.
type RuleSource string

const (
	// SourceManual indicates the rule was added by a person.
	SourceManual RuleSource = "manual"
	// SourceLearned indicates the provider name itself was found in the document text.
	SourceLearned RuleSource = "learned"
	// SourceLearnedPartial indicates a single token of the provider name was found.
	SourceLearnedPartial RuleSource = "learned_partial"
)

// Valid reports whether s is a known rule source.
func (s RuleSource) Valid() bool {
	switch s {
	case SourceManual, SourceLearned, SourceLearnedPartial:
		return true
	}
	return false
}

// ProviderRule maps a case-insensitive regular expression to a canonical provider name.
type ProviderRule struct {
	LastUsed   *time.Time `json:"last_used"`
	Pattern    string     `json:"pattern"`
	Provider   string     `json:"provider"`
	Source     RuleSource `json:"source"`
	Confidence float64    `json:"confidence"`
}

// RuleKey identifies a rule by its pattern and provider pair.
type RuleKey struct {
	Pattern  string
	Provider string
}

// Key returns the identity of the rule.
func (r ProviderRule) Key() RuleKey {
	return RuleKey{Pattern: r.Pattern, Provider: r.Provider}
}
