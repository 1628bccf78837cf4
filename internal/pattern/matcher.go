package pattern

import (
	"log/slog"
	"regexp"

	"github.com/Veraticus/invoice-flow/internal/common"
)

type compiledRule struct {
	re    *regexp.Regexp
	rule  Rule
	index int
}

// Matcher evaluates document text against an ordered set of provider rules.
// It is immutable once built; callers rebuild it when the rule set changes.
type Matcher struct {
	compiled []compiledRule
	skipped  int
}

// NewMatcher compiles rules in order. Rules with an empty pattern or provider,
// or a pattern that does not compile, are skipped with a warning so that one
// bad rule does not disable the rest.
func NewMatcher(rules []Rule, logger *slog.Logger) *Matcher {
	logger = common.LoggerOrDefault(logger)

	m := &Matcher{
		compiled: make([]compiledRule, 0, len(rules)),
	}

	for i, rule := range rules {
		if rule.Pattern == "" || rule.Provider == "" {
			logger.Warn("skipping rule with missing pattern or provider",
				"index", i,
				"pattern", rule.Pattern,
				"provider", rule.Provider)
			m.skipped++
			continue
		}

		re, err := common.CompileInsensitive(rule.Pattern)
		if err != nil {
			logger.Warn("skipping rule with invalid pattern",
				"pattern", rule.Pattern,
				"provider", rule.Provider,
				"error", err)
			m.skipped++
			continue
		}

		m.compiled = append(m.compiled, compiledRule{re: re, rule: rule, index: i})
	}

	logger.Debug("compiled provider patterns", "compiled", len(m.compiled), "skipped", m.skipped)

	return m
}

// Identify returns the first rule, in stored order, whose pattern occurs anywhere in text.
func (m *Matcher) Identify(text string) (Match, bool) {
	for _, c := range m.compiled {
		if c.re.MatchString(text) {
			return Match{Rule: c.rule, Index: c.index}, true
		}
	}
	return Match{}, false
}

// Len returns the number of usable compiled patterns.
func (m *Matcher) Len() int {
	return len(m.compiled)
}

// Skipped returns the number of rules that could not be compiled.
func (m *Matcher) Skipped() int {
	return m.skipped
}
