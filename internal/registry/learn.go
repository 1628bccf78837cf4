package registry

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/invoice-flow/internal/common"
	"github.com/Veraticus/invoice-flow/internal/model"
)

// minTokenLength is the shortest provider token considered for a partial rule.
const minTokenLength = 4

// LearnFromResolution records a rule for a provider that was resolved without
// the registry.
//
// If the provider name itself occurs in text, a literal rule for the whole
// name is added with LearnedConfidence. Otherwise the first whitespace token
// of text longer than three characters that occurs inside the provider name
// and has no rule yet becomes a PartialConfidence rule.
//
// It returns the rule that was added, or nil when nothing new was learned.
// Errors from persisting a learned rule are logged and not returned.
func (r *Registry) LearnFromResolution(text, provider string) *model.ProviderRule {
	provider = strings.TrimSpace(provider)
	if provider == "" || strings.TrimSpace(text) == "" {
		return nil
	}

	literal := regexp.QuoteMeta(provider)
	if found, _ := common.MatchRegex(literal, text); found {
		return r.learn(literal, provider, LearnedConfidence, model.SourceLearned)
	}

	lowerProvider := strings.ToLower(provider)
	for _, token := range strings.Fields(text) {
		if utf8.RuneCountInString(token) < minTokenLength {
			continue
		}
		if !strings.Contains(lowerProvider, strings.ToLower(token)) {
			continue
		}
		if rule := r.learn(regexp.QuoteMeta(token), provider, PartialConfidence, model.SourceLearnedPartial); rule != nil {
			return rule
		}
	}

	r.logger.Debug("no learnable pattern for provider", "provider", provider)
	return nil
}

func (r *Registry) learn(patternText, provider string, confidence float64, source model.RuleSource) *model.ProviderRule {
	added, err := r.AddRule(patternText, provider, confidence, source)
	if err != nil {
		r.logger.Error("failed to learn provider rule",
			"pattern", patternText,
			"provider", provider,
			"error", err)
	}
	if !added {
		return nil
	}

	r.logger.Info("learned new provider pattern",
		"pattern", patternText,
		"provider", provider,
		"source", source)

	return &model.ProviderRule{
		Pattern:    patternText,
		Provider:   provider,
		Confidence: confidence,
		Source:     source,
	}
}
