// Package registry maintains the learned set of provider identification rules
// and persists it as a JSON snapshot with atomic rewrites and a one-step backup.
//
// A Registry is safe for concurrent use. Identify only takes a read lock, so
// lookups from parallel document workers do not block each other; every
// mutation (add, remove, restore, persist) is serialized and rewrites the
// snapshot file while holding the write lock, so two workers can never
// interleave persists and drop each other's learned rules.
package registry

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Veraticus/invoice-flow/internal/common"
	"github.com/Veraticus/invoice-flow/internal/model"
	"github.com/Veraticus/invoice-flow/internal/pattern"
)

// Confidence assigned to rules that were not given one explicitly.
const (
	DefaultConfidence = 0.8
	LearnedConfidence = 0.85
	PartialConfidence = 0.75
)

// BackupSuffix is appended to the registry path to name the backup copy.
const BackupSuffix = ".bak"

// Registry owns the provider rules, their compiled patterns and the snapshot file.
type Registry struct {
	lastUpdated time.Time
	logger      *slog.Logger
	now         func() time.Time
	matcher     *pattern.Matcher
	usage       map[model.RuleKey]time.Time
	path        string
	version     string
	rules       []model.ProviderRule
	hits        atomic.Int64
	misses      atomic.Int64
	mu          sync.RWMutex
	usageMu     sync.Mutex
}

// Stats summarizes the registry contents and lookup effectiveness.
type Stats struct {
	LastUpdated time.Time
	Version     string
	Rules       int
	Compiled    int
	Skipped     int
	Hits        int64
	Misses      int64
}

// HitRate returns the share of lookups resolved by a rule, in percent.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// New creates an empty registry. Call Load to bind it to a snapshot file.
func New(logger *slog.Logger) *Registry {
	r := &Registry{
		logger:  common.LoggerOrDefault(logger),
		now:     func() time.Time { return time.Now().UTC() },
		usage:   make(map[model.RuleKey]time.Time),
		version: model.RegistryVersion,
		rules:   []model.ProviderRule{},
	}
	r.syncCompiledPatterns()
	return r
}

// Open creates a registry and loads the snapshot at path. Load problems are
// logged and leave the registry empty but usable.
func Open(path string, logger *slog.Logger) *Registry {
	r := New(logger)
	if err := r.Load(path); err != nil {
		r.logger.Error("continuing with empty provider registry", "path", path, "error", err)
	}
	return r
}

// Path returns the snapshot file location.
func (r *Registry) Path() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.path
}

// BackupPath returns the location of the backup copy.
func (r *Registry) BackupPath() string {
	return r.Path() + BackupSuffix
}

// Identify returns the canonical provider of the first rule matching text.
func (r *Registry) Identify(text string) (string, bool) {
	rule, ok := r.Lookup(text)
	if !ok {
		return "", false
	}
	return rule.Provider, true
}

// Lookup returns the first rule matching text, in insertion order.
func (r *Registry) Lookup(text string) (model.ProviderRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	match, ok := r.matcher.Identify(text)
	if !ok {
		r.misses.Add(1)
		return model.ProviderRule{}, false
	}

	r.hits.Add(1)
	rule := r.rules[match.Index]

	r.usageMu.Lock()
	r.usage[rule.Key()] = r.now()
	r.usageMu.Unlock()

	r.logger.Info("identified provider from registry",
		"provider", rule.Provider,
		"pattern", rule.Pattern)

	return rule, true
}

// Rules returns a copy of the stored rules in insertion order.
func (r *Registry) Rules() []model.ProviderRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.ProviderRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Stats returns counters describing the registry.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		LastUpdated: r.lastUpdated,
		Version:     r.version,
		Rules:       len(r.rules),
		Compiled:    r.matcher.Len(),
		Skipped:     r.matcher.Skipped(),
		Hits:        r.hits.Load(),
		Misses:      r.misses.Load(),
	}
}

// AddRule appends a rule and persists the registry. It reports whether a rule
// was added: an identical pattern and provider pair is silently ignored.
// Empty fields, unknown sources and patterns that do not compile are rejected
// with ErrInvalidRule and leave both memory and disk untouched. Confidence is
// clamped into [0, 1].
//
// When the rule is added but the snapshot cannot be written, AddRule returns
// true together with an error wrapping ErrPersistence; the rule stays in
// memory and the previous file remains on disk.
func (r *Registry) AddRule(patternText, provider string, confidence float64, source model.RuleSource) (bool, error) {
	if strings.TrimSpace(patternText) == "" || strings.TrimSpace(provider) == "" {
		r.logger.Error("rejecting rule with empty pattern or provider",
			"pattern", patternText,
			"provider", provider)
		return false, fmt.Errorf("%w: pattern and provider are required", common.ErrInvalidRule)
	}

	if source == "" {
		source = model.SourceLearned
	}
	if !source.Valid() {
		r.logger.Error("rejecting rule with unknown source", "source", source)
		return false, fmt.Errorf("%w: unknown source %q", common.ErrInvalidRule, source)
	}

	if _, err := common.CompileInsensitive(patternText); err != nil {
		r.logger.Error("invalid regex pattern provided",
			"pattern", patternText,
			"provider", provider,
			"error", err)
		return false, fmt.Errorf("%w: %w", common.ErrInvalidRule, err)
	}

	if confidence < 0 || confidence > 1 {
		clamped := min(max(confidence, 0), 1)
		r.logger.Warn("confidence out of range, clamping",
			"confidence", confidence,
			"clamped", clamped)
		confidence = clamped
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := model.RuleKey{Pattern: patternText, Provider: provider}
	for _, existing := range r.rules {
		if existing.Key() == key {
			r.logger.Debug("rule already exists, skipping",
				"pattern", patternText,
				"provider", provider)
			return false, nil
		}
	}

	now := r.now()
	r.rules = append(r.rules, model.ProviderRule{
		Pattern:    patternText,
		Provider:   provider,
		Confidence: confidence,
		LastUsed:   &now,
		Source:     source,
	})
	r.syncCompiledPatterns()

	r.logger.Info("added provider rule",
		"pattern", patternText,
		"provider", provider,
		"confidence", confidence,
		"source", source)

	return true, r.persistLocked()
}

// RemoveRule deletes every rule whose pattern equals patternText exactly and
// persists the result. It reports whether anything was removed.
func (r *Registry) RemoveRule(patternText string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.rules[:0:0]
	for _, rule := range r.rules {
		if rule.Pattern != patternText {
			kept = append(kept, rule)
		}
	}

	removed := len(r.rules) - len(kept)
	if removed == 0 {
		r.logger.Warn("pattern not found in registry", "pattern", patternText)
		return false, nil
	}

	r.rules = kept
	r.syncCompiledPatterns()

	r.logger.Info("removed provider rules", "pattern", patternText, "count", removed)

	return true, r.persistLocked()
}

// syncCompiledPatterns rebuilds the matcher from the current rules. Every
// change to r.rules goes through here so lookups never see a stale pattern set.
// Callers hold the write lock (or own r exclusively).
func (r *Registry) syncCompiledPatterns() {
	r.matcher = pattern.NewMatcher(r.rules, r.logger)
}
