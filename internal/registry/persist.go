package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/Veraticus/invoice-flow/internal/common"
	"github.com/Veraticus/invoice-flow/internal/model"
)

// snapshotFile is the on-disk layout. Rules stay raw until decodeRules so a
// damaged entry does not cost the others.
type snapshotFile struct {
	LastUpdated string            `json:"lastUpdated"`
	Version     string            `json:"version"`
	Rules       []json.RawMessage `json:"rules"`
}

// ruleFile is a rule as written on disk, with last_used kept as text.
type ruleFile struct {
	LastUsed   *string          `json:"last_used"`
	Pattern    string           `json:"pattern"`
	Provider   string           `json:"provider"`
	Source     model.RuleSource `json:"source"`
	Confidence float64          `json:"confidence"`
}

// renameFile is os.Rename; tests replace it to simulate a failed write.
var renameFile = os.Rename

// Load reads the snapshot at path and replaces the in-memory rules.
//
// Load never leaves the registry unusable. A missing file is created as a
// fresh empty snapshot. Unreadable or malformed files, or a missing rules
// array, leave the registry empty and return an error wrapping
// ErrRegistryLoad so the caller can report it. A different major version is
// logged and loaded anyway.
func (r *Registry) Load(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.path = path
	r.resetLocked()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn("registry file not found, creating a new one", "path", path)
		if err := r.persistLocked(); err != nil {
			r.logger.Error("failed to create registry file", "path", path, "error", err)
		}
		return nil
	}
	if err != nil {
		r.logger.Error("failed to read registry file", "path", path, "error", err)
		return fmt.Errorf("%w: %w", common.ErrRegistryLoad, err)
	}

	return r.applyLocked(data)
}

// applyLocked decodes data into the registry. On failure the registry is left
// empty.
func (r *Registry) applyLocked(data []byte) error {
	r.resetLocked()

	if err := validateSnapshot(data); err != nil {
		r.logger.Error("invalid registry file, no rules loaded", "path", r.path, "error", err)
		return fmt.Errorf("%w: %w", common.ErrRegistryLoad, err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		r.logger.Error("failed to decode registry file, no rules loaded", "path", r.path, "error", err)
		return fmt.Errorf("%w: %w", common.ErrRegistryLoad, err)
	}

	r.checkVersion(file.Version)

	if file.Version != "" {
		r.version = file.Version
	}
	if file.LastUpdated != "" {
		ts, err := time.Parse(time.RFC3339Nano, file.LastUpdated)
		if err != nil {
			r.logger.Warn("ignoring unparsable lastUpdated", "value", file.LastUpdated, "error", err)
		} else {
			r.lastUpdated = ts
		}
	}
	r.rules = r.normalizeRules(r.decodeRules(file.Rules))
	r.syncCompiledPatterns()

	r.logger.Info("loaded provider registry",
		"path", r.path,
		"rules", len(r.rules),
		"version", r.version)

	return nil
}

// decodeRules decodes each entry on its own. Entries that are not rule
// objects are dropped with a warning; a bad last_used only loses the
// timestamp. Empty patterns or providers are kept and skipped by the matcher.
func (r *Registry) decodeRules(raw []json.RawMessage) []model.ProviderRule {
	rules := make([]model.ProviderRule, 0, len(raw))
	for i, entry := range raw {
		var rf ruleFile
		if err := json.Unmarshal(entry, &rf); err != nil {
			r.logger.Warn("dropping undecodable rule",
				"path", r.path,
				"index", i,
				"error", err)
			continue
		}

		rule := model.ProviderRule{
			Pattern:    rf.Pattern,
			Provider:   rf.Provider,
			Source:     rf.Source,
			Confidence: rf.Confidence,
		}
		if rf.LastUsed != nil && *rf.LastUsed != "" {
			ts, err := time.Parse(time.RFC3339Nano, *rf.LastUsed)
			if err != nil {
				r.logger.Warn("ignoring unparsable last_used",
					"pattern", rf.Pattern,
					"value", *rf.LastUsed,
					"error", err)
			} else {
				rule.LastUsed = &ts
			}
		}
		rules = append(rules, rule)
	}
	return rules
}

// normalizeRules applies the invariants AddRule enforces: confidence is
// clamped into [0, 1] and only the first of identical pattern and provider
// pairs is kept.
func (r *Registry) normalizeRules(rules []model.ProviderRule) []model.ProviderRule {
	seen := make(map[model.RuleKey]struct{}, len(rules))
	kept := rules[:0]
	for _, rule := range rules {
		if _, dup := seen[rule.Key()]; dup {
			r.logger.Warn("dropping duplicate rule",
				"pattern", rule.Pattern,
				"provider", rule.Provider)
			continue
		}
		seen[rule.Key()] = struct{}{}

		if rule.Confidence < 0 || rule.Confidence > 1 {
			clamped := min(max(rule.Confidence, 0), 1)
			r.logger.Warn("confidence out of range, clamping",
				"pattern", rule.Pattern,
				"confidence", rule.Confidence,
				"clamped", clamped)
			rule.Confidence = clamped
		}
		kept = append(kept, rule)
	}
	return kept
}

func (r *Registry) resetLocked() {
	r.version = model.RegistryVersion
	r.lastUpdated = time.Time{}
	r.rules = []model.ProviderRule{}
	r.syncCompiledPatterns()

	r.usageMu.Lock()
	r.usage = make(map[model.RuleKey]time.Time)
	r.usageMu.Unlock()
}

// checkVersion warns when the snapshot was written by a different major version.
func (r *Registry) checkVersion(version string) {
	if version == "" {
		r.logger.Warn("registry file has no version", "path", r.path)
		return
	}

	v := "v" + strings.TrimPrefix(version, "v")
	if !semver.IsValid(v) {
		r.logger.Warn("registry file has an invalid version", "path", r.path, "version", version)
		return
	}

	expected := semver.Major("v" + model.RegistryVersion)
	if got := semver.Major(v); got != expected {
		r.logger.Warn("registry major version mismatch, loading anyway",
			"path", r.path,
			"version", version,
			"expected_major", expected)
	}
}

// Persist writes the full snapshot to disk.
func (r *Registry) Persist() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persistLocked()
}

// persistLocked backs up the live file, writes the snapshot to a temporary
// file next to it and renames it into place. Either the whole snapshot is
// replaced or the previous file is left as it was.
func (r *Registry) persistLocked() error {
	if r.path == "" {
		return fmt.Errorf("%w: registry has no path", common.ErrPersistence)
	}

	now := r.now()

	r.usageMu.Lock()
	rules := make([]model.ProviderRule, len(r.rules))
	copy(rules, r.rules)
	for i := range rules {
		if used, ok := r.usage[rules[i].Key()]; ok {
			rules[i].LastUsed = &used
		}
	}
	r.usageMu.Unlock()

	snap := model.NewSnapshot()
	snap.Version = r.version
	snap.LastUpdated = now
	snap.Rules = rules

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		r.logger.Error("failed to encode registry", "error", err)
		return fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}

	if err := r.backupLocked(); err != nil {
		r.logger.Warn("failed to back up registry before write",
			"path", r.path,
			"backup", r.path+BackupSuffix,
			"error", err)
	}

	if err := replaceFile(r.path, data); err != nil {
		r.logger.Error("failed to write registry", "path", r.path, "error", err)
		return fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}

	r.rules = rules
	r.lastUpdated = now
	r.usageMu.Lock()
	r.usage = make(map[model.RuleKey]time.Time)
	r.usageMu.Unlock()

	r.logger.Debug("persisted provider registry", "path", r.path, "rules", len(rules))
	return nil
}

// backupLocked copies the live file to its .bak sibling, if there is one.
func (r *Registry) backupLocked() error {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return replaceFile(r.path+BackupSuffix, data)
}

// RestoreFromBackup copies the backup over the live file and reloads from it.
// It returns ErrNoBackup, without touching any state, when there is no backup.
func (r *Registry) RestoreFromBackup() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	backup := r.path + BackupSuffix
	data, err := os.ReadFile(backup)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Error("Backup file not found", "backup", backup)
		return fmt.Errorf("%w: %s", common.ErrNoBackup, backup)
	}
	if err != nil {
		r.logger.Error("failed to read backup", "backup", backup, "error", err)
		return fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}

	if err := replaceFile(r.path, data); err != nil {
		r.logger.Error("failed to restore backup", "path", r.path, "error", err)
		return fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}

	r.logger.Info("restored registry from backup", "path", r.path, "backup", backup)

	return r.applyLocked(data)
}

// replaceFile atomically replaces path with data via a temporary file in the
// same directory.
func replaceFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err = renameFile(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
