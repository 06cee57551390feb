// Package checkpoint implements C13's resumable-evaluation state: an
// atomically-written checkpoint file tracking which benchmark items have
// completed, and the config-compatibility check that decides whether an
// existing checkpoint may be resumed. Grounded on
// original_source/eval/resumable.py and persistence.py.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/giant-wsi/giant/internal/evalserver"
)

// State is the full persisted state of one (possibly in-progress)
// evaluation run.
type State struct {
	RunID         string         `json:"run_id"`
	BenchmarkName string         `json:"benchmark_name"`
	CompletedIDs  map[string]bool `json:"completed_ids"`
	Results       []json.RawMessage `json:"results"`
	Config        map[string]any `json:"config"`
}

// InvalidRunIDError reports a run_id that would escape the checkpoint
// directory.
type InvalidRunIDError struct{ RunID string }

func (e *InvalidRunIDError) Error() string { return fmt.Sprintf("checkpoint: invalid run_id %q", e.RunID) }

// ValidateRunID rejects a run_id containing a path separator, "..", or that
// differs from its own filepath.Base (mirrors original_source's
// validate_run_id: absolute paths and ".." components are rejected).
func ValidateRunID(runID string) error {
	if runID == "" || filepath.IsAbs(runID) || strings.Contains(runID, "..") || filepath.Base(runID) != runID {
		return &InvalidRunIDError{RunID: runID}
	}
	return nil
}

var unsafeFilenameCharsRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeFilenameComponent replaces each run of characters outside
// [A-Za-z0-9._-] with "_", then trims leading/trailing "._-", falling back
// to "item" if the result would be empty — mirrors original_source's safe_filename_component.
func SafeFilenameComponent(s string) string {
	cleaned := unsafeFilenameCharsRe.ReplaceAllString(s, "_")
	cleaned = strings.Trim(cleaned, "._-")
	if cleaned == "" {
		return "item"
	}
	return cleaned
}

// Manager persists and loads checkpoint state for a run under a configured
// directory, using atomic (write-tmp, rename) saves.
type Manager struct {
	CheckpointDir string
}

func (m *Manager) path(runID string) (string, error) {
	if err := ValidateRunID(runID); err != nil {
		return "", err
	}
	return filepath.Join(m.CheckpointDir, runID+"_checkpoint.json"), nil
}

// Exists reports whether a checkpoint file already exists for runID.
func (m *Manager) Exists(runID string) (bool, error) {
	p, err := m.path(runID)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Load reads and parses the checkpoint for runID.
func (m *Manager) Load(runID string) (*State, error) {
	p, err := m.path(runID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read %s: %w", p, err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("checkpoint: parse %s: %w", p, err)
	}
	return &s, nil
}

// BenchmarkMismatchError reports resuming a checkpoint recorded against a
// different benchmark.
type BenchmarkMismatchError struct{ Existing, Requested string }

func (e *BenchmarkMismatchError) Error() string {
	return fmt.Sprintf("checkpoint: benchmark mismatch: existing %q, requested %q", e.Existing, e.Requested)
}

// ConfigMismatchError reports resuming a checkpoint whose config is
// incompatible with the current run's config.
type ConfigMismatchError struct{ Key string }

func (e *ConfigMismatchError) Error() string {
	return fmt.Sprintf("checkpoint: config mismatch at key %q", e.Key)
}

// LoadOrCreate loads an existing checkpoint for runID if present (validating
// benchmarkName and config compatibility against it), or creates a fresh
// one otherwise.
func (m *Manager) LoadOrCreate(runID, benchmarkName string, config map[string]any) (*State, error) {
	// Give config the value types a checkpoint read back from JSON has
	// (float64 numbers, map[string]any objects), so an int setting compares
	// equal to the same number stored on disk.
	if data, err := json.Marshal(config); err == nil {
		var normalized map[string]any
		if err := json.Unmarshal(data, &normalized); err == nil {
			config = normalized
		}
	}
	exists, err := m.Exists(runID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &State{RunID: runID, BenchmarkName: benchmarkName, CompletedIDs: map[string]bool{}, Config: config}, nil
	}
	existing, err := m.Load(runID)
	if err != nil {
		return nil, err
	}
	if existing.BenchmarkName != benchmarkName {
		return nil, &BenchmarkMismatchError{Existing: existing.BenchmarkName, Requested: benchmarkName}
	}
	if mismatchKey, ok := incompatibleKey(existing.Config, config); ok {
		return nil, &ConfigMismatchError{Key: mismatchKey}
	}
	return existing, nil
}

// Save atomically writes state to its checkpoint path (write to a .tmp
// sibling, then rename over the target).
func (m *Manager) Save(state *State) error {
	p, err := m.path(state.RunID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("checkpoint: mkdir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint: write tmp: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("checkpoint: rename: %w", err)
	}
	evalserver.RecordCheckpointSave()
	return nil
}

// Delete removes the checkpoint file for runID, if present.
func (m *Manager) Delete(runID string) error {
	p, err := m.path(runID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: delete: %w", err)
	}
	return nil
}

// isDefaultLike reports whether v is one of the "default-like" sentinel
// values original_source treats as compatible-by-omission: nil, false, 0,
// 0.0, "", and empty slices/maps.
func isDefaultLike(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == ""
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Map, reflect.Array:
			return rv.Len() == 0
		}
	}
	return false
}

// incompatibleKey compares existing and next configs key-by-key over their
// union: a key present in both must be equal; a key present in only one
// side must hold a default-like value there. Returns the first offending
// key found, if any.
func incompatibleKey(existing, next map[string]any) (string, bool) {
	seen := make(map[string]bool, len(existing)+len(next))
	for k := range existing {
		seen[k] = true
	}
	for k := range next {
		seen[k] = true
	}
	for k := range seen {
		ev, eok := existing[k]
		nv, nok := next[k]
		switch {
		case eok && nok:
			if !reflect.DeepEqual(ev, nv) {
				return k, true
			}
		case eok && !nok:
			if !isDefaultLike(ev) {
				return k, true
			}
		case !eok && nok:
			if !isDefaultLike(nv) {
				return k, true
			}
		}
	}
	return "", false
}
