package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Persistence saves trajectories and final results to an output directory,
// grounded on original_source/eval/persistence.py's ResultsPersistence.
type Persistence struct {
	OutputDir string
}

// SaveTrajectory writes a single agent run's trajectory to
// <output_dir>/trajectories/<safe_item_id>_run<k>.json.
func (p *Persistence) SaveTrajectory(itemID string, runIndex int, trajectory any) error {
	dir := filepath.Join(p.OutputDir, "trajectories")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: mkdir trajectories: %w", err)
	}
	name := fmt.Sprintf("%s_run%d.json", SafeFilenameComponent(itemID), runIndex)
	data, err := json.MarshalIndent(trajectory, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal trajectory: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

// SaveResults writes the full set of benchmark results for a run to
// <output_dir>/<run_id>_results.json.
func (p *Persistence) SaveResults(runID string, results any) error {
	if err := ValidateRunID(runID); err != nil {
		return err
	}
	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: mkdir output: %w", err)
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal results: %w", err)
	}
	name := runID + "_results.json"
	return os.WriteFile(filepath.Join(p.OutputDir, name), data, 0o644)
}
