package eval

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadItemsCSV reads a benchmark's ground-truth CSV into BenchmarkItems. The
// header row must contain at least benchmark_id, wsi_path, prompt, and
// truth_label columns; options (pipe-separated) and metric_type are
// optional and default to MetricAccuracy. No ecosystem CSV library appears
// across the pack's go.mod files, so this uses stdlib encoding/csv — see
// DESIGN.md's stdlib-justification entry for this file.
func LoadItemsCSV(path, benchmarkName string) ([]BenchmarkItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eval: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("eval: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"benchmark_id", "wsi_path", "prompt", "truth_label"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("eval: csv %s missing required column %q", path, required)
		}
	}

	var items []BenchmarkItem
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("eval: read row: %w", err)
		}

		item := BenchmarkItem{
			BenchmarkName: benchmarkName,
			BenchmarkID:   record[col["benchmark_id"]],
			WSIPath:       record[col["wsi_path"]],
			Prompt:        record[col["prompt"]],
			TruthLabel:    record[col["truth_label"]],
			MetricType:    MetricAccuracy,
		}
		if i, ok := col["metric_type"]; ok && record[i] != "" {
			item.MetricType = MetricType(record[i])
		}
		if i, ok := col["options"]; ok && record[i] != "" {
			item.Options = strings.Split(record[i], "|")
		}
		items = append(items, item)
	}
	return items, nil
}
