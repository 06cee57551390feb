package config

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestConfigJSONMarshaling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	cfg.Verbose = true
	cfg.Agent.MaxSteps = 25

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("json.Marshal() error: %v", err)
	}
	if len(data) == 0 {
		t.Error("Marshaled JSON is empty")
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if result["log_level"] != "debug" {
		t.Errorf("Expected log_level 'debug', got %v", result["log_level"])
	}
	if result["verbose"] != true {
		t.Errorf("Expected verbose true, got %v", result["verbose"])
	}
}

func TestConfigJSONUnmarshaling(t *testing.T) {
	jsonData := `{
		"log_level": "debug",
		"verbose": true,
		"agent": {"max_steps": 15, "thumbnail_size": 2048},
		"crop": {"jpeg_quality": 75},
		"llm": {"provider": "anthropic", "model": "claude-haiku"}
	}`

	var cfg Config
	if err := json.Unmarshal([]byte(jsonData), &cfg); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log_level 'debug', got %s", cfg.LogLevel)
	}
	if !cfg.Verbose {
		t.Error("Expected verbose true")
	}
	if cfg.Agent.MaxSteps != 15 {
		t.Errorf("Expected agent.max_steps 15, got %d", cfg.Agent.MaxSteps)
	}
	if cfg.Agent.ThumbnailSize != 2048 {
		t.Errorf("Expected agent.thumbnail_size 2048, got %d", cfg.Agent.ThumbnailSize)
	}
	if cfg.Crop.JPEGQuality != 75 {
		t.Errorf("Expected crop.jpeg_quality 75, got %d", cfg.Crop.JPEGQuality)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("Expected llm.provider anthropic, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "claude-haiku" {
		t.Errorf("Expected llm.model claude-haiku, got %s", cfg.LLM.Model)
	}
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "warn"
	cfg.Eval.OutputDir = "/tmp/results"
	cfg.Segmentation.BaseSeed = 7

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("yaml.Marshal() error: %v", err)
	}

	var roundTripped Config
	if err := yaml.Unmarshal(data, &roundTripped); err != nil {
		t.Fatalf("yaml.Unmarshal() error: %v", err)
	}

	if roundTripped.LogLevel != "warn" {
		t.Errorf("Expected log_level 'warn', got %s", roundTripped.LogLevel)
	}
	if roundTripped.Eval.OutputDir != "/tmp/results" {
		t.Errorf("Expected eval.output_dir '/tmp/results', got %s", roundTripped.Eval.OutputDir)
	}
	if roundTripped.Segmentation.BaseSeed != 7 {
		t.Errorf("Expected segmentation.base_seed 7, got %d", roundTripped.Segmentation.BaseSeed)
	}
	if roundTripped.Agent.MaxSteps != cfg.Agent.MaxSteps {
		t.Errorf("Expected agent.max_steps %d, got %d", cfg.Agent.MaxSteps, roundTripped.Agent.MaxSteps)
	}
}

func TestConfigZeroValue(t *testing.T) {
	var cfg Config
	if err := cfg.Validate(); err == nil {
		t.Error("zero-value Config should fail validation (empty log_level)")
	}
}
