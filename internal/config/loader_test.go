package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testValue = "test_value"

// clearGiantEnvVars clears all GIANT_ environment variables left over from
// a previous test's AutomaticEnv lookups.
func clearGiantEnvVars() {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "GIANT_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) > 0 {
				_ = os.Unsetenv(parts[0])
			}
		}
	}
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if loader.v == nil {
		t.Error("Loader viper instance is nil")
	}
}

func TestLoadWithNoConfigFile(t *testing.T) {
	clearGiantEnvVars()

	tmpDir := t.TempDir()
	originalWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(originalWd) }()

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}

	loader := NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Errorf("Load() unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected default log level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Agent.MaxSteps != DefaultConfig().Agent.MaxSteps {
		t.Errorf("Expected default max_steps, got %d", cfg.Agent.MaxSteps)
	}
}

func TestLoadWithValidYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "giant.yaml")

	yamlContent := `
log_level: debug
verbose: true
agent:
  max_steps: 30
crop:
  jpeg_quality: 80
llm:
  model: claude-sonnet
`

	if err := os.WriteFile(configFile, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	loader := NewLoader()
	cfg, err := loader.LoadWithFile(configFile)
	if err != nil {
		t.Errorf("LoadWithFile() unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got %s", cfg.LogLevel)
	}
	if !cfg.Verbose {
		t.Error("Expected verbose to be true")
	}
	if cfg.Agent.MaxSteps != 30 {
		t.Errorf("Expected agent.max_steps 30, got %d", cfg.Agent.MaxSteps)
	}
	if cfg.Crop.JPEGQuality != 80 {
		t.Errorf("Expected crop.jpeg_quality 80, got %d", cfg.Crop.JPEGQuality)
	}
	if cfg.LLM.Model != "claude-sonnet" {
		t.Errorf("Expected llm.model claude-sonnet, got %s", cfg.LLM.Model)
	}
}

func TestLoadWithInvalidYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "giant.yaml")

	invalidYAML := `
log_level: debug
  invalid indentation
    more bad indentation
`

	if err := os.WriteFile(configFile, []byte(invalidYAML), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	loader := NewLoader()
	_, err := loader.LoadWithFile(configFile)
	if err == nil {
		t.Error("LoadWithFile() expected error for invalid YAML, got nil")
	}
}

func TestLoadWithNonExistentFile(t *testing.T) {
	loader := NewLoader()
	_, err := loader.LoadWithFile("/nonexistent/path/to/config.yaml")
	if err == nil {
		t.Error("LoadWithFile() expected error for non-existent file, got nil")
	}
}

func TestLoadWithValidationFailure(t *testing.T) {
	clearGiantEnvVars()

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "giant.yaml")

	yamlContent := `
log_level: invalid_level
agent:
  max_steps: 0
`

	if err := os.WriteFile(configFile, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	loader := NewLoader()
	_, err := loader.LoadWithFile(configFile)
	if err == nil {
		t.Error("LoadWithFile() expected validation error, got nil")
	}
}

func TestEnvironmentVariableOverride(t *testing.T) {
	clearGiantEnvVars()
	defer clearGiantEnvVars()

	envVars := map[string]string{
		"GIANT_LOG_LEVEL":        "debug",
		"GIANT_AGENT_MAX_STEPS":  "42",
		"GIANT_VERBOSE":          "true",
	}
	for key, value := range envVars {
		if err := os.Setenv(key, value); err != nil {
			t.Fatalf("Failed to set env var %s: %v", key, err)
		}
	}

	tmpDir := t.TempDir()
	originalWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(originalWd) }()

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}

	loader := NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Errorf("Load() unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug' from env, got %s", cfg.LogLevel)
	}
	if cfg.Agent.MaxSteps != 42 {
		t.Errorf("Expected agent.max_steps 42 from env, got %d", cfg.Agent.MaxSteps)
	}
	if !cfg.Verbose {
		t.Error("Expected verbose true from env")
	}
}

func TestEnvironmentVariableWithUnderscores(t *testing.T) {
	clearGiantEnvVars()
	defer clearGiantEnvVars()

	envVars := map[string]string{
		"GIANT_CROP_OVERSAMPLING_BIAS":              "0.25",
		"GIANT_LLM_PROVIDER":                        "anthropic",
		"GIANT_LLM_CIRCUIT_BREAKER_FAILURE_THRESHOLD": "5",
	}
	for key, value := range envVars {
		if err := os.Setenv(key, value); err != nil {
			t.Fatalf("Failed to set env var %s: %v", key, err)
		}
	}

	tmpDir := t.TempDir()
	originalWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(originalWd) }()

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}

	loader := NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Errorf("Load() unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if cfg.Crop.OversamplingBias != 0.25 {
		t.Errorf("Expected oversampling_bias 0.25 from env, got %f", cfg.Crop.OversamplingBias)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("Expected provider anthropic from env, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.CircuitBreaker.FailureThreshold != 5 {
		t.Errorf("Expected failure_threshold 5 from env, got %d", cfg.LLM.CircuitBreaker.FailureThreshold)
	}
}

func TestGetSetConfigValues(t *testing.T) {
	loader := NewLoader()

	loader.Set("test_key", testValue)

	value := loader.GetString("test_key")
	if value != testValue {
		t.Errorf("Expected '%s', got %s", testValue, value)
	}

	genericValue := loader.Get("test_key")
	if genericValue != testValue {
		t.Errorf("Expected '%s', got %v", testValue, genericValue)
	}
}

func TestGetConfigFileUsed(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "giant.yaml")

	yamlContent := `log_level: debug`
	if err := os.WriteFile(configFile, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	loader := NewLoader()
	_, err := loader.LoadWithFile(configFile)
	if err != nil {
		t.Fatalf("LoadWithFile() error: %v", err)
	}

	usedFile := loader.GetConfigFileUsed()
	if usedFile != configFile {
		t.Errorf("Expected config file %s, got %s", configFile, usedFile)
	}
}

func TestGetViper(t *testing.T) {
	loader := NewLoader()
	v := loader.GetViper()

	if v == nil {
		t.Error("GetViper() returned nil")
	}
	if v != loader.v {
		t.Error("GetViper() returned different instance")
	}
}

func TestGetResolvedConfig(t *testing.T) {
	loader := NewLoader()
	loader.Set("test_key", testValue)

	resolved := loader.GetResolvedConfig()
	if resolved == nil {
		t.Error("GetResolvedConfig() returned nil")
	}

	if value, ok := resolved["test_key"]; !ok || value != testValue {
		t.Errorf("Expected test_key='%s' in resolved config, got %v", testValue, value)
	}
}

func TestWriteConfigToFile(t *testing.T) {
	tmpDir := t.TempDir()
	outputFile := filepath.Join(tmpDir, "output.yaml")

	loader := NewLoader()
	loader.Set("log_level", "debug")
	loader.Set("verbose", true)

	err := loader.WriteConfigToFile(outputFile)
	if err != nil {
		t.Errorf("WriteConfigToFile() error: %v", err)
	}

	if _, err := os.Stat(outputFile); os.IsNotExist(err) {
		t.Error("Config file was not written")
	}
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	outputFile := filepath.Join(tmpDir, "default.yaml")

	err := GenerateDefaultConfigFile(outputFile)
	if err != nil {
		t.Errorf("GenerateDefaultConfigFile() error: %v", err)
	}

	if _, err := os.Stat(outputFile); os.IsNotExist(err) {
		t.Error("Default config file was not generated")
	}

	loader := NewLoader()
	cfg, err := loader.LoadWithFile(outputFile)
	if err != nil {
		t.Errorf("Failed to load generated config: %v", err)
	}
	if cfg == nil {
		t.Error("Loaded config is nil")
	}
}

func TestGenerateDefaultConfigFileWithEmptyFilename(t *testing.T) {
	tmpDir := t.TempDir()
	originalWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(originalWd) }()

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}

	err := GenerateDefaultConfigFile("")
	if err != nil {
		t.Errorf("GenerateDefaultConfigFile(\"\") error: %v", err)
	}

	expectedFile := filepath.Join(tmpDir, "giant.yaml")
	if _, err := os.Stat(expectedFile); os.IsNotExist(err) {
		t.Error("Default giant.yaml was not generated")
	}
}

func TestGetConfigSearchPaths(t *testing.T) {
	paths := GetConfigSearchPaths()

	if len(paths) == 0 {
		t.Error("GetConfigSearchPaths() returned empty slice")
	}

	hasCurrentDir := false
	for _, path := range paths {
		if path == "." {
			hasCurrentDir = true
			break
		}
	}
	if !hasCurrentDir {
		t.Error("Search paths don't include current directory")
	}
}

func TestPrintConfigInfo(t *testing.T) {
	loader := NewLoader()
	loader.PrintConfigInfo()
}

func TestLoadWithEmptyConfigFile(t *testing.T) {
	clearGiantEnvVars()

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "giant.yaml")

	if err := os.WriteFile(configFile, []byte(""), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	loader := NewLoader()
	cfg, err := loader.LoadWithFile(configFile)
	if err != nil {
		t.Errorf("LoadWithFile() unexpected error: %v", err)
	}

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected default log level '%s', got %s", infoLevel, cfg.LogLevel)
	}
}

func TestMultipleConfigSourcesPrecedence(t *testing.T) {
	clearGiantEnvVars()
	defer clearGiantEnvVars()

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "giant.yaml")

	yamlContent := `log_level: warn`
	if err := os.WriteFile(configFile, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if err := os.Setenv("GIANT_LOG_LEVEL", "debug"); err != nil {
		t.Fatalf("Failed to set env var: %v", err)
	}

	loader := NewLoader()
	cfg, err := loader.LoadWithFile(configFile)
	if err != nil {
		t.Errorf("LoadWithFile() error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug' from env (should override file), got %s", cfg.LogLevel)
	}
}

func TestLoadWithEmptyFilenameUsesDefaultLoad(t *testing.T) {
	clearGiantEnvVars()

	tmpDir := t.TempDir()
	originalWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(originalWd) }()

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}

	loader := NewLoader()
	cfg, err := loader.LoadWithFile("")
	if err != nil {
		t.Errorf("LoadWithFile(\"\") unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadWithFile(\"\") returned nil config")
	}

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected default log level, got %s", cfg.LogLevel)
	}
}
