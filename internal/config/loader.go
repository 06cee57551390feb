package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "giant"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "GIANT"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	// Use the global viper instance to ensure flag bindings work
	return &Loader{v: viper.GetViper()}
}

// Load loads configuration from files, environment variables, and sets defaults.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}
	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) interface{} { return l.v.Get(key) }

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string { return l.v.GetString(key) }

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) { l.v.Set(key, value) }

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string { return l.v.ConfigFileUsed() }

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper { return l.v }

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	l.v.AddConfigPath("/etc/giant")
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "giant"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "giant"))
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options, matching
// SPEC_FULL.md §13.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	l.v.SetDefault("agent.max_steps", defaults.Agent.MaxSteps)
	l.v.SetDefault("agent.max_history_images", defaults.Agent.MaxHistoryImages)
	l.v.SetDefault("agent.strict_font_check", defaults.Agent.StrictFontCheck)
	l.v.SetDefault("agent.thumbnail_size", defaults.Agent.ThumbnailSize)
	l.v.SetDefault("agent.num_axis_guides", defaults.Agent.NumAxisGuides)

	l.v.SetDefault("crop.image_target_size", defaults.Crop.ImageTargetSize)
	l.v.SetDefault("crop.oversampling_bias", defaults.Crop.OversamplingBias)
	l.v.SetDefault("crop.jpeg_quality", defaults.Crop.JPEGQuality)
	l.v.SetDefault("crop.max_read_dim", defaults.Crop.MaxReadDimension)
	l.v.SetDefault("crop.recovery_policy", defaults.Crop.RecoveryPolicy)

	l.v.SetDefault("eval.max_concurrent", defaults.Eval.MaxConcurrent)
	l.v.SetDefault("eval.runs_per_item", defaults.Eval.RunsPerItem)
	l.v.SetDefault("eval.budget_usd", defaults.Eval.BudgetUSD)
	l.v.SetDefault("eval.checkpoint_interval", defaults.Eval.CheckpointInterval)
	l.v.SetDefault("eval.save_trajectories", defaults.Eval.SaveTrajectories)
	l.v.SetDefault("eval.output_dir", defaults.Eval.OutputDir)

	l.v.SetDefault("llm.provider", defaults.LLM.Provider)
	l.v.SetDefault("llm.model", defaults.LLM.Model)
	l.v.SetDefault("llm.requests_per_minute", defaults.LLM.RequestsPerMinute)
	l.v.SetDefault("llm.circuit_breaker.failure_threshold", defaults.LLM.CircuitBreaker.FailureThreshold)
	l.v.SetDefault("llm.circuit_breaker.cooldown_seconds", defaults.LLM.CircuitBreaker.CooldownSeconds)
	l.v.SetDefault("llm.circuit_breaker.half_open_max_calls", defaults.LLM.CircuitBreaker.HalfOpenMaxCalls)
	l.v.SetDefault("llm.circuit_breaker.success_threshold", defaults.LLM.CircuitBreaker.SuccessThreshold)

	l.v.SetDefault("segmentation.patch_size", defaults.Segmentation.PatchSize)
	l.v.SetDefault("segmentation.patches_per_item", defaults.Segmentation.PatchesPerItem)
	l.v.SetDefault("segmentation.base_seed", defaults.Segmentation.BaseSeed)

	l.v.SetDefault("metrics.port", defaults.Metrics.Port)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile generates a default configuration file.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoader()
	loader.setDefaults()
	if filename == "" {
		filename = "giant.yaml"
	}
	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
		paths = append(paths, filepath.Join(home, ".config", "giant"))
	}
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "giant"))
	}
	paths = append(paths, "/etc/giant")
	return paths
}

// PrintConfigInfo prints information about configuration loading for debugging.
func (l *Loader) PrintConfigInfo() {
	fmt.Printf("Configuration file used: %s\n", l.GetConfigFileUsed())
	fmt.Printf("Configuration search paths: %v\n", GetConfigSearchPaths())
	fmt.Printf("Environment prefix: %s\n", EnvPrefix)
}
