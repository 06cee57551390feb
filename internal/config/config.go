package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/giant-wsi/giant/internal/crop"
)

const (
	infoLevel = "info"
)

// DefaultConfig returns a configuration with sensible defaults, matching
// SPEC_FULL.md §13's YAML defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: infoLevel,
		Verbose:  false,
		Agent: AgentConfig{
			MaxSteps:         20,
			MaxHistoryImages: 5,
			StrictFontCheck:  false,
			ThumbnailSize:    1024,
			NumAxisGuides:    4,
		},
		Crop: CropConfig{
			ImageTargetSize:  1000,
			OversamplingBias: 0.85,
			JPEGQuality:      85,
			MaxReadDimension: 10000,
			RecoveryPolicy:   crop.PolicyReject,
		},
		Eval: EvalConfig{
			MaxConcurrent:      4,
			RunsPerItem:        1,
			BudgetUSD:          0,
			CheckpointInterval: 10,
			SaveTrajectories:   true,
			OutputDir:          "results",
		},
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "gpt-4o",
			RequestsPerMinute: 60,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 10,
				CooldownSeconds:  60,
				HalfOpenMaxCalls: 3,
				SuccessThreshold: 2,
			},
		},
		Segmentation: SegmentationConfig{
			PatchSize:      512,
			PatchesPerItem: 16,
			BaseSeed:       0,
		},
		Metrics: MetricsConfig{
			Port: 0,
		},
	}
}

// validateBasicEnums validates the log level and LLM provider.
func (c *Config) validateBasicEnums() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validProviders := []string{"openai", "anthropic"}
	if c.LLM.Provider != "" && !slices.Contains(validProviders, c.LLM.Provider) {
		return fmt.Errorf("invalid llm provider: %s (must be one of: %s)", c.LLM.Provider, strings.Join(validProviders, ", "))
	}

	return nil
}

// validateAgent validates agent navigation-loop settings.
func (c *Config) validateAgent() error {
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("invalid agent.max_steps: %d (must be positive)", c.Agent.MaxSteps)
	}
	if c.Agent.MaxHistoryImages < 0 {
		return fmt.Errorf("invalid agent.max_history_images: %d (must be >= 0)", c.Agent.MaxHistoryImages)
	}
	if c.Agent.ThumbnailSize <= 0 {
		return fmt.Errorf("invalid agent.thumbnail_size: %d (must be positive)", c.Agent.ThumbnailSize)
	}
	if c.Agent.NumAxisGuides < 0 {
		return fmt.Errorf("invalid agent.num_axis_guides: %d (must be >= 0)", c.Agent.NumAxisGuides)
	}
	return nil
}

// validateCrop validates the crop engine's resampling and memory-guard settings.
func (c *Config) validateCrop() error {
	if c.Crop.ImageTargetSize <= 0 {
		return fmt.Errorf("invalid crop.image_target_size: %d (must be positive)", c.Crop.ImageTargetSize)
	}
	if c.Crop.OversamplingBias <= 0.0 || c.Crop.OversamplingBias > 1.0 {
		return fmt.Errorf("invalid crop.oversampling_bias: %.2f (must be in (0.0, 1.0])", c.Crop.OversamplingBias)
	}
	if c.Crop.JPEGQuality < 1 || c.Crop.JPEGQuality > 100 {
		return fmt.Errorf("invalid crop.jpeg_quality: %d (must be between 1 and 100)", c.Crop.JPEGQuality)
	}
	if c.Crop.MaxReadDimension <= 0 {
		return fmt.Errorf("invalid crop.max_read_dim: %d (must be positive)", c.Crop.MaxReadDimension)
	}
	validPolicies := []string{crop.PolicyReject, crop.PolicyClamp}
	if !slices.Contains(validPolicies, c.Crop.RecoveryPolicy) {
		return fmt.Errorf("invalid crop.recovery_policy: %s (must be one of: %s)", c.Crop.RecoveryPolicy, strings.Join(validPolicies, ", "))
	}
	return nil
}

// validateEval validates the benchmark orchestrator's settings.
func (c *Config) validateEval() error {
	if c.Eval.MaxConcurrent <= 0 {
		return fmt.Errorf("invalid eval.max_concurrent: %d (must be positive)", c.Eval.MaxConcurrent)
	}
	if c.Eval.RunsPerItem <= 0 {
		return fmt.Errorf("invalid eval.runs_per_item: %d (must be positive)", c.Eval.RunsPerItem)
	}
	if c.Eval.BudgetUSD < 0 {
		return fmt.Errorf("invalid eval.budget_usd: %.2f (must be >= 0)", c.Eval.BudgetUSD)
	}
	if c.Eval.CheckpointInterval <= 0 {
		return fmt.Errorf("invalid eval.checkpoint_interval: %d (must be positive)", c.Eval.CheckpointInterval)
	}
	return nil
}

// validateLLM validates the LLM provider's rate limit and circuit breaker.
func (c *Config) validateLLM() error {
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("invalid llm.requests_per_minute: %d (must be >= 0)", c.LLM.RequestsPerMinute)
	}
	cb := c.LLM.CircuitBreaker
	if cb.FailureThreshold <= 0 {
		return fmt.Errorf("invalid llm.circuit_breaker.failure_threshold: %d (must be positive)", cb.FailureThreshold)
	}
	if cb.CooldownSeconds < 0 {
		return fmt.Errorf("invalid llm.circuit_breaker.cooldown_seconds: %.2f (must be >= 0)", cb.CooldownSeconds)
	}
	if cb.HalfOpenMaxCalls <= 0 {
		return fmt.Errorf("invalid llm.circuit_breaker.half_open_max_calls: %d (must be positive)", cb.HalfOpenMaxCalls)
	}
	if cb.SuccessThreshold <= 0 {
		return fmt.Errorf("invalid llm.circuit_breaker.success_threshold: %d (must be positive)", cb.SuccessThreshold)
	}
	return nil
}

// validateSegmentation validates the tissue segmenter's patch sampling.
func (c *Config) validateSegmentation() error {
	if c.Segmentation.PatchSize <= 0 {
		return fmt.Errorf("invalid segmentation.patch_size: %d (must be positive)", c.Segmentation.PatchSize)
	}
	if c.Segmentation.PatchesPerItem <= 0 {
		return fmt.Errorf("invalid segmentation.patches_per_item: %d (must be positive)", c.Segmentation.PatchesPerItem)
	}
	return nil
}

// validateMetrics validates the metrics endpoint's port.
func (c *Config) validateMetrics() error {
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("invalid metrics.port: %d (must be between 0 and 65535)", c.Metrics.Port)
	}
	return nil
}

// Validate checks each section in turn and returns the first error found,
// or nil if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.validateBasicEnums(); err != nil {
		return err
	}
	if err := c.validateAgent(); err != nil {
		return err
	}
	if err := c.validateCrop(); err != nil {
		return err
	}
	if err := c.validateEval(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateSegmentation(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return nil
}
