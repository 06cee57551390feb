// Package config loads GIANT's configuration via viper, following the
// teacher's internal/config/loader.go structure: a Loader wrapping the
// global viper instance, exhaustive SetDefault calls, YAML files, and
// GIANT_-prefixed environment variables.
package config

// Config is the root configuration object, covering SPEC_FULL.md §13's
// agent/crop/eval/llm/segmentation tables plus ambient logging settings.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Agent        AgentConfig        `mapstructure:"agent" yaml:"agent" json:"agent"`
	Crop         CropConfig         `mapstructure:"crop" yaml:"crop" json:"crop"`
	Eval         EvalConfig         `mapstructure:"eval" yaml:"eval" json:"eval"`
	LLM          LLMConfig          `mapstructure:"llm" yaml:"llm" json:"llm"`
	Segmentation SegmentationConfig `mapstructure:"segmentation" yaml:"segmentation" json:"segmentation"`
	Metrics      MetricsConfig      `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// AgentConfig controls the navigation loop's turn budget and overlay.
type AgentConfig struct {
	MaxSteps         int  `mapstructure:"max_steps" yaml:"max_steps" json:"max_steps"`
	MaxHistoryImages int  `mapstructure:"max_history_images" yaml:"max_history_images" json:"max_history_images"`
	StrictFontCheck  bool `mapstructure:"strict_font_check" yaml:"strict_font_check" json:"strict_font_check"`
	ThumbnailSize    int  `mapstructure:"thumbnail_size" yaml:"thumbnail_size" json:"thumbnail_size"`
	NumAxisGuides    int  `mapstructure:"num_axis_guides" yaml:"num_axis_guides" json:"num_axis_guides"`
}

// CropConfig controls the crop engine's resampling and memory guard.
type CropConfig struct {
	ImageTargetSize  int     `mapstructure:"image_target_size" yaml:"image_target_size" json:"image_target_size"`
	OversamplingBias float64 `mapstructure:"oversampling_bias" yaml:"oversampling_bias" json:"oversampling_bias"`
	JPEGQuality      int     `mapstructure:"jpeg_quality" yaml:"jpeg_quality" json:"jpeg_quality"`
	MaxReadDimension int     `mapstructure:"max_read_dim" yaml:"max_read_dim" json:"max_read_dim"`

	// RecoveryPolicy selects what happens when a requested region falls
	// outside the slide: "reject" ends the crop with a bounds error,
	// "clamp" intersects it with the slide and logs a warning. Defaults to
	// "reject".
	RecoveryPolicy string `mapstructure:"recovery_policy" yaml:"recovery_policy" json:"recovery_policy"`
}

// EvalConfig controls the benchmark orchestrator.
type EvalConfig struct {
	MaxConcurrent      int     `mapstructure:"max_concurrent" yaml:"max_concurrent" json:"max_concurrent"`
	RunsPerItem        int     `mapstructure:"runs_per_item" yaml:"runs_per_item" json:"runs_per_item"`
	BudgetUSD          float64 `mapstructure:"budget_usd" yaml:"budget_usd" json:"budget_usd"`
	CheckpointInterval int     `mapstructure:"checkpoint_interval" yaml:"checkpoint_interval" json:"checkpoint_interval"`
	SaveTrajectories   bool    `mapstructure:"save_trajectories" yaml:"save_trajectories" json:"save_trajectories"`
	OutputDir          string  `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
}

// LLMConfig controls the multimodal provider and its resilience layer.
type LLMConfig struct {
	Provider          string               `mapstructure:"provider" yaml:"provider" json:"provider"`
	Model             string               `mapstructure:"model" yaml:"model" json:"model"`
	RequestsPerMinute int                  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	CircuitBreaker    CircuitBreakerConfig `mapstructure:"circuit_breaker" yaml:"circuit_breaker" json:"circuit_breaker"`
}

// CircuitBreakerConfig mirrors llm.CircuitBreakerConfig's fields for
// viper/YAML binding.
type CircuitBreakerConfig struct {
	FailureThreshold int     `mapstructure:"failure_threshold" yaml:"failure_threshold" json:"failure_threshold"`
	CooldownSeconds  float64 `mapstructure:"cooldown_seconds" yaml:"cooldown_seconds" json:"cooldown_seconds"`
	HalfOpenMaxCalls int     `mapstructure:"half_open_max_calls" yaml:"half_open_max_calls" json:"half_open_max_calls"`
	SuccessThreshold int     `mapstructure:"success_threshold" yaml:"success_threshold" json:"success_threshold"`
}

// SegmentationConfig controls the tissue segmenter used by patch-based
// evaluation baselines.
type SegmentationConfig struct {
	PatchSize      int `mapstructure:"patch_size" yaml:"patch_size" json:"patch_size"`
	PatchesPerItem int `mapstructure:"patches_per_item" yaml:"patches_per_item" json:"patches_per_item"`
	BaseSeed       int `mapstructure:"base_seed" yaml:"base_seed" json:"base_seed"`
}

// MetricsConfig controls the Prometheus `/metrics` HTTP endpoint served
// alongside a benchmark run. Port 0 disables the listener.
type MetricsConfig struct {
	Port int `mapstructure:"port" yaml:"port" json:"port"`
}
