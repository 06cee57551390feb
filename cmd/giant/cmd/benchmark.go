package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giant-wsi/giant/internal/checkpoint"
	"github.com/giant-wsi/giant/internal/crop"
	"github.com/giant-wsi/giant/internal/eval"
	"github.com/giant-wsi/giant/internal/evalserver"
	"github.com/giant-wsi/giant/internal/llm"
	"github.com/giant-wsi/giant/internal/wsi"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark <dataset.csv>",
	Short: "Run the evaluation orchestrator over a benchmark dataset",
	Long: `Run the C14 evaluation orchestrator against a ground-truth CSV
item set, checkpointing progress as items complete so an interrupted
run can be resumed with the same --run-id. If --run-id is omitted, one
is derived from the dataset, mode, provider, model, and the current UTC
time, so each such invocation starts a new run. If --metrics-port (or
metrics.port) is nonzero, Prometheus counters and histograms for the
run are served on /metrics for the run's duration.

Example:
  giant benchmark panda.csv --run-id panda-001 --mode giant --metrics-port 9090`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		datasetPath := args[0]

		runID, _ := cmd.Flags().GetString("run-id")
		mode, _ := cmd.Flags().GetString("mode")
		benchmarkName, _ := cmd.Flags().GetString("benchmark-name")
		if benchmarkName == "" {
			benchmarkName = benchmarkNameFromPath(datasetPath)
		}
		if cmd.Flags().Changed("metrics-port") {
			cfg.Metrics.Port, _ = cmd.Flags().GetInt("metrics-port")
		}

		items, err := eval.LoadItemsCSV(datasetPath, benchmarkName)
		if err != nil {
			return fmt.Errorf("load dataset: %w", err)
		}
		if len(items) == 0 {
			return fmt.Errorf("dataset %s contains no items", datasetPath)
		}

		apiKey := apiKeyForProvider(cfg.LLM.Provider)
		if apiKey == "" {
			return errors.New("no API key configured for the selected LLM provider " +
				"(set GIANT_LLM_API_KEY or OPENAI_API_KEY/ANTHROPIC_API_KEY)")
		}
		baseProvider, err := llm.NewHTTPProvider(cfg.LLM.Model, apiKey)
		if err != nil {
			return fmt.Errorf("configure llm provider: %w", err)
		}
		breaker := llm.NewCircuitBreaker(llm.CircuitBreakerConfig{
			FailureThreshold: cfg.LLM.CircuitBreaker.FailureThreshold,
			CooldownSeconds:  cfg.LLM.CircuitBreaker.CooldownSeconds,
			HalfOpenMaxCalls: cfg.LLM.CircuitBreaker.HalfOpenMaxCalls,
			SuccessThreshold: cfg.LLM.CircuitBreaker.SuccessThreshold,
		})
		limiter := llm.NewRateLimiter(cfg.LLM.RequestsPerMinute)
		provider := llm.NewResilientProvider(baseProvider, limiter, breaker)

		decoder := wsi.NewMockDecoder()
		for _, item := range items {
			registerMockSlide(decoder, item.WSIPath)
		}
		cropEngine := crop.NewEngine(decoder, cfg.Crop.ImageTargetSize, cfg.Crop.JPEGQuality, cfg.Crop.OversamplingBias, cfg.Crop.RecoveryPolicy)

		checkpointDir, _ := cmd.Flags().GetString("checkpoint-dir")
		if checkpointDir == "" {
			checkpointDir = cfg.Eval.OutputDir
		}

		orchestrator := &eval.Orchestrator{
			Worker: eval.Worker{
				Decoder:          decoder,
				CropEngine:       cropEngine,
				Provider:         provider,
				MaxSteps:         cfg.Agent.MaxSteps,
				MaxHistoryImages: cfg.Agent.MaxHistoryImages,
				ThumbnailSize:    cfg.Agent.ThumbnailSize,
				JPEGQuality:      cfg.Crop.JPEGQuality,
				PatchesPerItem:   cfg.Segmentation.PatchesPerItem,
				PatchSize:        cfg.Segmentation.PatchSize,
				BaseSeed:         cfg.Segmentation.BaseSeed,
			},
			Manager: &checkpoint.Manager{CheckpointDir: checkpointDir},
			Persist: &checkpoint.Persistence{OutputDir: cfg.Eval.OutputDir},
		}

		if runID == "" {
			runID, err = deriveRunID(orchestrator.Manager, benchmarkName, mode, cfg.LLM.Provider, cfg.LLM.Model)
			if err != nil {
				return fmt.Errorf("derive run id: %w", err)
			}
		}

		if cfg.Metrics.Port != 0 {
			shutdown, err := evalserver.Serve(cfg.Metrics.Port)
			if err != nil {
				return fmt.Errorf("start metrics server: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "metrics: listening on :%d/metrics\n", cfg.Metrics.Port)
		}

		opts := eval.Options{
			RunID:              runID,
			BenchmarkName:      benchmarkName,
			Mode:               eval.Mode(mode),
			Model:              provider.Model(),
			MaxConcurrent:      cfg.Eval.MaxConcurrent,
			RunsPerItem:        cfg.Eval.RunsPerItem,
			CheckpointInterval: cfg.Eval.CheckpointInterval,
			BudgetUSD:          cfg.Eval.BudgetUSD,
			CheckpointDir:      checkpointDir,
			OutputDir:          cfg.Eval.OutputDir,
			ConfigSnapshot:     GetConfigLoader().GetResolvedConfig(),
		}

		results, err := orchestrator.Run(cmd.Context(), items, opts)
		if err != nil {
			return fmt.Errorf("run benchmark: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run_id: %s\n", results.RunID)
		fmt.Fprintf(out, "completed: %d/%d\n", results.Completed, results.Total)
		if results.Accuracy > 0 {
			fmt.Fprintf(out, "accuracy: %.4f\n", results.Accuracy)
		}
		if results.BalancedAccuracy > 0 {
			fmt.Fprintf(out, "balanced_accuracy: %.4f\n", results.BalancedAccuracy)
		}
		return nil
	},
}

// deriveRunID builds the sanitized "{dataset}_{mode}_{provider}_{model}_{timestamp}"
// run_id spec.md §4.14 calls for when --run-id is omitted. Two runs started
// within the same second would otherwise collide on that deterministic name
// and the second run would spuriously "resume" the first's checkpoint; when
// the manager reports a checkpoint already exists under the derived name, a
// short random suffix disambiguates it instead.
func deriveRunID(manager *checkpoint.Manager, benchmarkName, mode, provider, model string) (string, error) {
	base := fmt.Sprintf("%s_%s_%s_%s_%s",
		checkpoint.SafeFilenameComponent(benchmarkName),
		checkpoint.SafeFilenameComponent(mode),
		checkpoint.SafeFilenameComponent(provider),
		checkpoint.SafeFilenameComponent(model),
		time.Now().UTC().Format("20060102T150405Z"))

	exists, err := manager.Exists(base)
	if err != nil {
		return "", err
	}
	if !exists {
		return base, nil
	}
	return base + "_" + uuid.NewString()[:8], nil
}

func benchmarkNameFromPath(path string) string {
	base := path
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '/' {
			base = base[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)

	benchmarkCmd.Flags().String("run-id", "", "unique identifier for this run, used for checkpoint resume (default: derived from dataset/mode/provider/model/timestamp)")
	benchmarkCmd.Flags().String("benchmark-name", "", "benchmark name recorded in results (default: dataset file stem)")
	benchmarkCmd.Flags().String("mode", string(eval.ModeGiant), "evaluation mode: giant, thumbnail, patch, patch_vote")
	benchmarkCmd.Flags().String("checkpoint-dir", "", "directory for checkpoint files (default: eval.output_dir)")
	benchmarkCmd.Flags().Int("metrics-port", 0, "port to serve Prometheus /metrics on for the run's duration (0 disables, default: metrics.port)")
}
