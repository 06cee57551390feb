package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/giant-wsi/giant/internal/agent"
	"github.com/giant-wsi/giant/internal/crop"
	"github.com/giant-wsi/giant/internal/llm"
	"github.com/giant-wsi/giant/internal/wsi"
	"github.com/spf13/cobra"
)

var navigateCmd = &cobra.Command{
	Use:   "navigate <wsi-path> <question>",
	Short: "Run one agent loop over a slide and answer a question",
	Long: `Run the navigation agent (C9/C10) once against a single whole-slide
image, printing its turn-by-turn trajectory and final answer.

Example:
  giant navigate slide.svs "Is there evidence of malignancy?"`,
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		wsiPath, question := args[0], args[1]

		if model, _ := cmd.Flags().GetString("model"); model != "" {
			cfg.LLM.Model = model
		}
		if maxSteps, _ := cmd.Flags().GetInt("max-steps"); maxSteps > 0 {
			cfg.Agent.MaxSteps = maxSteps
		}

		apiKey := apiKeyForProvider(cfg.LLM.Provider)
		if apiKey == "" {
			return errors.New("no API key configured for the selected LLM provider " +
				"(set GIANT_LLM_API_KEY or OPENAI_API_KEY/ANTHROPIC_API_KEY)")
		}
		provider, err := llm.NewHTTPProvider(cfg.LLM.Model, apiKey)
		if err != nil {
			return fmt.Errorf("configure llm provider: %w", err)
		}

		// No OpenSlide (or equivalent) binding is wired into this build —
		// spec.md treats the slide decoder as an external collaborator
		// specified only by interface. The in-memory mock stands in until
		// a real decoder is registered here.
		decoder := wsi.NewMockDecoder()
		registerMockSlide(decoder, wsiPath)

		cropEngine := crop.NewEngine(decoder, cfg.Crop.ImageTargetSize, cfg.Crop.JPEGQuality, cfg.Crop.OversamplingBias, cfg.Crop.RecoveryPolicy)
		a := &agent.Agent{
			Decoder:          decoder,
			CropEng:          cropEngine,
			Provider:         provider,
			MaxSteps:         cfg.Agent.MaxSteps,
			MaxHistoryImages: cfg.Agent.MaxHistoryImages,
			ThumbnailSize:    cfg.Agent.ThumbnailSize,
			BudgetUSD:        cfg.Eval.BudgetUSD,
		}

		result := a.Run(cmd.Context(), wsiPath, question)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "status: %s\n", result.Status)
		fmt.Fprintf(out, "answer: %s\n", result.Answer)
		if result.FailureInfo != "" {
			fmt.Fprintf(out, "failure: %s\n", result.FailureInfo)
		}
		if result.Trajectory != nil {
			data, err := json.MarshalIndent(result.Trajectory, "", "  ")
			if err == nil {
				fmt.Fprintln(out, string(data))
			}
		}
		return nil
	},
}

// apiKeyForProvider reads the API key for the configured LLM vendor from
// its conventional environment variable, falling back to a generic
// GIANT_LLM_API_KEY override.
func apiKeyForProvider(provider string) string {
	if key := os.Getenv("GIANT_LLM_API_KEY"); key != "" {
		return key
	}
	switch provider {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

func init() {
	rootCmd.AddCommand(navigateCmd)

	navigateCmd.Flags().String("model", "", "override the configured LLM model alias")
	navigateCmd.Flags().Int("max-steps", 0, "override the configured turn budget")
}
