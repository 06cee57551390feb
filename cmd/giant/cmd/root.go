// Package cmd implements the giant CLI: navigate (one agent run),
// benchmark (the C14 evaluation orchestrator over a CSV item set), and
// config (print the resolved configuration). Grounded on
// cmd/ocr/cmd/root.go's rootCmd-with-persistent-flags-bound-to-viper
// pattern.
package cmd

import (
	"fmt"
	"os"

	"github.com/giant-wsi/giant/internal/config"
	"github.com/giant-wsi/giant/internal/obslog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configLoader *config.Loader
	cfgFile      string
)

var rootCmd = &cobra.Command{
	Use:   "giant",
	Short: "Agentic navigation and benchmarking over whole-slide images",
	Long: `giant drives a multimodal LLM through a gigapixel whole-slide
image, cropping and examining sub-regions until it can answer a
diagnostic question, and can run that loop at scale across a benchmark
dataset with resumable checkpoints.

Examples:
  giant navigate slide.svs "Is there evidence of malignancy?"
  giant benchmark panda.csv --run-id panda-001 --mode giant
  giant config`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/giant, /etc/giant)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func initConfig() {
	configLoader = config.NewLoader()
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}

// GetConfig resolves the final configuration (file + env + flags +
// defaults), installs the process-wide logger for it, and returns it.
func GetConfig() *config.Config {
	loader := GetConfigLoader()
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = loader.LoadWithFile(cfgFile)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	obslog.Setup(cfg)
	return cfg
}
