package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	Long: `Print the fully resolved configuration (defaults, config file,
environment variables, and CLI flags merged), mirroring the teacher's
PrintConfigInfo debug output but as structured JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		loader := GetConfigLoader()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration file used: %s\n", loader.GetConfigFileUsed())
		fmt.Fprintf(out, "Environment prefix: GIANT\n\n")

		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
