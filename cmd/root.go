// Package cmd holds the command line surface of the analyst engine.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	configx "github.com/tanpawarit/parallel-analyst/pkg/config"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "parallel-analyst",
	Short: "Answer car questions by consulting several analysts in parallel",
	Long: `parallel-analyst decomposes a question into sub-queries for specialist analysts,
runs them concurrently under one deadline and merges whatever came back into a
single report with a confidence score.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configx.SetEnvFile(envFile)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to a .env file (default ./.env when present)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(capabilitiesCmd)
	rootCmd.AddCommand(reviewsCmd)
}
