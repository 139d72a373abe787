package main

import (
	"github.com/spf13/cobra"

	"github.com/podshelf/podshelf/internal/api"
	"github.com/podshelf/podshelf/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "podshelf",
	Short: "Extract book mentions from podcast episodes with LLMs",
	Long: `Podshelf ingests a podcast RSS feed and uses LLM-powered extraction
to find the books mentioned in each episode's show notes.

The pipeline includes:
  - Multi-pass extraction for long episode descriptions
  - Confidence scoring with automatic review flagging
  - Duplicate detection and merging across episodes
  - Metadata enrichment from the Google Books catalog
  - Data quality auditing and bulk record cleaning`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.podshelf/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "podshelf home directory (default: ~/.podshelf)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
