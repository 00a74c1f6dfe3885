// Package cmd wires the CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobinsights",
		Short: "Classify and report pipeline job failures",
		Long: `jobinsights analyzes failed workflow job executions, classifies every
recorded error into a root-cause category (rules first, optional LLM
fallback), and renders reports in several formats.

User corrections are stored as feedback and fed back into future LLM
classifications as few-shot examples.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewAnalyzeCommand())
	cmd.AddCommand(NewFeedbackCommand())
	cmd.AddCommand(NewWatchCommand())

	return cmd
}
