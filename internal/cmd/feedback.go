package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"jobinsights/internal/config"
	"jobinsights/internal/domain"
	"jobinsights/internal/feedback"
)

// NewFeedbackCommand creates the feedback command group.
func NewFeedbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Manage classification corrections",
	}
	cmd.AddCommand(newFeedbackImportCommand())
	cmd.AddCommand(newFeedbackShowCommand())
	cmd.AddCommand(newFeedbackStatsCommand())
	cmd.AddCommand(newFeedbackExportCommand())
	return cmd
}

func newFeedbackImportCommand() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "import <csv-file>",
		Short: "Import corrections from an annotated CSV report",
		Long: `Import corrections from a CSV file. Export errors first with
'analyze --format csv', add a "Corrected Category" column for any
misclassifications, then import the edited file. Rows without a
correction are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			count, err := feedback.ImportCSV(store, f, user)
			if err != nil {
				return err
			}
			if count == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No corrections found in CSV (no 'Corrected Category' column or no changes)")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d corrections. They will be used as examples in future LLM classifications.\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "username or email of the person making corrections")
	return cmd
}

func newFeedbackShowCommand() *cobra.Command {
	var category string
	var limit int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List recorded corrections, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			var filter domain.FailureCategory
			if category != "" {
				parsed, err := domain.ParseFailureCategory(category)
				if err != nil {
					return err
				}
				filter = parsed
			}

			corrections, err := store.Corrections(filter, limit)
			if err != nil {
				return err
			}
			if len(corrections) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No corrections recorded yet.")
				return nil
			}
			for _, c := range corrections {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s -> %s  job=%s activity=%s\n",
					c.Timestamp.Format("2006-01-02 15:04"), c.OriginalCategory, c.CorrectedCategory, c.JobID, c.ActivityName)
				if c.Notes != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", c.Notes)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "filter by corrected category")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum corrections to show (0 for all)")
	return cmd
}

func newFeedbackStatsCommand() *cobra.Command {
	var suggest bool
	var minCount int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show correction statistics and rule suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			stats, err := feedback.ComputeStats(store)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total corrections: %d\n", stats.Total)
			if len(stats.ByCategory) > 0 {
				fmt.Fprintln(out, "\nBy corrected category:")
				for _, name := range sortedKeys(stats.ByCategory) {
					fmt.Fprintf(out, "  %-25s %d\n", name, stats.ByCategory[name])
				}
			}
			if len(stats.ByUser) > 0 {
				fmt.Fprintln(out, "\nBy user:")
				for _, name := range sortedKeys(stats.ByUser) {
					fmt.Fprintf(out, "  %-25s %d\n", name, stats.ByUser[name])
				}
			}

			if !suggest {
				return nil
			}
			suggestions, err := feedback.SuggestRules(store, minCount)
			if err != nil {
				return err
			}
			if len(suggestions) == 0 {
				fmt.Fprintf(out, "\nNo patterns found. Need at least %d similar corrections to suggest a rule.\n", minCount)
				return nil
			}
			fmt.Fprintln(out, "\nSuggested rules from corrections:")
			for _, category := range sortedSuggestionKeys(suggestions) {
				fmt.Fprintf(out, "\n%s:\n", category)
				for _, s := range suggestions[category] {
					fmt.Fprintf(out, "  %-9s %-30s x%d\n", s.Type, s.Pattern, s.Count)
					for _, example := range s.Examples {
						fmt.Fprintf(out, "      - %s\n", example)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&suggest, "suggest", false, "mine corrections for candidate rules")
	cmd.Flags().IntVar(&minCount, "min-count", 3, "minimum similar corrections to suggest a rule")
	return cmd
}

func newFeedbackExportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export corrections as JSONL for fine-tuning",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			if output == "" {
				_, err := feedback.ExportForFineTuning(store, cmd.OutOrStdout())
				return err
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			count, err := feedback.ExportForFineTuning(store, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d training examples to %s\n", count, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "write JSONL to a file instead of stdout")
	return cmd
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSuggestionKeys(m map[string][]feedback.Suggestion) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
