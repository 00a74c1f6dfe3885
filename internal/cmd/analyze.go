package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"jobinsights/internal/analyzer"
	"jobinsights/internal/classifier"
	"jobinsights/internal/config"
	"jobinsights/internal/jobdb"
	"jobinsights/internal/report"
)

type analyzeFlags struct {
	hours    int
	since    string
	until    string
	tenantID string
	noLLM    bool
	llmModel string
	llmURL   string
	format   string
	output   string
	workers  int
	limit    int
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze and classify recent pipeline failures",
		Long: `Query failed job executions from the workflow database, classify
every recorded error, and print a report.

Examples:
  jobinsights analyze --hours 24
  jobinsights analyze --since 2026-08-01T00:00:00Z --until 2026-08-02T00:00:00Z
  jobinsights analyze --tenant-id 1b4e28ba-2fa1-11d2-883f-0016d3cca427 --format markdown
  jobinsights analyze --no-llm --format csv --output errors.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			summary, err := runAnalysis(cmd, cfg, flags)
			if err != nil {
				return err
			}
			return writeReport(cmd, summary, flags.format, flags.output)
		},
	}

	cmd.Flags().IntVar(&flags.hours, "hours", 0, "lookback window in hours (default from config)")
	cmd.Flags().StringVar(&flags.since, "since", "", "window start (RFC3339), overrides --hours")
	cmd.Flags().StringVar(&flags.until, "until", "", "window end (RFC3339), defaults to now")
	cmd.Flags().StringVar(&flags.tenantID, "tenant-id", "", "restrict to one tenant (UUID)")
	cmd.Flags().BoolVar(&flags.noLLM, "no-llm", false, "disable the LLM fallback (rules only)")
	cmd.Flags().StringVar(&flags.llmModel, "llm-model", "", "override the LLM model")
	cmd.Flags().StringVar(&flags.llmURL, "llm-url", "", "override the LLM base URL")
	cmd.Flags().StringVar(&flags.format, "format", "text", "output format: text, markdown, json or csv")
	cmd.Flags().StringVar(&flags.output, "output", "", "write the report to a file instead of stdout")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "concurrent classification workers (default from config)")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "maximum failed jobs to fetch (default 1000)")

	return cmd
}

func runAnalysis(cmd *cobra.Command, cfg config.Config, flags analyzeFlags) (analyzer.AnalysisSummary, error) {
	opts, err := analysisOptions(cfg, flags)
	if err != nil {
		return analyzer.AnalysisSummary{}, err
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return analyzer.AnalysisSummary{}, err
	}
	defer closeStore()

	var llm *classifier.LLMClassifier
	if !flags.noLLM {
		llm = newLLMClassifier(cfg, store, flags.llmModel, flags.llmURL)
	}

	dbURL, err := cfg.DatabaseURL()
	if err != nil {
		return analyzer.AnalysisSummary{}, err
	}
	db, err := jobdb.Connect(cmd.Context(), dbURL)
	if err != nil {
		return analyzer.AnalysisSummary{}, err
	}
	defer db.Close()

	a := analyzer.New(db, classifier.New(llm))
	return a.Run(cmd.Context(), opts)
}

func analysisOptions(cfg config.Config, flags analyzeFlags) (analyzer.Options, error) {
	opts := analyzer.Options{
		LookbackHours: cfg.LookbackHours,
		Workers:       cfg.Workers,
		Limit:         flags.limit,
	}
	if flags.hours > 0 {
		opts.LookbackHours = flags.hours
	}
	if flags.workers > 0 {
		opts.Workers = flags.workers
	}
	if flags.since != "" {
		since, err := time.Parse(time.RFC3339, flags.since)
		if err != nil {
			return analyzer.Options{}, fmt.Errorf("invalid --since: %w", err)
		}
		opts.Since = since
	}
	if flags.until != "" {
		until, err := time.Parse(time.RFC3339, flags.until)
		if err != nil {
			return analyzer.Options{}, fmt.Errorf("invalid --until: %w", err)
		}
		opts.Until = until
	}
	if flags.tenantID != "" {
		tenant, err := uuid.Parse(flags.tenantID)
		if err != nil {
			return analyzer.Options{}, fmt.Errorf("invalid --tenant-id: %w", err)
		}
		opts.TenantID = tenant
	}
	return opts, nil
}

func writeReport(cmd *cobra.Command, summary analyzer.AnalysisSummary, format, output string) error {
	var content string
	switch format {
	case "text":
		content = report.RenderText(summary)
	case "markdown":
		content = report.RenderMarkdown(summary)
	case "json":
		rendered, err := report.RenderJSON(summary)
		if err != nil {
			return err
		}
		content = rendered
	case "csv":
		if output == "" {
			return report.WriteCSV(summary, cmd.OutOrStdout())
		}
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			return err
		}
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		return report.WriteCSV(summary, f)
	default:
		return fmt.Errorf("unknown format %q: use text, markdown, json or csv", format)
	}

	if output == "" {
		fmt.Fprint(cmd.OutOrStdout(), content)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	return os.WriteFile(output, []byte(content), 0o644)
}
