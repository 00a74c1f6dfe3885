package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jobinsights/internal/analyzer"
	"jobinsights/internal/config"
	"jobinsights/internal/notify"
	"jobinsights/internal/report"
	"jobinsights/internal/schedule"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var cronExpr string
	var postSlack bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the analysis on a cron schedule",
		Long: `Run the failure analysis periodically. Each run writes a Markdown
report into the configured output directory and, with --slack, posts a
summary to the configured Slack channel.

Examples:
  jobinsights watch --schedule "0 6 * * *"
  jobinsights watch --slack`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			expr := cronExpr
			if expr == "" {
				expr = cfg.AnalyzeSchedule
			}
			if expr == "" {
				return fmt.Errorf("no schedule: set --schedule or analyze_schedule in config")
			}

			var notifier *notify.Notifier
			if postSlack {
				if cfg.SlackBotToken == "" || cfg.SlackChannelID == "" {
					return fmt.Errorf("--slack requires slack_bot_token and slack_channel_id")
				}
				notifier = notify.New(cfg.SlackBotToken, cfg.SlackChannelID)
			}

			run := func() {
				summary, err := runAnalysis(cmd, cfg, analyzeFlags{})
				if err != nil {
					log.Printf("scheduled analysis failed: %v", err)
					return
				}
				if err := writeScheduledReport(cfg, summary); err != nil {
					log.Printf("writing scheduled report: %v", err)
				}
				if notifier != nil {
					if err := notifier.PostSummary(summary); err != nil {
						log.Printf("posting summary: %v", err)
					}
				}
			}

			if err := schedule.Start(expr, cfg.Location, run); err != nil {
				return err
			}
			select {} // runs until killed
		},
	}

	cmd.Flags().StringVar(&cronExpr, "schedule", "", "cron expression (overrides analyze_schedule)")
	cmd.Flags().BoolVar(&postSlack, "slack", false, "post a summary to Slack after each run")
	return cmd
}

func writeScheduledReport(cfg config.Config, summary analyzer.AnalysisSummary) error {
	if err := os.MkdirAll(cfg.ReportOutputDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("failure-analysis-%s.md", summary.AnalyzedAt.Format("2006-01-02-1504"))
	path := filepath.Join(cfg.ReportOutputDir, name)
	if err := os.WriteFile(path, []byte(report.RenderMarkdown(summary)), 0o644); err != nil {
		return err
	}
	log.Printf("wrote scheduled report path=%s", path)
	return nil
}
