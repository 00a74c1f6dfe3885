// Package notify posts analysis summaries to Slack.
package notify

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/slack-go/slack"

	"jobinsights/internal/analyzer"
)

const summaryCategoryLimit = 5

// Notifier posts summaries to a fixed channel.
type Notifier struct {
	api       *slack.Client
	channelID string
}

func New(botToken, channelID string) *Notifier {
	return &Notifier{api: slack.New(botToken), channelID: channelID}
}

// BuildSummaryMessage renders the Slack mrkdwn digest of one run.
func BuildSummaryMessage(summary analyzer.AnalysisSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":bar_chart: *Failure Analysis* %s to %s\n",
		summary.PeriodStart.Format("Jan 2 15:04"), summary.PeriodEnd.Format("Jan 2 15:04"))
	fmt.Fprintf(&b, "*%d* failed jobs, *%d* classified errors\n", summary.TotalJobs, summary.TotalErrors)

	if len(summary.ByCategory) > 0 {
		b.WriteString("\n*Errors by category:*\n")
		type cc struct {
			name  string
			count int
		}
		counts := make([]cc, 0, len(summary.ByCategory))
		for name, count := range summary.ByCategory {
			counts = append(counts, cc{name, count})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].count != counts[j].count {
				return counts[i].count > counts[j].count
			}
			return counts[i].name < counts[j].name
		})
		if len(counts) > summaryCategoryLimit {
			counts = counts[:summaryCategoryLimit]
		}
		for _, c := range counts {
			fmt.Fprintf(&b, "• `%s`: %d\n", c.name, c.count)
		}
	} else {
		b.WriteString("\nNo failures recorded in this window. :white_check_mark:\n")
	}

	if len(summary.ByPipeline) > 0 {
		worst := ""
		worstCount := 0
		names := make([]string, 0, len(summary.ByPipeline))
		for name := range summary.ByPipeline {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if summary.ByPipeline[name] > worstCount {
				worst = name
				worstCount = summary.ByPipeline[name]
			}
		}
		fmt.Fprintf(&b, "\nMost affected pipeline: *%s* (%d jobs)\n", worst, worstCount)
	}
	return b.String()
}

// PostSummary sends the digest to the configured channel.
func (n *Notifier) PostSummary(summary analyzer.AnalysisSummary) error {
	text := BuildSummaryMessage(summary)
	_, _, err := n.api.PostMessage(n.channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting summary to slack: %w", err)
	}
	log.Printf("posted analysis summary channel=%s jobs=%d errors=%d", n.channelID, summary.TotalJobs, summary.TotalErrors)
	return nil
}
