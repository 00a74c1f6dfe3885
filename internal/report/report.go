// Package report renders analysis summaries as text, Markdown, JSON
// and CSV.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"jobinsights/internal/analyzer"
)

const (
	textPipelineLimit     = 10
	markdownPipelineLimit = 20
)

type categoryCount struct {
	name  string
	count int
}

// sortedCounts orders a tally highest first; ties break on name so
// output is stable across runs.
func sortedCounts(m map[string]int) []categoryCount {
	out := make([]categoryCount, 0, len(m))
	for name, count := range m {
		out = append(out, categoryCount{name, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

func formatTime(t time.Time) string { return t.Format(time.RFC3339) }

func formatFinishedAt(t *time.Time) string {
	if t == nil {
		return "Unknown"
	}
	return t.Format("2006-01-02 15:04:05")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// RenderText renders the fixed-width console report.
func RenderText(summary analyzer.AnalysisSummary) string {
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)

	b.WriteString(rule + "\n")
	b.WriteString("FAILURE ANALYSIS SUMMARY\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "\nAnalysis Period: %s to %s\n", formatTime(summary.PeriodStart), formatTime(summary.PeriodEnd))
	fmt.Fprintf(&b, "Analyzed At: %s\n", formatTime(summary.AnalyzedAt))
	fmt.Fprintf(&b, "\nTotal Failed Jobs: %d\n", summary.TotalJobs)
	fmt.Fprintf(&b, "Total Errors: %d\n", summary.TotalErrors)

	b.WriteString("\n" + thin + "\n")
	b.WriteString("ERRORS BY CATEGORY\n")
	b.WriteString(thin + "\n")
	if len(summary.ByCategory) > 0 {
		for _, c := range sortedCounts(summary.ByCategory) {
			percentage := 0.0
			if summary.TotalErrors > 0 {
				percentage = float64(c.count) / float64(summary.TotalErrors) * 100
			}
			fmt.Fprintf(&b, "  %-25s: %4d (%5.1f%%)\n", c.name, c.count, percentage)
		}
	} else {
		b.WriteString("  No errors found\n")
	}

	b.WriteString("\n" + thin + "\n")
	b.WriteString("FAILED JOBS BY TENANT\n")
	b.WriteString(thin + "\n")
	if len(summary.ByTenant) > 0 {
		for _, c := range sortedCounts(summary.ByTenant) {
			fmt.Fprintf(&b, "  %s: %d jobs\n", c.name, c.count)
		}
	} else {
		b.WriteString("  No tenants found\n")
	}

	b.WriteString("\n" + thin + "\n")
	b.WriteString("FAILED JOBS BY PIPELINE\n")
	b.WriteString(thin + "\n")
	pipelines := sortedCounts(summary.ByPipeline)
	if len(pipelines) > 0 {
		shown := pipelines
		if len(shown) > textPipelineLimit {
			shown = shown[:textPipelineLimit]
		}
		for _, c := range shown {
			fmt.Fprintf(&b, "  %s: %d jobs\n", c.name, c.count)
		}
		if rest := len(pipelines) - textPipelineLimit; rest > 0 {
			fmt.Fprintf(&b, "  ... and %d more pipelines\n", rest)
		}
	} else {
		b.WriteString("  No pipelines found\n")
	}

	b.WriteString("\n" + thin + "\n")
	b.WriteString("ALL ERRORS - DETAILED BREAKDOWN\n")
	b.WriteString(thin + "\n")
	if len(summary.Results) > 0 {
		fmt.Fprintf(&b, "\n%-10s %-25s %-20s %-20s %-6s %-40s\n",
			"Job ID", "Pipeline", "Activity", "Category", "By", "Error")
		b.WriteString(strings.Repeat("-", 140) + "\n")

		totalErrors := 0
		for _, result := range summary.Results {
			jobID := truncate(result.JobID, 8)
			pipeline := truncate(orUnknown(result.PipelineName), 24)
			for _, c := range result.Classifications {
				activity := truncate(orDefault(c.ActivityName, "N/A"), 19)
				message := truncate(orDefault(c.OriginalError.Message, "No message"), 39)
				fmt.Fprintf(&b, "%-10s %-25s %-20s %-20s %-6s %-40s\n",
					jobID, pipeline, activity, truncate(string(c.Category), 19),
					truncate(c.ClassifiedBy, 5), message)
				totalErrors++
			}
		}
		fmt.Fprintf(&b, "\nTotal: %d errors across %d jobs\n", totalErrors, len(summary.Results))
	} else {
		b.WriteString("  No errors found\n")
	}

	b.WriteString("\n" + rule + "\n")
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// RenderMarkdown renders the report as a Markdown document suitable for
// chat posting or docs.
func RenderMarkdown(summary analyzer.AnalysisSummary) string {
	var b strings.Builder

	b.WriteString("# Failure Analysis Report\n\n")
	fmt.Fprintf(&b, "**Analysis Period:** %s to %s  \n", formatTime(summary.PeriodStart), formatTime(summary.PeriodEnd))
	fmt.Fprintf(&b, "**Analyzed At:** %s  \n\n", formatTime(summary.AnalyzedAt))
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Total Failed Jobs:** %d\n", summary.TotalJobs)
	fmt.Fprintf(&b, "- **Total Errors:** %d\n\n", summary.TotalErrors)

	b.WriteString("## Errors by Category\n\n")
	if len(summary.ByCategory) > 0 {
		b.WriteString("| Category | Count | Percentage |\n")
		b.WriteString("|----------|-------|------------|\n")
		for _, c := range sortedCounts(summary.ByCategory) {
			percentage := 0.0
			if summary.TotalErrors > 0 {
				percentage = float64(c.count) / float64(summary.TotalErrors) * 100
			}
			fmt.Fprintf(&b, "| %s | %d | %.1f%% |\n", c.name, c.count, percentage)
		}
	} else {
		b.WriteString("*No errors found*\n")
	}
	b.WriteString("\n")

	b.WriteString("## Failed Jobs by Tenant\n\n")
	if len(summary.ByTenant) > 0 {
		b.WriteString("| Tenant ID | Failed Jobs |\n")
		b.WriteString("|-----------|-------------|\n")
		for _, c := range sortedCounts(summary.ByTenant) {
			fmt.Fprintf(&b, "| `%s` | %d |\n", c.name, c.count)
		}
	} else {
		b.WriteString("*No tenant data*\n")
	}
	b.WriteString("\n")

	b.WriteString("## Failed Jobs by Pipeline\n\n")
	pipelines := sortedCounts(summary.ByPipeline)
	if len(pipelines) > 0 {
		b.WriteString("| Pipeline | Failed Jobs |\n")
		b.WriteString("|----------|-------------|\n")
		shown := pipelines
		if len(shown) > markdownPipelineLimit {
			shown = shown[:markdownPipelineLimit]
		}
		for _, c := range shown {
			fmt.Fprintf(&b, "| %s | %d |\n", c.name, c.count)
		}
		if rest := len(pipelines) - markdownPipelineLimit; rest > 0 {
			fmt.Fprintf(&b, "| *...and %d more pipelines* | |\n", rest)
		}
	} else {
		b.WriteString("*No pipeline data*\n")
	}
	b.WriteString("\n")

	b.WriteString("## All Errors - Detailed Breakdown\n\n")
	b.WriteString("| Job ID | Pipeline | Activity | Category | Classified By | Error Message | Finished At |\n")
	b.WriteString("|--------|----------|----------|----------|---------------|---------------|-------------|\n")
	if len(summary.Results) > 0 {
		for _, result := range summary.Results {
			jobID := truncate(result.JobID, 8)
			pipeline := truncate(orUnknown(result.PipelineName), 30)
			finishedAt := formatFinishedAt(result.FinishedAt)
			for _, c := range result.Classifications {
				activity := truncate(orDefault(c.ActivityName, "N/A"), 25)
				message := truncate(orDefault(c.OriginalError.Message, "No message"), 50)
				fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
					jobID, pipeline, activity, c.Category, c.ClassifiedBy, message, finishedAt)
			}
		}
	} else {
		b.WriteString("| - | - | - | - | - | - | - |\n")
	}
	b.WriteString("\n")

	return b.String()
}

// RenderJSON renders the summary as pretty-printed JSON.
func RenderJSON(summary analyzer.AnalysisSummary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling summary: %w", err)
	}
	return string(data) + "\n", nil
}

// csvHeaders matches the column set the corrections importer expects,
// so an exported report can be annotated and fed straight back in.
var csvHeaders = []string{
	"Job ID",
	"Pipeline Name",
	"Tenant ID",
	"Finished At",
	"Activity Name",
	"Error Category",
	"Classified By",
	"Confidence",
	"Reasoning",
	"Error Code",
	"Error Message",
	"Exception Type",
}

// WriteCSV writes one row per classified error.
func WriteCSV(summary analyzer.AnalysisSummary, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeaders); err != nil {
		return err
	}
	for _, result := range summary.Results {
		for _, c := range result.Classifications {
			row := []string{
				result.JobID,
				orUnknown(result.PipelineName),
				orUnknown(result.TenantID),
				formatFinishedAt(result.FinishedAt),
				orDefault(c.ActivityName, "N/A"),
				string(c.Category),
				c.ClassifiedBy,
				fmt.Sprintf("%.2f", c.Confidence),
				orDefault(c.Reasoning, "N/A"),
				fmt.Sprintf("%d", int(c.OriginalError.Code)),
				orDefault(c.OriginalError.Message, "No message"),
				orDefault(c.OriginalError.Exception, "N/A"),
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}
