package notify

import (
	"strings"
	"testing"
	"time"

	"jobinsights/internal/analyzer"
)

func TestBuildSummaryMessage(t *testing.T) {
	summary := analyzer.AnalysisSummary{
		PeriodStart: time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 8, 21, 6, 0, 0, 0, time.UTC),
		TotalJobs:   3,
		TotalErrors: 5,
		ByCategory: map[string]int{
			"THIRD_PARTY_SYSTEM": 3,
			"INPUT_DATA_QUALITY": 2,
		},
		ByPipeline: map[string]int{"invoices": 2, "payroll": 1},
	}

	msg := BuildSummaryMessage(summary)
	for _, want := range []string{
		"*3* failed jobs, *5* classified errors",
		"`THIRD_PARTY_SYSTEM`: 3",
		"`INPUT_DATA_QUALITY`: 2",
		"Most affected pipeline: *invoices* (2 jobs)",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("summary message missing %q:\n%s", want, msg)
		}
	}
	// Categories come highest count first.
	if strings.Index(msg, "THIRD_PARTY_SYSTEM") > strings.Index(msg, "INPUT_DATA_QUALITY") {
		t.Fatalf("categories not ordered by count:\n%s", msg)
	}
}

func TestBuildSummaryMessageNoFailures(t *testing.T) {
	msg := BuildSummaryMessage(analyzer.AnalysisSummary{
		PeriodStart: time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 8, 21, 6, 0, 0, 0, time.UTC),
	})
	if !strings.Contains(msg, "No failures recorded") {
		t.Fatalf("empty-window message missing all-clear note:\n%s", msg)
	}
}
