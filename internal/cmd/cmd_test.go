package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"jobinsights/internal/analyzer"
	"jobinsights/internal/config"
)

func TestRootCommandSubcommands(t *testing.T) {
	root := NewRootCommand()
	want := map[string]bool{"analyze": false, "feedback": false, "watch": false}
	for _, sub := range root.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}

func TestAnalysisOptionsWindowFlags(t *testing.T) {
	cfg := config.Config{LookbackHours: 24, Workers: 4}

	opts, err := analysisOptions(cfg, analyzeFlags{hours: 48})
	if err != nil {
		t.Fatalf("analysisOptions: %v", err)
	}
	if opts.LookbackHours != 48 {
		t.Fatalf("lookback = %d, want flag override 48", opts.LookbackHours)
	}

	opts, err = analysisOptions(cfg, analyzeFlags{
		since: "2026-08-01T00:00:00Z",
		until: "2026-08-02T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("analysisOptions: %v", err)
	}
	if opts.Since.IsZero() || !opts.Until.Equal(time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("window not parsed: %+v", opts)
	}
}

func TestAnalysisOptionsRejectsBadInput(t *testing.T) {
	cfg := config.Config{LookbackHours: 24, Workers: 4}
	if _, err := analysisOptions(cfg, analyzeFlags{since: "yesterday"}); err == nil {
		t.Fatal("expected error for bad --since")
	}
	if _, err := analysisOptions(cfg, analyzeFlags{tenantID: "not-a-uuid"}); err == nil {
		t.Fatal("expected error for bad --tenant-id")
	}
}

func TestWriteReportUnknownFormat(t *testing.T) {
	cmd := &cobra.Command{}
	if err := writeReport(cmd, analyzer.AnalysisSummary{}, "yaml", ""); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWriteReportTextToStdout(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	if err := writeReport(cmd, analyzer.AnalysisSummary{}, "text", ""); err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	if !strings.Contains(buf.String(), "FAILURE ANALYSIS SUMMARY") {
		t.Fatalf("report not written to stdout:\n%s", buf.String())
	}
}
