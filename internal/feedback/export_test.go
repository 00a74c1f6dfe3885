package feedback

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"jobinsights/internal/domain"
)

func TestExportForFineTuning(t *testing.T) {
	store := newTempStore(t)
	rec := domain.ErrorRecord{Code: 500, Message: "mystery failure"}
	if err := store.AddCorrection("job-1", "fetch_data", rec, "UNKNOWN", "THIRD_PARTY_SYSTEM", "", "provider outage"); err != nil {
		t.Fatalf("AddCorrection: %v", err)
	}
	if err := store.AddCorrection("job-2", "validate", domain.ErrorRecord{Code: 422}, "UNKNOWN", "INPUT_DATA_QUALITY", "", ""); err != nil {
		t.Fatalf("AddCorrection: %v", err)
	}

	var buf bytes.Buffer
	count, err := ExportForFineTuning(store, &buf)
	if err != nil {
		t.Fatalf("ExportForFineTuning: %v", err)
	}
	if count != 2 {
		t.Fatalf("exported %d examples, want 2", count)
	}

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		lines++
		var example fineTuneExample
		if err := json.Unmarshal(scanner.Bytes(), &example); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		if len(example.Messages) != 3 {
			t.Fatalf("line %d has %d messages, want 3", lines, len(example.Messages))
		}
		if example.Messages[0].Role != "system" || example.Messages[1].Role != "user" || example.Messages[2].Role != "assistant" {
			t.Fatalf("line %d has wrong roles: %+v", lines, example.Messages)
		}
		for _, c := range domain.LLMCategories() {
			if !strings.Contains(example.Messages[0].Content, string(c)) {
				t.Fatalf("system message missing category %s", c)
			}
		}
		var assistant struct {
			Category  string `json:"category"`
			Reasoning string `json:"reasoning"`
		}
		if err := json.Unmarshal([]byte(example.Messages[2].Content), &assistant); err != nil {
			t.Fatalf("assistant content is not JSON: %v", err)
		}
		if assistant.Category == "" || assistant.Reasoning == "" {
			t.Fatalf("assistant content incomplete: %+v", assistant)
		}
	}
	if lines != 2 {
		t.Fatalf("wrote %d JSONL lines, want 2", lines)
	}
}

func TestExportForFineTuningEmptyStore(t *testing.T) {
	store := newTempStore(t)
	var buf bytes.Buffer
	count, err := ExportForFineTuning(store, &buf)
	if err != nil {
		t.Fatalf("ExportForFineTuning: %v", err)
	}
	if count != 0 || buf.Len() != 0 {
		t.Fatalf("count=%d buflen=%d, want empty output", count, buf.Len())
	}
}
