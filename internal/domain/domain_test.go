package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseFailureCategoryRoundTrip(t *testing.T) {
	for _, c := range AllCategories() {
		parsed, err := ParseFailureCategory(string(c))
		if err != nil {
			t.Fatalf("ParseFailureCategory(%q) failed: %v", c, err)
		}
		if parsed != c {
			t.Fatalf("ParseFailureCategory(%q) = %q", c, parsed)
		}
	}
}

func TestParseFailureCategoryRejectsUnknownString(t *testing.T) {
	if _, err := ParseFailureCategory("DATA_QUALITY"); err == nil {
		t.Fatal("expected error for unrecognized category string")
	}
}

func TestParseLLMCategoryExcludesUnknown(t *testing.T) {
	if _, err := ParseLLMCategory("UNKNOWN"); err == nil {
		t.Fatal("UNKNOWN must not be a valid model output")
	}
	for _, c := range LLMCategories() {
		if c == CategoryUnknown {
			t.Fatal("LLMCategories must not include UNKNOWN")
		}
		if _, err := ParseLLMCategory(string(c)); err != nil {
			t.Fatalf("ParseLLMCategory(%q) failed: %v", c, err)
		}
	}
}

func TestErrorCodeDecodeTolerance(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{`{"code": 422}`, 422},
		{`{"code": "404"}`, 404},
		{`{"code": null}`, 0},
		{`{"code": "not-a-number"}`, 0},
		{`{}`, 0},
	}
	for _, tc := range cases {
		var rec ErrorRecord
		if err := json.Unmarshal([]byte(tc.in), &rec); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if int(rec.Code) != tc.want {
			t.Fatalf("code for %s = %d, want %d", tc.in, rec.Code, tc.want)
		}
	}
}

func TestRunInfoPreservesActivityOrder(t *testing.T) {
	payload := `{
		"errors": {
			"fetch_data": [{"code": 500, "message": "boom"}],
			"validate_input": [{"code": 400, "message": "bad"}],
			"load_output": []
		},
		"unrelated": {"ignored": true}
	}`
	var info RunInfo
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		t.Fatalf("unmarshal run_info: %v", err)
	}

	got := info.Activities()
	want := []string{"fetch_data", "validate_input", "load_output"}
	if len(got) != len(want) {
		t.Fatalf("activities = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("activities = %v, want %v", got, want)
		}
	}
	if len(info.Errors("fetch_data")) != 1 {
		t.Fatalf("fetch_data errors = %d, want 1", len(info.Errors("fetch_data")))
	}
	if !info.HasErrors() {
		t.Fatal("expected HasErrors to be true")
	}
}

func TestRunInfoMarshalKeepsOrder(t *testing.T) {
	info := NewRunInfo(
		[]string{"b_second", "a_first"},
		map[string][]ErrorRecord{
			"b_second": {{Message: "x"}},
			"a_first":  {{Message: "y"}},
		},
	)
	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Index(string(data), "b_second") > strings.Index(string(data), "a_first") {
		t.Fatalf("marshal reordered activities: %s", data)
	}
}

func TestRunInfoNullAndMissingErrors(t *testing.T) {
	var info RunInfo
	if err := json.Unmarshal([]byte(`{"errors": null}`), &info); err != nil {
		t.Fatalf("null errors: %v", err)
	}
	if info.HasErrors() {
		t.Fatal("null errors should have no errors")
	}
	if err := json.Unmarshal([]byte(`{}`), &info); err != nil {
		t.Fatalf("missing errors: %v", err)
	}
	if len(info.Activities()) != 0 {
		t.Fatal("missing errors should have no activities")
	}
}

func TestFewShotExampleFallbackReasoning(t *testing.T) {
	c := Correction{ActivityName: "fetch", CorrectedCategory: "THIRD_PARTY_SYSTEM"}
	ex := FewShotExampleFromCorrection(c)
	if ex.Reasoning != DefaultCorrectionReasoning {
		t.Fatalf("reasoning = %q, want default", ex.Reasoning)
	}
	c.Notes = "rate limited by provider"
	if got := FewShotExampleFromCorrection(c).Reasoning; got != "rate limited by provider" {
		t.Fatalf("reasoning = %q", got)
	}
}
