package classifier

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobinsights/internal/domain"
)

func TestClassifyRuleMatchHasFixedConfidence(t *testing.T) {
	c := New(nil)
	rec := domain.ErrorRecord{Code: 400, Message: "Validation failed: bad payload"}
	result := c.Classify(context.Background(), rec, "validate_input")
	if result.Category != domain.InputDataQuality {
		t.Fatalf("category = %s, want INPUT_DATA_QUALITY", result.Category)
	}
	if result.Confidence != 0.9 {
		t.Fatalf("confidence = %f, want exactly 0.9", result.Confidence)
	}
	if result.ClassifiedBy != ClassifiedByRules {
		t.Fatalf("classified_by = %s, want %s", result.ClassifiedBy, ClassifiedByRules)
	}
	if result.ActivityName != "validate_input" {
		t.Fatalf("activity = %q", result.ActivityName)
	}
	if result.OriginalError.Message != rec.Message {
		t.Fatal("original error must be carried through")
	}
}

func TestClassifyNoMatchWithLLMDisabled(t *testing.T) {
	c := New(nil)
	rec := domain.ErrorRecord{Code: 500, Message: "Something went wrong", Exception: "Exception"}
	result := c.Classify(context.Background(), rec, "transform")
	if result.Category != domain.CategoryUnknown {
		t.Fatalf("category = %s, want UNKNOWN", result.Category)
	}
	if result.Confidence != 0.0 {
		t.Fatalf("confidence = %f, want 0.0", result.Confidence)
	}
	if result.Reasoning != "No matching patterns and LLM disabled" {
		t.Fatalf("reasoning = %q", result.Reasoning)
	}
	if result.ClassifiedBy != ClassifiedByNone {
		t.Fatalf("classified_by = %s, want %s", result.ClassifiedBy, ClassifiedByNone)
	}
}

func TestClassifyFallsThroughToLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody(`{"category": "THIRD_PARTY_SYSTEM", "confidence": 0.75, "reasoning": "Provider outage"}`))
	}))
	defer srv.Close()

	c := New(NewLLMClassifier(LLMConfig{BaseURL: srv.URL}, nil))
	rec := domain.ErrorRecord{Code: 500, Message: "Something went wrong", Exception: "Exception"}
	result := c.Classify(context.Background(), rec, "")
	if result.Category != domain.ThirdPartySystem {
		t.Fatalf("category = %s, want THIRD_PARTY_SYSTEM", result.Category)
	}
	if result.Confidence != 0.75 {
		t.Fatalf("confidence = %f, want model-reported 0.75", result.Confidence)
	}
	if result.ClassifiedBy != ClassifiedByLLM {
		t.Fatalf("classified_by = %s, want %s", result.ClassifiedBy, ClassifiedByLLM)
	}
}

func TestClassifyRuleMatchNeverCallsLLM(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		fmt.Fprint(w, completionBody(`{"category": "WORKFLOW_ENGINE", "confidence": 0.5, "reasoning": "r"}`))
	}))
	defer srv.Close()

	c := New(NewLLMClassifier(LLMConfig{BaseURL: srv.URL}, nil))
	c.Classify(context.Background(), domain.ErrorRecord{Message: "validation failed"}, "")
	if called {
		t.Fatal("rule match must short-circuit the LLM call")
	}
}

func TestClassifyJobErrorsPreservesOrder(t *testing.T) {
	runInfo := domain.NewRunInfo(
		[]string{"fetch_data", "validate_input", "load_output"},
		map[string][]domain.ErrorRecord{
			"fetch_data": {
				{Code: 500, Message: "connection refused by upstream host"},
				{Code: 429, Message: "rate limit exceeded"},
			},
			"validate_input": {
				{Code: 400, Message: "validation failed on row 7"},
			},
			"load_output": {
				{Code: 500, Message: "Something opaque happened"},
			},
		},
	)

	c := New(nil)
	results := c.ClassifyJobErrors(context.Background(), runInfo)
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	wantActivities := []string{"fetch_data", "fetch_data", "validate_input", "load_output"}
	for i, want := range wantActivities {
		if results[i].ActivityName != want {
			t.Fatalf("result %d activity = %q, want %q", i, results[i].ActivityName, want)
		}
	}

	wantCategories := []domain.FailureCategory{
		domain.ThirdPartySystem,
		domain.ThirdPartySystem,
		domain.InputDataQuality,
		domain.CategoryUnknown,
	}
	for i, want := range wantCategories {
		if results[i].Category != want {
			t.Fatalf("result %d category = %s, want %s", i, results[i].Category, want)
		}
	}
}

func TestClassifyJobErrorsEmptyRun(t *testing.T) {
	c := New(nil)
	results := c.ClassifyJobErrors(context.Background(), domain.RunInfo{})
	if len(results) != 0 {
		t.Fatalf("got %d results for an empty run", len(results))
	}
}
