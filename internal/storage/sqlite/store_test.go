package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"jobinsights/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "corrections.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAddAndListCorrections(t *testing.T) {
	store := openTestStore(t)
	rec := domain.ErrorRecord{
		Code:      422,
		Message:   "validation failed",
		Exception: "ValidationError",
		Details:   map[string]any{"row": float64(7)},
	}
	if err := store.AddCorrection("job-1", "validate", rec, "UNKNOWN", "INPUT_DATA_QUALITY", "kari@example.com", "schema drift"); err != nil {
		t.Fatalf("AddCorrection: %v", err)
	}

	corrections, err := store.Corrections("", 0)
	if err != nil {
		t.Fatalf("Corrections: %v", err)
	}
	if len(corrections) != 1 {
		t.Fatalf("got %d corrections, want 1", len(corrections))
	}
	c := corrections[0]
	if c.JobID != "job-1" || c.CorrectedCategory != "INPUT_DATA_QUALITY" || c.Notes != "schema drift" {
		t.Fatalf("unexpected correction: %+v", c)
	}
	if c.Error.Code != 422 || c.Error.Exception != "ValidationError" {
		t.Fatalf("error record not preserved: %+v", c.Error)
	}
	if c.Error.Details["row"] != float64(7) {
		t.Fatalf("details not round-tripped: %v", c.Error.Details)
	}
}

func TestCorrectionsNewestFirstAndLimit(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	i := 0
	store.now = func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Minute)
	}

	for _, jobID := range []string{"job-1", "job-2", "job-3"} {
		if err := store.AddCorrection(jobID, "a", domain.ErrorRecord{}, "UNKNOWN", "WORKFLOW_ENGINE", "", ""); err != nil {
			t.Fatalf("AddCorrection: %v", err)
		}
	}

	corrections, err := store.Corrections("", 2)
	if err != nil {
		t.Fatalf("Corrections: %v", err)
	}
	if len(corrections) != 2 {
		t.Fatalf("got %d corrections, want 2", len(corrections))
	}
	if corrections[0].JobID != "job-3" || corrections[1].JobID != "job-2" {
		t.Fatalf("not newest first: %s, %s", corrections[0].JobID, corrections[1].JobID)
	}
}

func TestCorrectionsCategoryFilter(t *testing.T) {
	store := openTestStore(t)
	add := func(jobID, category string) {
		t.Helper()
		if err := store.AddCorrection(jobID, "a", domain.ErrorRecord{}, "UNKNOWN", category, "", ""); err != nil {
			t.Fatalf("AddCorrection: %v", err)
		}
	}
	add("j1", "THIRD_PARTY_SYSTEM")
	add("j2", "INPUT_DATA_QUALITY")
	add("j3", "THIRD_PARTY_SYSTEM")

	third, err := store.Corrections(domain.ThirdPartySystem, 0)
	if err != nil {
		t.Fatalf("Corrections: %v", err)
	}
	if len(third) != 2 {
		t.Fatalf("got %d filtered corrections, want 2", len(third))
	}

	count, err := store.Count()
	if err != nil || count != 3 {
		t.Fatalf("count = %d err = %v, want 3", count, err)
	}
}

func TestFewShotExamplesFallbackReasoning(t *testing.T) {
	store := openTestStore(t)
	if err := store.AddCorrection("j1", "a", domain.ErrorRecord{Message: "x"}, "UNKNOWN", "WORKFLOW_ENGINE", "", ""); err != nil {
		t.Fatalf("AddCorrection: %v", err)
	}
	examples, err := store.FewShotExamples(5)
	if err != nil {
		t.Fatalf("FewShotExamples: %v", err)
	}
	if len(examples) != 1 {
		t.Fatalf("got %d examples, want 1", len(examples))
	}
	if examples[0].Reasoning != domain.DefaultCorrectionReasoning {
		t.Fatalf("reasoning = %q, want default fallback", examples[0].Reasoning)
	}
}
