package feedback

import (
	"testing"

	"jobinsights/internal/domain"
)

func TestComputeStats(t *testing.T) {
	store := newTempStore(t)
	rec := domain.ErrorRecord{Message: "x"}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("AddCorrection: %v", err)
		}
	}
	must(store.AddCorrection("j1", "a", rec, "UNKNOWN", "THIRD_PARTY_SYSTEM", "kari@example.com", ""))
	must(store.AddCorrection("j2", "a", rec, "UNKNOWN", "THIRD_PARTY_SYSTEM", "kari@example.com", ""))
	must(store.AddCorrection("j3", "b", rec, "UNKNOWN", "INPUT_DATA_QUALITY", "", ""))

	stats, err := ComputeStats(store)
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("total = %d, want 3", stats.Total)
	}
	if stats.ByCategory["THIRD_PARTY_SYSTEM"] != 2 || stats.ByCategory["INPUT_DATA_QUALITY"] != 1 {
		t.Fatalf("by_category = %v", stats.ByCategory)
	}
	if stats.ByUser["kari@example.com"] != 2 {
		t.Fatalf("by_user = %v", stats.ByUser)
	}
	if len(stats.ByUser) != 1 {
		t.Fatalf("anonymous corrections must not appear in by_user: %v", stats.ByUser)
	}
}

func TestSuggestRulesMinesRecurringPatterns(t *testing.T) {
	store := newTempStore(t)
	for i, msg := range []string{
		"timeout calling xledger api endpoint",
		"xledger api responded with timeout",
		"another xledger api timeout observed",
	} {
		rec := domain.ErrorRecord{Message: msg, Exception: "GatewayError"}
		if err := store.AddCorrection("job", "sync_invoices", rec, "UNKNOWN", "THIRD_PARTY_SYSTEM", "", ""); err != nil {
			t.Fatalf("AddCorrection %d: %v", i, err)
		}
	}

	suggestions, err := SuggestRules(store, 3)
	if err != nil {
		t.Fatalf("SuggestRules: %v", err)
	}
	found := suggestions["THIRD_PARTY_SYSTEM"]
	if len(found) == 0 {
		t.Fatal("expected suggestions for THIRD_PARTY_SYSTEM")
	}

	byPattern := map[string]Suggestion{}
	for _, s := range found {
		byPattern[s.Type+"/"+s.Pattern] = s
	}
	if s, ok := byPattern["message/timeout"]; !ok || s.Count != 3 {
		t.Fatalf("missing message/timeout suggestion: %v", byPattern)
	}
	if s, ok := byPattern["message/xledger"]; !ok || s.Count != 3 {
		t.Fatalf("missing message/xledger suggestion: %v", byPattern)
	}
	if s, ok := byPattern["exception/gatewayerror"]; !ok || s.Count != 3 {
		t.Fatalf("missing exception suggestion: %v", byPattern)
	}
	if s, ok := byPattern["activity/sync_invoices"]; !ok || s.Count != 3 {
		t.Fatalf("missing activity suggestion: %v", byPattern)
	}
	// Short words never become suggestions, however often they recur.
	if _, ok := byPattern["message/api"]; ok {
		t.Fatal("words shorter than 4 chars must be skipped")
	}
}

func TestSuggestRulesBelowThreshold(t *testing.T) {
	store := newTempStore(t)
	rec := domain.ErrorRecord{Message: "singular failure message"}
	if err := store.AddCorrection("j", "a", rec, "UNKNOWN", "WORKFLOW_ENGINE", "", ""); err != nil {
		t.Fatalf("AddCorrection: %v", err)
	}
	suggestions, err := SuggestRules(store, 3)
	if err != nil {
		t.Fatalf("SuggestRules: %v", err)
	}
	if len(suggestions) != 0 {
		t.Fatalf("expected no suggestions below threshold, got %v", suggestions)
	}
}
