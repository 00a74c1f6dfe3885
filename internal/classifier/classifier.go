// Package classifier assigns pipeline failures to root-cause categories
// using a two-stage strategy: deterministic pattern rules first, then an
// LLM fallback for ambiguous cases.
package classifier

import (
	"context"

	"jobinsights/internal/domain"
)

// Provenance values for ClassifiedFailure.ClassifiedBy. Provenance is
// recorded at classification time, never inferred afterwards.
const (
	ClassifiedByRules = "rules"
	ClassifiedByLLM   = "llm"
	ClassifiedByNone  = "none"
)

// ruleConfidence is fixed for every rule match.
const ruleConfidence = 0.9

const noMatchReasoning = "No matching patterns and LLM disabled"

// ClassifiedFailure is the result of classifying one error.
type ClassifiedFailure struct {
	Category      domain.FailureCategory `json:"category"`
	Confidence    float64                `json:"confidence"`
	Reasoning     string                 `json:"reasoning"`
	ActivityName  string                 `json:"activity_name,omitempty"`
	ClassifiedBy  string                 `json:"classified_by"`
	OriginalError domain.ErrorRecord     `json:"original_error"`
}

// Classifier orchestrates rule matching and the optional LLM fallback.
type Classifier struct {
	rules *RuleMatcher
	llm   *LLMClassifier // nil disables the fallback
}

// New builds a classifier. A nil llm turns the fallback off: errors no
// rule matches come back as UNKNOWN with zero confidence.
func New(llm *LLMClassifier) *Classifier {
	return &Classifier{rules: NewRuleMatcher(), llm: llm}
}

// Classify assigns one error to a category. The result is always fully
// formed: rule matches carry the fixed 0.9 confidence, LLM matches carry
// the model's self-reported value, and the no-match case is an explicit
// UNKNOWN rather than an error.
func (c *Classifier) Classify(ctx context.Context, rec domain.ErrorRecord, activityName string) ClassifiedFailure {
	if category, reasoning, ok := c.rules.MatchError(rec); ok {
		return ClassifiedFailure{
			Category:      category,
			Confidence:    ruleConfidence,
			Reasoning:     reasoning,
			ActivityName:  activityName,
			ClassifiedBy:  ClassifiedByRules,
			OriginalError: rec,
		}
	}

	if c.llm != nil {
		category, confidence, reasoning := c.llm.Classify(ctx, rec, activityName)
		return ClassifiedFailure{
			Category:      category,
			Confidence:    confidence,
			Reasoning:     reasoning,
			ActivityName:  activityName,
			ClassifiedBy:  ClassifiedByLLM,
			OriginalError: rec,
		}
	}

	return ClassifiedFailure{
		Category:      domain.CategoryUnknown,
		Confidence:    0.0,
		Reasoning:     noMatchReasoning,
		ActivityName:  activityName,
		ClassifiedBy:  ClassifiedByNone,
		OriginalError: rec,
	}
}

// ClassifyJobErrors classifies every error in a run, in activity-then-
// error order. Every input error yields exactly one result; a degraded
// UNKNOWN result still counts.
func (c *Classifier) ClassifyJobErrors(ctx context.Context, runInfo domain.RunInfo) []ClassifiedFailure {
	var results []ClassifiedFailure
	for _, activity := range runInfo.Activities() {
		for _, rec := range runInfo.Errors(activity) {
			results = append(results, c.Classify(ctx, rec, activity))
		}
	}
	return results
}
