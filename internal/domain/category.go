package domain

import "fmt"

// FailureCategory is the closed set of root-cause classes a pipeline
// failure can be assigned to. The enumeration is the single source of
// truth: the LLM prompt choices, the response parser and the feedback
// validator are all derived from it.
type FailureCategory string

const (
	// InputDataQuality covers validation failures, missing fields,
	// format issues and schema mismatches in the input data.
	InputDataQuality FailureCategory = "INPUT_DATA_QUALITY"

	// WorkflowEngine covers internal pipeline/activity execution
	// issues, DAG errors and plugin failures.
	WorkflowEngine FailureCategory = "WORKFLOW_ENGINE"

	// ThirdPartySystem covers external API failures, timeouts,
	// authentication issues and rate limits.
	ThirdPartySystem FailureCategory = "THIRD_PARTY_SYSTEM"

	// CategoryUnknown means the failure could not be classified.
	CategoryUnknown FailureCategory = "UNKNOWN"
)

// AllCategories returns every member of the enumeration, including UNKNOWN.
func AllCategories() []FailureCategory {
	return []FailureCategory{InputDataQuality, WorkflowEngine, ThirdPartySystem, CategoryUnknown}
}

// LLMCategories returns the categories the LLM is allowed to answer with.
// UNKNOWN is deliberately excluded: it is reserved for the classifier's
// own "could not classify" outcome and is never a valid model output.
func LLMCategories() []FailureCategory {
	return []FailureCategory{InputDataQuality, WorkflowEngine, ThirdPartySystem}
}

// ParseFailureCategory maps a wire string back to the enumeration.
// Unrecognized strings are an error, never silently coerced.
func ParseFailureCategory(s string) (FailureCategory, error) {
	for _, c := range AllCategories() {
		if string(c) == s {
			return c, nil
		}
	}
	return CategoryUnknown, fmt.Errorf("unknown failure category %q", s)
}

// ParseLLMCategory is the strict variant used on LLM responses: the
// model may only answer with one of LLMCategories().
func ParseLLMCategory(s string) (FailureCategory, error) {
	for _, c := range LLMCategories() {
		if string(c) == s {
			return c, nil
		}
	}
	return CategoryUnknown, fmt.Errorf("category %q is not a valid model output", s)
}

func (c FailureCategory) String() string { return string(c) }
