package domain

import "time"

// Correction is one durable feedback record: a human override of a
// previously assigned category. Corrections are append-only; the system
// never mutates or deletes them.
type Correction struct {
	Timestamp         time.Time   `json:"timestamp"`
	JobID             string      `json:"job_id"`
	ActivityName      string      `json:"activity_name"`
	Error             ErrorRecord `json:"error"`
	OriginalCategory  string      `json:"original_category"`
	CorrectedCategory string      `json:"corrected_category"`
	User              string      `json:"user,omitempty"`
	Notes             string      `json:"notes,omitempty"`
}

// FewShotExample is a correction reshaped for the LLM prompt.
type FewShotExample struct {
	ActivityName string
	Error        ErrorRecord
	Category     string
	Reasoning    string
}

// DefaultCorrectionReasoning is used when a correction carries no notes.
const DefaultCorrectionReasoning = "User-corrected classification"

// FewShotExampleFromCorrection reshapes one correction, falling back to a
// generic note when no rationale was recorded.
func FewShotExampleFromCorrection(c Correction) FewShotExample {
	reasoning := c.Notes
	if reasoning == "" {
		reasoning = DefaultCorrectionReasoning
	}
	return FewShotExample{
		ActivityName: c.ActivityName,
		Error:        c.Error,
		Category:     c.CorrectedCategory,
		Reasoning:    reasoning,
	}
}
