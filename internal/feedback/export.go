package feedback

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"jobinsights/internal/domain"
)

type fineTuneMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type fineTuneExample struct {
	Messages []fineTuneMessage `json:"messages"`
}

// fineTuneSystemPrompt enumerates the model-visible categories, so the
// exported examples stay consistent with the live prompt.
func fineTuneSystemPrompt() string {
	categories := domain.LLMCategories()
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return fmt.Sprintf("You are a workflow failure classifier. Classify errors into: %s, or %s.",
		strings.Join(names[:len(names)-1], ", "), names[len(names)-1])
}

// ExportForFineTuning writes every correction as one JSONL line in the
// OpenAI chat fine-tuning format. Returns the number of examples written.
func ExportForFineTuning(store Store, w io.Writer) (int, error) {
	corrections, err := store.Corrections("", 0)
	if err != nil {
		return 0, err
	}

	systemPrompt := fineTuneSystemPrompt()
	enc := json.NewEncoder(w)
	for _, c := range corrections {
		errJSON, err := json.Marshal(c.Error)
		if err != nil {
			return 0, fmt.Errorf("marshaling correction error: %w", err)
		}
		reasoning := c.Notes
		if reasoning == "" {
			reasoning = domain.DefaultCorrectionReasoning
		}
		assistant, err := json.Marshal(map[string]string{
			"category":  c.CorrectedCategory,
			"reasoning": reasoning,
		})
		if err != nil {
			return 0, fmt.Errorf("marshaling assistant content: %w", err)
		}

		example := fineTuneExample{Messages: []fineTuneMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Activity: %s\nError: %s", c.ActivityName, errJSON)},
			{Role: "assistant", Content: string(assistant)},
		}}
		if err := enc.Encode(example); err != nil {
			return 0, fmt.Errorf("writing training example: %w", err)
		}
	}
	return len(corrections), nil
}
