package feedback

import (
	"regexp"
	"sort"
	"strings"

	"jobinsights/internal/domain"
)

// Stats summarizes the corrections log.
type Stats struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
	ByUser     map[string]int `json:"by_user"`
}

// ComputeStats tallies corrections by corrected category and by user.
func ComputeStats(store Store) (Stats, error) {
	corrections, err := store.Corrections("", 0)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		Total:      len(corrections),
		ByCategory: make(map[string]int),
		ByUser:     make(map[string]int),
	}
	for _, c := range corrections {
		stats.ByCategory[c.CorrectedCategory]++
		if c.User != "" {
			stats.ByUser[c.User]++
		}
	}
	return stats, nil
}

// Suggestion is a candidate classification rule mined from corrections.
type Suggestion struct {
	Type     string   `json:"type"` // "message", "exception" or "activity"
	Pattern  string   `json:"pattern"`
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

const (
	minSuggestionWordLen = 4
	maxSuggestionExample = 3
)

var wordRe = regexp.MustCompile(`\w+`)

// SuggestRules mines corrections for recurring message words, exception
// types and activity names per corrected category. A pattern must occur
// in at least minCount corrections to be suggested. Results are keyed by
// category and sorted by occurrence count, highest first.
func SuggestRules(store Store, minCount int) (map[string][]Suggestion, error) {
	corrections, err := store.Corrections("", 0)
	if err != nil {
		return nil, err
	}
	if minCount < 1 {
		minCount = 1
	}

	byCategory := make(map[string][]domain.Correction)
	for _, c := range corrections {
		byCategory[c.CorrectedCategory] = append(byCategory[c.CorrectedCategory], c)
	}

	suggestions := make(map[string][]Suggestion)
	for category, items := range byCategory {
		messageHits := make(map[string][]domain.Correction)
		exceptionHits := make(map[string][]domain.Correction)
		activityHits := make(map[string][]domain.Correction)

		for _, item := range items {
			message := strings.ToLower(item.Error.Message)
			for _, word := range wordRe.FindAllString(message, -1) {
				if len(word) >= minSuggestionWordLen {
					messageHits[word] = append(messageHits[word], item)
				}
			}
			if exc := strings.ToLower(item.Error.Exception); exc != "" {
				exceptionHits[exc] = append(exceptionHits[exc], item)
			}
			if act := strings.ToLower(item.ActivityName); act != "" {
				activityHits[act] = append(activityHits[act], item)
			}
		}

		var found []Suggestion
		found = append(found, collectSuggestions("message", messageHits, minCount, func(c domain.Correction) string {
			return truncateExample(c.Error.Message)
		})...)
		found = append(found, collectSuggestions("exception", exceptionHits, minCount, func(c domain.Correction) string {
			return c.Error.Exception
		})...)
		found = append(found, collectSuggestions("activity", activityHits, minCount, func(c domain.Correction) string {
			return c.ActivityName
		})...)

		if len(found) > 0 {
			sort.SliceStable(found, func(i, j int) bool { return found[i].Count > found[j].Count })
			suggestions[category] = found
		}
	}
	return suggestions, nil
}

func collectSuggestions(kind string, hits map[string][]domain.Correction, minCount int, example func(domain.Correction) string) []Suggestion {
	patterns := make([]string, 0, len(hits))
	for pattern := range hits {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)

	var out []Suggestion
	for _, pattern := range patterns {
		matches := hits[pattern]
		if len(matches) < minCount {
			continue
		}
		examples := make([]string, 0, maxSuggestionExample)
		for _, m := range matches {
			if len(examples) == maxSuggestionExample {
				break
			}
			examples = append(examples, example(m))
		}
		out = append(out, Suggestion{Type: kind, Pattern: pattern, Count: len(matches), Examples: examples})
	}
	return out
}

func truncateExample(s string) string {
	if len(s) <= 100 {
		return s
	}
	return s[:100]
}
