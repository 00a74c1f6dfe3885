// Package feedback records user corrections of failure classifications
// and feeds them back into future LLM prompts as few-shot examples.
package feedback

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"jobinsights/internal/domain"
)

// Store is the corrections log. Implementations are append-only:
// corrections are recorded with a server-assigned UTC timestamp and
// never mutated afterwards.
type Store interface {
	// AddCorrection records one human override.
	AddCorrection(jobID, activityName string, rec domain.ErrorRecord, originalCategory, correctedCategory, user, notes string) error

	// Corrections returns recorded corrections newest first, optionally
	// filtered by corrected category. A zero limit means no cap.
	Corrections(category domain.FailureCategory, limit int) ([]domain.Correction, error)

	// FewShotExamples returns the most recent corrections reshaped for
	// the LLM prompt.
	FewShotExamples(max int) ([]domain.FewShotExample, error)

	// Count is the total number of recorded corrections.
	Count() (int, error)
}

// FileStore keeps corrections in a single JSON array on disk. Every
// operation is a full read or read-modify-write of the file; an
// unreadable or corrupt file reads as empty so one bad write never
// wedges classification, but write failures always propagate.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore opens (or creates) the corrections file at path,
// creating parent directories as needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating feedback directory: %w", err)
	}
	s := &FileStore{path: path, now: time.Now}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.save([]domain.Correction{}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *FileStore) AddCorrection(jobID, activityName string, rec domain.ErrorRecord, originalCategory, correctedCategory, user, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	corrections := s.load()
	corrections = append(corrections, domain.Correction{
		Timestamp:         s.now().UTC(),
		JobID:             jobID,
		ActivityName:      activityName,
		Error:             rec,
		OriginalCategory:  originalCategory,
		CorrectedCategory: correctedCategory,
		User:              user,
		Notes:             notes,
	})
	if err := s.save(corrections); err != nil {
		return err
	}

	log.Printf("recorded correction %s -> %s job=%s activity=%s", originalCategory, correctedCategory, jobID, activityName)
	return nil
}

func (s *FileStore) Corrections(category domain.FailureCategory, limit int) ([]domain.Correction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	corrections := s.load()
	if category != "" {
		filtered := corrections[:0]
		for _, c := range corrections {
			if c.CorrectedCategory == string(category) {
				filtered = append(filtered, c)
			}
		}
		corrections = filtered
	}

	sort.SliceStable(corrections, func(i, j int) bool {
		return corrections[i].Timestamp.After(corrections[j].Timestamp)
	})

	if limit > 0 && len(corrections) > limit {
		corrections = corrections[:limit]
	}
	return corrections, nil
}

func (s *FileStore) FewShotExamples(max int) ([]domain.FewShotExample, error) {
	corrections, err := s.Corrections("", max)
	if err != nil {
		return nil, err
	}
	examples := make([]domain.FewShotExample, 0, len(corrections))
	for _, c := range corrections {
		examples = append(examples, domain.FewShotExampleFromCorrection(c))
	}
	return examples, nil
}

func (s *FileStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load()), nil
}

func (s *FileStore) load() []domain.Correction {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var corrections []domain.Correction
	if err := json.Unmarshal(data, &corrections); err != nil {
		log.Printf("feedback file unreadable, treating as empty path=%s: %v", s.path, err)
		return nil
	}
	return corrections
}

func (s *FileStore) save(corrections []domain.Correction) error {
	data, err := json.MarshalIndent(corrections, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling feedback: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing feedback file: %w", err)
	}
	return nil
}
