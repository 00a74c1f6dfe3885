// Package sqlite is the transactional alternative to the JSON file
// corrections log, for installs where several operators record
// corrections concurrently.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"jobinsights/internal/domain"
)

// Store implements feedback.Store on a local SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates (or opens) the corrections database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS corrections (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp          DATETIME NOT NULL,
		job_id             TEXT NOT NULL,
		activity_name      TEXT DEFAULT '',
		error_code         INTEGER DEFAULT 0,
		error_message      TEXT DEFAULT '',
		error_exception    TEXT DEFAULT '',
		error_details      TEXT DEFAULT '{}',
		original_category  TEXT NOT NULL,
		corrected_category TEXT NOT NULL,
		user               TEXT DEFAULT '',
		notes              TEXT DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_corrections_timestamp ON corrections(timestamp);
	CREATE INDEX IF NOT EXISTS idx_corrections_category ON corrections(corrected_category);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) AddCorrection(jobID, activityName string, rec domain.ErrorRecord, originalCategory, correctedCategory, user, notes string) error {
	_, err := s.db.Exec(
		`INSERT INTO corrections
		 (timestamp, job_id, activity_name, error_code, error_message, error_exception, error_details, original_category, corrected_category, user, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.now().UTC(), jobID, activityName, int(rec.Code), rec.Message, rec.Exception, rec.DetailsJSON(),
		originalCategory, correctedCategory, user, notes,
	)
	if err != nil {
		return fmt.Errorf("inserting correction: %w", err)
	}
	log.Printf("recorded correction %s -> %s job=%s activity=%s", originalCategory, correctedCategory, jobID, activityName)
	return nil
}

func (s *Store) Corrections(category domain.FailureCategory, limit int) ([]domain.Correction, error) {
	query := `SELECT timestamp, job_id, activity_name, error_code, error_message, error_exception, error_details,
	                 original_category, corrected_category, user, notes
	          FROM corrections`
	var args []any
	if category != "" {
		query += ` WHERE corrected_category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY timestamp DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Correction
	for rows.Next() {
		var c domain.Correction
		var code int
		var details string
		if err := rows.Scan(
			&c.Timestamp, &c.JobID, &c.ActivityName, &code, &c.Error.Message,
			&c.Error.Exception, &details, &c.OriginalCategory, &c.CorrectedCategory,
			&c.User, &c.Notes,
		); err != nil {
			return nil, err
		}
		c.Error.Code = domain.ErrorCode(code)
		if details != "" && details != "{}" {
			if err := json.Unmarshal([]byte(details), &c.Error.Details); err != nil {
				log.Printf("unreadable correction details job=%s: %v", c.JobID, err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) FewShotExamples(max int) ([]domain.FewShotExample, error) {
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

func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM corrections`).Scan(&count)
	return count, err
}
