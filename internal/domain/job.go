package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// JobExecution is one failed pipeline run as returned by the job store.
type JobExecution struct {
	ID           string
	PipelineID   string
	PipelineName string
	SessionID    string
	TenantID     string
	Status       string
	Data         JobData
	StartedAt    *time.Time
	FinishedAt   *time.Time
	Duration     string
}

// JobData is the job execution's data payload. Only run_info is
// interesting here; everything else is ignored on decode.
type JobData struct {
	RunInfo RunInfo `json:"run_info"`
}

// RunInfo holds the per-activity error lists of one run. Activity order
// follows the JSON document order so batch classification output is
// stable and mirrors what the workflow engine recorded.
type RunInfo struct {
	activities []string
	errors     map[string][]ErrorRecord
}

// Activities returns the activity names in document order.
func (r RunInfo) Activities() []string { return r.activities }

// Errors returns the ordered error list for one activity.
func (r RunInfo) Errors(activity string) []ErrorRecord { return r.errors[activity] }

// HasErrors reports whether any activity recorded at least one error.
func (r RunInfo) HasErrors() bool {
	for _, errs := range r.errors {
		if len(errs) > 0 {
			return true
		}
	}
	return false
}

// NewRunInfo builds a RunInfo programmatically, mainly for tests and
// manual classification calls. Activities keep the given order.
func NewRunInfo(activities []string, errors map[string][]ErrorRecord) RunInfo {
	return RunInfo{activities: activities, errors: errors}
}

// UnmarshalJSON decodes {"errors": {activity: [error, ...], ...}, ...}
// with a token walk instead of a map so the activity declaration order
// survives the round trip.
func (r *RunInfo) UnmarshalJSON(data []byte) error {
	r.activities = nil
	r.errors = make(map[string][]ErrorRecord)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("run_info: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		if key != "errors" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return err
			}
			continue
		}

		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if tok == nil {
			continue
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '{' {
			return fmt.Errorf("run_info.errors: expected object, got %v", tok)
		}
		for dec.More() {
			actTok, err := dec.Token()
			if err != nil {
				return err
			}
			activity, _ := actTok.(string)
			var errs []ErrorRecord
			if err := dec.Decode(&errs); err != nil {
				return fmt.Errorf("run_info.errors[%q]: %w", activity, err)
			}
			r.activities = append(r.activities, activity)
			r.errors[activity] = errs
		}
		if _, err := dec.Token(); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON writes the errors object back in recorded activity order.
func (r RunInfo) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"errors":{`)
	for i, activity := range r.activities {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(activity)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.errors[activity])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}
