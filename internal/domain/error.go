package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ErrorRecord is the unit of classification input. No field is required;
// absent fields degrade matching quality but never fail.
type ErrorRecord struct {
	Code      ErrorCode      `json:"code,omitempty"`
	Message   string         `json:"message,omitempty"`
	Exception string         `json:"exception,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// DetailsJSON serializes the free-form details payload. Returns "{}" for
// an empty payload so prompt and match text stay stable.
func (e ErrorRecord) DetailsJSON() string {
	if len(e.Details) == 0 {
		return "{}"
	}
	data, err := json.Marshal(e.Details)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// DetailsPretty is the indented form used when rendering the error for
// the LLM prompt.
func (e ErrorRecord) DetailsPretty() string {
	if len(e.Details) == 0 {
		return "{}"
	}
	data, err := json.MarshalIndent(e.Details, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ErrorCode is an HTTP-ish numeric code. Upstream payloads are sloppy
// about the type: sometimes a JSON number, sometimes a numeric string,
// sometimes absent. All of those decode without error; anything
// non-numeric decodes as zero.
type ErrorCode int

func (c *ErrorCode) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*c = 0
		return nil
	}
	*c = ErrorCode(n)
	return nil
}

func (c ErrorCode) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(c))), nil
}
