package feedback

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"jobinsights/internal/domain"
)

var requiredCSVColumns = []string{"Job ID", "Activity Name", "Error Category", "Error Message"}

// ImportCSV reads corrections from a CSV export. Rows without a
// "Corrected Category" value, or whose correction matches the original
// category, are skipped; rows naming an unrecognized category are
// skipped with a warning. Returns the number of corrections recorded.
func ImportCSV(store Store, r io.Reader, user string) (int, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("reading CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, col := range requiredCSVColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return 0, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	imported := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("reading CSV row: %w", err)
		}

		jobID := field(row, "Job ID")
		originalCategory := field(row, "Error Category")
		correctedCategory := field(row, "Corrected Category")
		if correctedCategory == "" || correctedCategory == originalCategory {
			continue
		}
		if _, err := domain.ParseFailureCategory(correctedCategory); err != nil {
			log.Printf("skipping invalid category %q for job %s", correctedCategory, jobID)
			continue
		}

		code, _ := strconv.Atoi(field(row, "Error Code"))
		rec := domain.ErrorRecord{
			Code:      domain.ErrorCode(code),
			Message:   field(row, "Error Message"),
			Exception: field(row, "Exception Type"),
		}
		notes := field(row, "Notes")
		if notes == "" {
			notes = field(row, "Reasoning")
		}

		err = store.AddCorrection(jobID, field(row, "Activity Name"), rec, originalCategory, correctedCategory, user, notes)
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
