package generator

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/model"
)

var rawCSVHeader = []string{"File Path", "Algorithm", "Algorithm Type", "Confidence", "Severity", "Line Number", "Description"}

// rawCSV flattens findings into CSV text. Lines are separated by "\n" and the
// text carries no trailing newline, so it splits into len(findings)+1 lines.
func rawCSV(findings []model.Finding) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(rawCSVHeader); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, f := range findings {
		record := []string{
			f.FilePath,
			f.Algorithm,
			f.AlgorithmType,
			strconv.Itoa(f.Confidence),
			string(f.Severity),
			strconv.Itoa(f.LineNumber),
			f.Description,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write CSV row for %s: %w", f.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}

	return strings.TrimSuffix(sb.String(), "\n"), nil
}
