// Package normalized reads analysis results saved to disk, either as written
// by the analyze command or as detailed exports.
package normalized

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/model"
)

// Parse returns every result stored in the file. A file holds a single
// result object or an array of them.
func Parse(filePath string) ([]*model.AnalysisResult, error) {
	fileBytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseBytes(fileBytes)
}

// ParseBytes is Parse for content already in memory.
func ParseBytes(data []byte) ([]*model.AnalysisResult, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty result file")
	}

	var results []*model.AnalysisResult
	if data[0] == '[' {
		if err := json.Unmarshal(data, &results); err != nil {
			return nil, err
		}
	} else {
		var result model.AnalysisResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}

	for i, r := range results {
		if err := validate(r); err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
	}
	return results, nil
}

// ParseToMap groups the results of a file by repository name.
func ParseToMap(filePath string) (map[string][]*model.AnalysisResult, error) {
	results, err := Parse(filePath)
	if err != nil {
		return nil, err
	}

	resultMap := make(map[string][]*model.AnalysisResult)
	for _, r := range results {
		resultMap[r.Summary.RepositoryName] = append(resultMap[r.Summary.RepositoryName], r)
	}
	return resultMap, nil
}

func validate(r *model.AnalysisResult) error {
	if r == nil {
		return fmt.Errorf("null result")
	}
	if r.Summary.RepositoryName == "" {
		return fmt.Errorf("missing summary.repositoryName")
	}
	if r.Summary.TotalFindings != len(r.Findings) {
		return fmt.Errorf("summary.totalFindings is %d but %d findings are present", r.Summary.TotalFindings, len(r.Findings))
	}
	for _, f := range r.Findings {
		if f.Confidence < 0 || f.Confidence > 100 {
			return fmt.Errorf("finding %s has confidence %d outside 0..100", f.ID, f.Confidence)
		}
		if f.ConfidenceLevel != model.ConfidenceLevelFor(f.Confidence) {
			return fmt.Errorf("finding %s has confidence level %q, want %q for confidence %d", f.ID, f.ConfidenceLevel, model.ConfidenceLevelFor(f.Confidence), f.Confidence)
		}
		if f.Severity != model.SeverityFor(f.Confidence) {
			return fmt.Errorf("finding %s has severity %q, want %q for confidence %d", f.ID, f.Severity, model.SeverityFor(f.Confidence), f.Confidence)
		}
		if f.LineNumber < 1 {
			return fmt.Errorf("finding %s has line number %d", f.ID, f.LineNumber)
		}
		if !model.IsKnownAlgorithm(f.Algorithm) {
			return fmt.Errorf("finding %s has unknown algorithm %q", f.ID, f.Algorithm)
		}
	}
	return nil
}
