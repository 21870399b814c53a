package model

import (
	"encoding/json"
	"fmt"
)

// AnalysisConfig holds the request parameters for one analysis run
type AnalysisConfig struct {
	RepoPath                     string         `json:"repoPath"`
	ScanLibraryImports           bool           `json:"scanLibraryImports"`
	ScanAlgorithmImplementations bool           `json:"scanAlgorithmImplementations"`
	ConfidenceThreshold          ThresholdLevel `json:"confidenceThreshold"`
	CustomThreshold              *int           `json:"customThreshold,omitempty"`
}

// SummaryMetrics represents the headline numbers of an analysis
type SummaryMetrics struct {
	TotalFindings  int    `json:"totalFindings"`
	FilesAnalyzed  int    `json:"filesAnalyzed"`
	RepositoryName string `json:"repositoryName"`
	AnalysisDate   string `json:"analysisDate"`
	ScanDuration   string `json:"scanDuration"`
}

// LibraryStatistic represents the usage of a single crypto library
type LibraryStatistic struct {
	Library    string `json:"library"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
	Confidence string `json:"confidence"`
}

// AlgorithmStatistic represents the usage of a single algorithm
type AlgorithmStatistic struct {
	Algorithm         string `json:"algorithm"`
	Count             int    `json:"count"`
	Percentage        int    `json:"percentage"`
	AverageConfidence int    `json:"averageConfidence"`
}

// AlgorithmTypeStatistic represents the usage of an algorithm category
type AlgorithmTypeStatistic struct {
	Type       string   `json:"type"`
	Count      int      `json:"count"`
	Percentage int      `json:"percentage"`
	Algorithms []string `json:"algorithms"`
}

// Finding is one detected occurrence of a cryptographic primitive
type Finding struct {
	ID              string          `json:"id"`
	FilePath        string          `json:"filePath"`
	Algorithm       string          `json:"algorithm"`
	AlgorithmType   string          `json:"algorithmType"`
	Confidence      int             `json:"confidence"`
	ConfidenceLevel ConfidenceLevel `json:"confidenceLevel"`
	CodeSnippet     string          `json:"codeSnippet,omitempty"`
	LineNumber      int             `json:"lineNumber"`
	Description     string          `json:"description"`
	Severity        Severity        `json:"severity"`
}

// NewFinding builds a finding whose confidence level and severity are
// derived from confidence.
func NewFinding(id, filePath, algorithm, algorithmType string, confidence, lineNumber int, description, snippet string) Finding {
	return Finding{
		ID:              id,
		FilePath:        filePath,
		Algorithm:       algorithm,
		AlgorithmType:   algorithmType,
		Confidence:      confidence,
		ConfidenceLevel: ConfidenceLevelFor(confidence),
		CodeSnippet:     snippet,
		LineNumber:      lineNumber,
		Description:     description,
		Severity:        SeverityFor(confidence),
	}
}

// RawData carries the result serialized as indented JSON and as flat CSV
type RawData struct {
	JSON string `json:"json"`
	CSV  string `json:"csv"`
}

// AnalysisResult is the complete output of one analysis request.
// It is built once and treated as read-only afterwards.
type AnalysisResult struct {
	Summary            SummaryMetrics           `json:"summary"`
	LibraryStats       []LibraryStatistic       `json:"libraryStats"`
	AlgorithmStats     []AlgorithmStatistic     `json:"algorithmStats"`
	AlgorithmTypeStats []AlgorithmTypeStatistic `json:"algorithmTypeStats"`
	Findings           []Finding                `json:"findings"`
	RawData            RawData                  `json:"rawData"`
}

// ResultToJSON renders a result the way reports are written to disk.
func ResultToJSON(result *AnalysisResult) ([]byte, error) {
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result to JSON: %w", err)
	}
	return jsonData, nil
}
