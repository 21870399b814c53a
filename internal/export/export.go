// Package export renders analysis results into downloadable reports.
package export

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/findings"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/model"
)

// Kind selects an export format
type Kind string

const (
	KindSummary  Kind = "summary"
	KindDetailed Kind = "detailed"
	KindCSV      Kind = "csv"
	KindRaw      Kind = "raw"
)

// Kinds lists every supported export format.
var Kinds = []Kind{KindSummary, KindDetailed, KindCSV, KindRaw}

const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
)

// ParseKind validates a format name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unsupported export kind %q (expected summary, detailed, csv or raw)", s)
}

// Document is a rendered export ready to be written or downloaded
type Document struct {
	Name        string
	ContentType string
	Body        []byte
}

// SummaryReport is the overview export
type SummaryReport struct {
	AnalysisSummary         model.SummaryMetrics           `json:"analysis_summary"`
	LibraryStatistics       []model.LibraryStatistic       `json:"library_statistics"`
	AlgorithmStatistics     []model.AlgorithmStatistic     `json:"algorithm_statistics"`
	AlgorithmTypeStatistics []model.AlgorithmTypeStatistic `json:"algorithm_type_statistics"`
	TotalFindings           int                            `json:"total_findings"`
	FindingsBySeverity      findings.SeverityCounts        `json:"findings_by_severity"`
	ExportTimestamp         string                         `json:"export_timestamp"`
}

// DetailedReport is the complete result plus the export time
type DetailedReport struct {
	*model.AnalysisResult
	ExportTimestamp string `json:"export_timestamp"`
}

var findingsCSVHeader = []string{"File Path", "Algorithm", "Algorithm Type", "Confidence", "Confidence Level", "Severity", "Line Number", "Description"}

// Render produces the export of kind for result. now stamps the report and
// its file name.
func Render(result *model.AnalysisResult, kind Kind, now time.Time) (*Document, error) {
	stamp := timestamp(now)
	doc := &Document{Name: FileName(result, kind, now), ContentType: ContentTypeJSON}

	var err error
	switch kind {
	case KindSummary:
		doc.Body, err = marshal(Summary(result, stamp))
	case KindDetailed:
		doc.Body, err = marshal(DetailedReport{AnalysisResult: result, ExportTimestamp: stamp})
	case KindCSV:
		doc.ContentType = ContentTypeCSV
		doc.Body = []byte(FindingsCSV(result.Findings))
	case KindRaw:
		doc.Body = []byte(result.RawData.JSON)
	default:
		return nil, fmt.Errorf("unsupported export kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Summary builds the overview export.
func Summary(result *model.AnalysisResult, exportTimestamp string) SummaryReport {
	return SummaryReport{
		AnalysisSummary:         result.Summary,
		LibraryStatistics:       result.LibraryStats,
		AlgorithmStatistics:     result.AlgorithmStats,
		AlgorithmTypeStatistics: result.AlgorithmTypeStats,
		TotalFindings:           len(result.Findings),
		FindingsBySeverity:      findings.CountBySeverity(result.Findings),
		ExportTimestamp:         exportTimestamp,
	}
}

// FindingsCSV renders one row per finding. The description column is always
// quoted; other columns only when they contain a separator or quote.
func FindingsCSV(all []model.Finding) string {
	lines := make([]string, 0, len(all)+1)
	lines = append(lines, strings.Join(findingsCSVHeader, ","))
	for _, f := range all {
		row := []string{
			quoteIfNeeded(f.FilePath),
			quoteIfNeeded(f.Algorithm),
			quoteIfNeeded(f.AlgorithmType),
			strconv.Itoa(f.Confidence),
			string(f.ConfidenceLevel),
			string(f.Severity),
			strconv.Itoa(f.LineNumber),
			quote(f.Description),
		}
		lines = append(lines, strings.Join(row, ","))
	}
	return strings.Join(lines, "\n")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9]`)

// FileName is the download name for an export, e.g. widget_summary_2026-10-18.json.
func FileName(result *model.AnalysisResult, kind Kind, now time.Time) string {
	repo := unsafeName.ReplaceAllString(result.Summary.RepositoryName, "_")
	date := now.UTC().Format("2006-01-02")

	switch kind {
	case KindCSV:
		return fmt.Sprintf("%s_findings_%s.csv", repo, date)
	default:
		return fmt.Sprintf("%s_%s_%s.json", repo, kind, date)
	}
}

func timestamp(now time.Time) string {
	return now.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func marshal(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return data, nil
}
